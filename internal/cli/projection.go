package cli

import (
	"context"
	"errors"

	"github.com/cloud-scan/controlcenter/internal/config"
	"github.com/cloud-scan/controlcenter/internal/projection"
	"github.com/cloud-scan/controlcenter/internal/store"
	"github.com/spf13/cobra"
)

var errProjectionDisabled = errors.New("cli: database.dsn is not configured, projection is disabled")

func newProjectionCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "projection",
		Short: "Manage the Postgres read-projection cache",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to softfab.ini (default: ./softfab.ini)")
	cmd.AddCommand(newProjectionRebuildCmd(&configPath))
	return cmd
}

// newProjectionRebuildCmd truncates and repopulates the projection from
// the authoritative XML stores. The projection is purely a read cache and
// must be rebuildable on demand.
func newProjectionRebuildCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the projection from the XML record stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return errProjectionDisabled
			}

			jobs, err := store.NewJobStore(cfg.Data.RootDir + "/jobs")
			if err != nil {
				return err
			}
			if err := jobs.Load(); err != nil {
				return err
			}
			schedules, err := store.NewScheduleStore(cfg.Data.RootDir + "/schedules")
			if err != nil {
				return err
			}
			if err := schedules.Load(); err != nil {
				return err
			}

			pdb, err := projection.Open(cfg.Database.DSN, cfg.Database.MaxConnections, cfg.Database.MinConnections)
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := projection.CreateSchema(ctx, pdb); err != nil {
				return err
			}
			return projection.New(pdb).Rebuild(ctx, jobs, schedules)
		},
	}
}

func init() {
	rootCmd.AddCommand(newProjectionCmd())
}
