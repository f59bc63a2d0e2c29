package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloud-scan/controlcenter/internal/api"
	"github.com/cloud-scan/controlcenter/internal/auth"
	"github.com/cloud-scan/controlcenter/internal/broker"
	"github.com/cloud-scan/controlcenter/internal/config"
	"github.com/cloud-scan/controlcenter/internal/definitions"
	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/cloud-scan/controlcenter/internal/engine"
	"github.com/cloud-scan/controlcenter/internal/projection"
	"github.com/cloud-scan/controlcenter/internal/provisioner"
	"github.com/cloud-scan/controlcenter/internal/reportstore"
	"github.com/cloud-scan/controlcenter/internal/retention"
	"github.com/cloud-scan/controlcenter/internal/scheduler"
	"github.com/cloud-scan/controlcenter/internal/store"
	"github.com/cloud-scan/controlcenter/internal/webhook"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	connectionWarnAfter = 2 * time.Minute
	connectionLostAfter = 10 * time.Minute
)

func newServerCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the controller's HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to softfab.ini (default: ./softfab.ini)")
	return cmd
}

func runServer(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	configureLogging(cfg.Server)

	resTypes, err := store.NewResTypeStore(cfg.Data.RootDir + "/restypes")
	if err != nil {
		return err
	}
	resources, err := store.NewResourceStore(cfg.Data.RootDir + "/resources")
	if err != nil {
		return err
	}
	runners, err := store.NewTaskRunnerStore(cfg.Data.RootDir + "/runners")
	if err != nil {
		return err
	}
	products, err := store.NewProductDefStore(cfg.Data.RootDir + "/products")
	if err != nil {
		return err
	}
	frameworks, err := store.NewFrameworkStore(cfg.Data.RootDir + "/frameworks")
	if err != nil {
		return err
	}
	taskdefs, err := store.NewTaskDefStore(cfg.Data.RootDir + "/taskdefs")
	if err != nil {
		return err
	}
	configs, err := store.NewConfigurationStore(cfg.Data.RootDir + "/configs")
	if err != nil {
		return err
	}
	jobs, err := store.NewJobStore(cfg.Data.RootDir + "/jobs")
	if err != nil {
		return err
	}
	schedules, err := store.NewScheduleStore(cfg.Data.RootDir + "/schedules")
	if err != nil {
		return err
	}
	tokens, err := store.NewTokenStore(cfg.Data.RootDir + "/tokens")
	if err != nil {
		return err
	}

	for _, loadable := range []interface{ Load() error }{
		resTypes, resources, runners, products, frameworks, taskdefs, configs, jobs, schedules, tokens,
	} {
		if err := loadable.Load(); err != nil {
			return err
		}
	}

	if err := bootstrapResTypes(resTypes); err != nil {
		return err
	}

	defs := definitions.New(products, frameworks, taskdefs, domain.ParamMap{})

	resTypeLookup := func(resType string) bool {
		rt, ok := resTypes.Get(resType)
		return ok && rt.PerJob
	}
	b := broker.New(resources, runners, resTypeLookup, connectionWarnAfter, connectionLostAfter)

	eng := engine.New(jobs, defs, b, runners)
	syncServer := broker.NewServer(b, eng, runners)

	authn := auth.New(tokens)

	validInputs := func(c *domain.Configuration) bool {
		inputTypes := make(map[string]domain.ProductDef)
		for _, p := range products.All() {
			inputTypes[p.ID] = p
		}
		return c.HasValidInputs(inputTypes)
	}
	driver := scheduler.New(schedules, configurationAdapter{configs}, eng, eng, validInputs)

	if cfg.Database.DSN != "" {
		pdb, err := projection.Open(cfg.Database.DSN, cfg.Database.MaxConnections, cfg.Database.MinConnections)
		if err != nil {
			log.WithError(err).Warn("projection database unavailable, query views degrade to the XML stores only")
		} else if err := projection.CreateSchema(context.Background(), pdb); err != nil {
			log.WithError(err).Warn("projection schema setup failed")
		} else {
			proj := projection.New(pdb)
			jobs.AddObserver(proj)
			schedules.AddObserver(proj)
		}
	}

	wh := webhook.New(resources, schedules, driver)

	apiServer := api.NewServer(authn, syncServer, eng, wh, cfg.Server.NoAuth)

	if cfg.Kubernetes.KubeConfigPath != "" || cfg.Kubernetes.InCluster {
		clientset, err := provisioner.NewClient(cfg.Kubernetes.InCluster, cfg.Kubernetes.KubeConfigPath)
		if err != nil {
			log.WithError(err).Warn("kubernetes client unavailable, ephemeral runner provisioning disabled")
		} else if err := provisioner.EnsureNamespace(context.Background(), clientset, cfg.Kubernetes.Namespace); err != nil {
			log.WithError(err).Warn("provisioning namespace unavailable, ephemeral runner provisioning disabled")
		}
	}

	reports := reportstore.New(cfg.Report.StorageEndpoint, cfg.Report.Timeout)
	sweeper := retention.New(jobs, reports, cfg.Report.RetentionDays, cfg.Report.SweepInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go driver.Run(ctx)
	go sweeper.Run(ctx)

	httpServer := &http.Server{Addr: cfg.Server.ListenAddress, Handler: apiServer.Handler()}
	go func() {
		log.WithField("addr", cfg.Server.ListenAddress).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// configurationAdapter adapts store.Store[*domain.Configuration] to
// scheduler.ConfigurationStore.
type configurationAdapter struct {
	store *store.Store[*domain.Configuration]
}

func (a configurationAdapter) Get(id string) (*domain.Configuration, bool) { return a.store.Get(id) }
func (a configurationAdapter) All() []*domain.Configuration               { return a.store.All() }

// bootstrapResTypes seeds the two reserved resource types on first start,
// matching restypelib.py's always-present Task Runner / Repository types.
func bootstrapResTypes(resTypes *store.Store[domain.ResType]) error {
	for _, rt := range domain.ReservedResTypes() {
		if _, ok := resTypes.Get(rt.Name); !ok {
			if err := resTypes.Put(rt); err != nil {
				return err
			}
		}
	}
	return nil
}

func configureLogging(cfg config.ServerConfig) {
	if cfg.LogFormat == "text" {
		log.SetFormatter(&log.TextFormatter{})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
