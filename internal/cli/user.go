package cli

import (
	"fmt"
	"path/filepath"

	"github.com/cloud-scan/controlcenter/internal/auth"
	"github.com/spf13/cobra"
)

func userStorePath(cmd *cobra.Command) string {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = "./data"
	}
	return filepath.Join(dataDir, "passwd")
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.PersistentFlags().String("data-dir", "./data", "root directory of the record stores")
	cmd.AddCommand(newUserAddCmd(), newUserRemoveCmd(), newUserShowCmd(), newUserRoleCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var role string
	var password string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a new user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := auth.NewUserStore(userStorePath(cmd))
			if err := store.Add(args[0], auth.Role(role), password); err != nil {
				cmd.SilenceUsage = true
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				exit(ExitRefused)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s created\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(auth.RoleUser), "guest, user, or operator")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	return cmd
}

func newUserRemoveCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Delete a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := auth.NewUserStore(userStorePath(cmd))
			if _, err := store.Show(args[0]); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				exit(ExitNotFound)
				return nil
			}
			if !force {
				fmt.Fprintln(cmd.ErrOrStderr(), "refusing to remove user without --force")
				exit(ExitRefused)
				return nil
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s removed\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm the removal")
	return cmd
}

func newUserShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Show a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := auth.NewUserStore(userStorePath(cmd))
			u, err := store.Show(args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				exit(ExitNotFound)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.Name, u.Role)
			return nil
		},
	}
	return cmd
}

func newUserRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role NAME ROLE",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := auth.NewUserStore(userStorePath(cmd))
			if err := store.SetRole(args[0], auth.Role(args[1])); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				exit(ExitNotFound)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s is now %s\n", args[0], args[1])
			return nil
		},
	}
	return cmd
}
