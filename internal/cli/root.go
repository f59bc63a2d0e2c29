// Package cli implements the controller's command-line entry points:
// "server" boots the HTTP service, "user add/remove/show/role" manage the
// flat-file password store directly (admin surface never makes
// an HTTP hop). Grounded on the cobra root/subcommand layout of
// _examples/dagu-org-dagu/cmd/root.go.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for the "user" subcommands: 0 success, 1 lookup failure
// (no such user), 2 a destructive op refused without --force.
const (
	ExitOK       = 0
	ExitNotFound = 1
	ExitRefused  = 2
)

// exit is a var so tests can intercept process exit instead of tearing
// down the test binary.
var exit = os.Exit

var rootCmd = &cobra.Command{
	Use:   "controlcenter",
	Short: "CI/job-orchestration controller",
	Long:  "controlcenter [server|user] ...",
}

// Execute runs the root command, exiting the process with its result.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServerCmd())
	rootCmd.AddCommand(newUserCmd())
}
