package cmd

import (
	"github.com/spf13/cobra"

	"github.com/workspace-dev/workspace/internal/engine"
)

var (
	shellUserFlag    string
	shellRootFlag    bool
	shellCommandFlag string
)

var shellCmd = &cobra.Command{
	Use:   "shell <workspace>",
	Short: "Open a shell (or run a command) inside a running workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := newEngine()
		if err != nil {
			return err
		}

		user := shellUserFlag
		if shellRootFlag {
			user = "root"
		}
		return eng.Shell(cmd.Context(), args[0], engine.ShellOptions{
			User:    user,
			Command: shellCommandFlag,
		})
	},
}

func init() {
	shellCmd.Flags().StringVarP(&shellUserFlag, "user", "u", "", "user to run as (default workspace)")
	shellCmd.Flags().BoolVar(&shellRootFlag, "root", false, "shorthand for --user root")
	shellCmd.Flags().StringVarP(&shellCommandFlag, "command", "c", "", "run a single command instead of an interactive shell")
}
