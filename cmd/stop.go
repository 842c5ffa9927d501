package cmd

import (
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <workspace>",
	Short: "Stop a running workspace container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		eng, _, err := newEngine()
		if err != nil {
			return err
		}

		diag, err := eng.Stop(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if diag != "" {
			u.Dim(diag)
			return nil
		}
		u.Success("Stopped workspace " + args[0])
		return nil
	},
}
