package cmd

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()
		v := "workspace " + Version
		if Commit != "unknown" {
			v += " (" + Commit
			if Built != "unknown" {
				v += ", " + Built
			}
			v += ")"
		}
		u.Println(v)
		return nil
	},
}
