package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <workspace>",
	Short: "Show container status, ports, and repository for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		eng, _, err := newEngine()
		if err != nil {
			return err
		}

		report, err := eng.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		u.Header("Workspace " + report.Name)
		if report.Container == nil {
			u.Keyval("Status", "no container")
		} else {
			u.Keyval("Status", u.StatusColor(report.Container.State.Status))
			u.Keyval("Image", report.Container.Config.Image)
		}
		if report.State != nil {
			u.Keyval("SSH port", fmt.Sprintf("%d", report.State.SSHPort))
			for _, fwd := range report.State.Forwards {
				u.Keyval("Forward", fmt.Sprintf("%d -> %d", fwd, fwd))
			}
		}
		if report.Runtime != nil && report.Runtime.Workspace.Repo.Remote != "" {
			repo := report.Runtime.Workspace.Repo
			u.Keyval("Repo", fmt.Sprintf("%s (%s)", repo.Remote, repo.Branch))
		}
		return nil
	},
}
