package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var listPathFlag string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known workspaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		eng, store, err := newEngine()
		if err != nil {
			return err
		}

		applyRCDefaults(&listPathFlag, nil)

		names, err := store.ListWorkspaceNames(cmd.Context())
		if err != nil {
			return err
		}
		if len(names) == 0 {
			u.Dim("no workspaces (run `workspace start` in a project)")
			return nil
		}
		sort.Strings(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			report, err := eng.Status(cmd.Context(), name)
			if err != nil {
				return err
			}
			status := "no container"
			if report.Container != nil {
				status = u.StatusColor(report.Container.State.Status)
			}
			sshPort, configDir := "-", "-"
			if report.State != nil {
				sshPort = fmt.Sprintf("%d", report.State.SSHPort)
				configDir = report.State.ConfigDir
			}
			rows = append(rows, []string{name, status, sshPort, configDir})
		}

		u.Table([]string{"NAME", "STATUS", "SSH", "CONFIG"}, rows)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listPathFlag, "path", "", "project directory (informational, used by rc defaults)")
}
