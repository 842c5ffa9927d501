package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/workspace-dev/workspace/internal/engine"
)

var (
	destroyKeepVolumesFlag bool
	destroyForceFlag       bool
)

var destroyCmd = &cobra.Command{
	Use:   "destroy <workspaces...>",
	Short: "Remove workspace containers, volumes, and state",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		if !destroyForceFlag {
			effect := "container + volumes + state"
			if destroyKeepVolumesFlag {
				effect = "container + state (volumes kept)"
			}
			prompt := "Destroy " + strings.Join(args, ", ") + " (" + effect + ")?"
			if !u.Confirm(prompt) {
				u.Dim("aborted")
				return nil
			}
		}

		eng, _, err := newEngine()
		if err != nil {
			return err
		}

		progress := u.StartProgress()
		defer progress.Done()
		eng.SetProgress(progress.Update)

		for _, name := range args {
			if err := eng.Destroy(cmd.Context(), name, engine.DestroyOptions{KeepVolumes: destroyKeepVolumesFlag}); err != nil {
				return err
			}
		}
		progress.Done()

		for _, name := range args {
			u.Success("Destroyed workspace " + name)
		}
		return nil
	},
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyKeepVolumesFlag, "keep-volumes", false, "keep the named volumes")
	destroyCmd.Flags().BoolVarP(&destroyForceFlag, "force", "f", false, "skip the confirmation prompt")
}
