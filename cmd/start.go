package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/workspace-dev/workspace/internal/engine"
)

var (
	startRebuildFlag       bool
	startNoCacheFlag       bool
	startForceRecreateFlag bool
	startNoInitFlag        bool
	startPathFlag          string
)

var startCmd = &cobra.Command{
	Use:   "start <workspace>",
	Short: "Create or resume a workspace container",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		var name string
		if len(args) > 0 {
			name = args[0]
		}
		applyRCDefaults(&startPathFlag, &name)
		if name == "" {
			return fmt.Errorf("workspace name required")
		}

		eng, _, err := newEngine()
		if err != nil {
			return err
		}

		u.Header("Starting workspace " + name)

		progress := u.StartProgress()
		defer progress.Done()
		eng.SetProgress(progress.Update)

		result, err := eng.Start(cmd.Context(), name, engine.StartOptions{
			Rebuild:       startRebuildFlag,
			NoCache:       startNoCacheFlag,
			ForceRecreate: startForceRecreateFlag,
			NoInit:        startNoInitFlag,
			Path:          startPathFlag,
		})
		progress.Done()
		if err != nil {
			return err
		}

		if result.AlreadyRunning {
			u.Success("Workspace " + name + " is already running")
			return nil
		}

		u.Success("Workspace ready")
		if result.SSHPort > 0 {
			u.Keyval("ssh port", fmt.Sprintf("%d", result.SSHPort))
		}
		for _, fwd := range result.Forwards {
			u.Keyval("forward", fmt.Sprintf("%d -> %d", fwd, fwd))
		}
		if result.LogPath != "" {
			u.Dim("  init log: " + result.LogPath)
		}
		return nil
	},
}

func init() {
	startCmd.Flags().BoolVar(&startRebuildFlag, "rebuild", false, "rebuild the shared image before starting")
	startCmd.Flags().BoolVar(&startNoCacheFlag, "no-cache", false, "rebuild the shared image without cache")
	startCmd.Flags().BoolVar(&startForceRecreateFlag, "force-recreate", false, "replace an existing container")
	startCmd.Flags().BoolVar(&startNoInitFlag, "no-init", false, "skip the in-container init step")
	startCmd.Flags().StringVar(&startPathFlag, "path", "", "project directory to resolve config from")
}
