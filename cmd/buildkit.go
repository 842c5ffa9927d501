package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/workspace-dev/workspace/internal/buildkit"
	"github.com/workspace-dev/workspace/internal/docker"
	"github.com/workspace-dev/workspace/internal/execx"
)

var (
	buildkitStatusFlag  bool
	buildkitStopFlag    bool
	buildkitRestartFlag bool
	buildkitCleanFlag   bool
)

var buildkitCmd = &cobra.Command{
	Use:   "buildkit",
	Short: "Inspect or manage the shared BuildKit infrastructure",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()
		ctx := cmd.Context()

		runner := execx.New(logger)
		dockerClient := docker.NewClient(runner, logger)
		manager := buildkit.NewManager(dockerClient, logger)

		switch {
		case buildkitStopFlag:
			if err := dockerClient.StopContainer(ctx, buildkit.Container); err != nil {
				return err
			}
			u.Success("Stopped " + buildkit.Container)
			return nil

		case buildkitRestartFlag:
			if err := dockerClient.StopContainer(ctx, buildkit.Container); err != nil {
				return err
			}
			if err := manager.EnsureShared(ctx); err != nil {
				return err
			}
			u.Success("Restarted " + buildkit.Container)
			return nil

		case buildkitCleanFlag:
			if err := manager.Clean(ctx); err != nil {
				return err
			}
			u.Success("Removed BuildKit container, network, and volume")
			return nil
		}

		// Default (and --status): report the state of each piece.
		u.Header("Shared BuildKit")
		boolStatus := func(present bool) string {
			if present {
				return "present"
			}
			return "missing"
		}
		u.Keyval("Network", boolStatus(dockerClient.NetworkExists(ctx, buildkit.Network)))
		u.Keyval("Volume", boolStatus(dockerClient.VolumeExists(ctx, buildkit.Volume)))

		details, err := dockerClient.InspectContainer(ctx, buildkit.Container)
		if err != nil {
			return err
		}
		if details == nil {
			u.Keyval("Daemon", "missing")
			return nil
		}
		u.Keyval("Daemon", u.StatusColor(details.State.Status))
		if details.State.IsRunning() {
			u.Keyval("Networks", strings.Join(details.Networks(), ", "))
			u.Keyval("Endpoint", fmt.Sprintf("tcp://127.0.0.1:%d", buildkit.Port))
		}
		return nil
	},
}

func init() {
	buildkitCmd.Flags().BoolVar(&buildkitStatusFlag, "status", false, "show the infrastructure status (default)")
	buildkitCmd.Flags().BoolVar(&buildkitStopFlag, "stop", false, "stop the shared daemon")
	buildkitCmd.Flags().BoolVar(&buildkitRestartFlag, "restart", false, "restart the shared daemon")
	buildkitCmd.Flags().BoolVar(&buildkitCleanFlag, "clean", false, "remove the daemon, network, and cache volume")
	buildkitCmd.MarkFlagsMutuallyExclusive("status", "stop", "restart", "clean")
}
