// Package agent implements the in-container side of the orchestrator: the
// container entrypoint that supervises dockerd and sshd, and the init
// command that prepares the workspace (clone, editor, dev tools, bootstrap
// scripts).
package agent

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/workspace-dev/workspace/internal/execx"
)

// markerFile indicates a completed initialization. It lives in the home
// volume so it survives container replacement.
const markerFile = ".workspace-initialized"

// Agent holds the shared collaborators for agent commands.
type Agent struct {
	runner *execx.Runner
	logger *slog.Logger
}

// NewRootCommand builds the workspace-internal command tree.
func NewRootCommand() *cobra.Command {
	var debugFlag bool

	root := &cobra.Command{
		Use:           "workspace-internal",
		Short:         "In-container workspace agent",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	newAgent := func() *Agent {
		level := slog.LevelInfo
		if debugFlag {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return &Agent{
			runner: execx.New(logger),
			logger: logger,
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "entrypoint",
		Short: "Container entrypoint: sync user, install keys, supervise daemons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newAgent().Entrypoint(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Initialize the workspace: clone, editor config, bootstrap scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newAgent().Init(cmd.Context())
		},
	})

	return root
}
