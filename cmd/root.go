// Package cmd implements the host-side workspace CLI.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/workspace-dev/workspace/internal/buildkit"
	"github.com/workspace-dev/workspace/internal/docker"
	"github.com/workspace-dev/workspace/internal/engine"
	"github.com/workspace-dev/workspace/internal/execx"
	"github.com/workspace-dev/workspace/internal/sshkey"
	"github.com/workspace-dev/workspace/internal/state"
	"github.com/workspace-dev/workspace/internal/ui"
)

var (
	debugFlag   bool
	verboseFlag bool
	logger      *slog.Logger
)

// Version variables injected at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Built   = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "workspace",
	Short:   "Containerized development environments with Docker-in-Docker",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if debugFlag {
			level = slog.LevelDebug
		}
		logger = newLogger(level)
		return nil
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "accepted but does not change any output")
	rootCmd.SetVersionTemplate(fmt.Sprintf("workspace version %s\n", Version))

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(buildkitCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the slog logger used across the CLI, with UTC
// timestamps.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.TimeValue(t.UTC())
				}
			}
			return a
		},
	}))
}

// Execute runs the root command with signal handling.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger = newLogger(slog.LevelWarn)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		u := newUI()
		u.Error(err.Error())
		os.Exit(1)
	}
}

// newUI creates a UI that writes to stdout and stderr.
func newUI() *ui.UI {
	return ui.New(os.Stdout, os.Stderr)
}

// newEngine wires the runner, docker adapter, state store, BuildKit
// manager, and key selector into an Engine.
func newEngine() (*engine.Engine, *state.Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("getting home directory: %w", err)
	}

	runner := execx.New(logger)
	dockerClient := docker.NewClient(runner, logger)
	store := state.NewStore(home, runner, logger)
	bk := buildkit.NewManager(dockerClient, logger)
	selector := sshkey.NewSelector(home, logger)

	eng := engine.New(dockerClient, store, bk, runner, selector, home, logger)
	return eng, store, nil
}
