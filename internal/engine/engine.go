// Package engine drives the workspace lifecycle: start, stop, destroy,
// status, shell, proxy, and logs. It coordinates the config resolver, the
// state store, the docker adapter, and the shared BuildKit infrastructure.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/workspace-dev/workspace/internal/buildkit"
	"github.com/workspace-dev/workspace/internal/config"
	"github.com/workspace-dev/workspace/internal/docker"
	"github.com/workspace-dev/workspace/internal/execx"
	"github.com/workspace-dev/workspace/internal/sshkey"
	"github.com/workspace-dev/workspace/internal/state"
)

// Engine orchestrates workspace lifecycle operations.
type Engine struct {
	docker   *docker.Client
	store    *state.Store
	buildkit *buildkit.Manager
	runner   *execx.Runner
	selector *sshkey.Selector
	logger   *slog.Logger

	hostHome string
	stdout   io.Writer
	stderr   io.Writer
	progress func(string)
}

// New creates an Engine with the given collaborators.
func New(d *docker.Client, store *state.Store, bk *buildkit.Manager, runner *execx.Runner, selector *sshkey.Selector, hostHome string, logger *slog.Logger) *Engine {
	return &Engine{
		docker:   d,
		store:    store,
		buildkit: bk,
		runner:   runner,
		selector: selector,
		logger:   logger,
		hostHome: hostHome,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
}

// SetOutput overrides the default stdout and stderr writers.
func (e *Engine) SetOutput(stdout, stderr io.Writer) {
	e.stdout = stdout
	e.stderr = stderr
}

// SetProgress sets a callback for user-facing progress messages.
func (e *Engine) SetProgress(fn func(string)) {
	e.progress = fn
}

// reportProgress sends a message to the progress callback (if set) and logs
// it at debug level.
func (e *Engine) reportProgress(msg string) {
	if e.progress != nil {
		e.progress(msg)
	}
	e.logger.Debug(msg)
}

// Info locates a workspace by name independent of any config file, so
// commands like stop and destroy work after the project directory is gone.
type Info struct {
	Name          string
	ContainerName string
	State         config.StatePaths
}

// ResolveInfo derives the container name and state paths for a workspace
// name.
func (e *Engine) ResolveInfo(name string) Info {
	root := filepath.Join(e.hostHome, ".workspaces", "state", name)
	return Info{
		Name:          name,
		ContainerName: config.ContainerNamePrefix + name,
		State: config.StatePaths{
			Root:              root,
			SSHDir:            filepath.Join(root, "ssh"),
			KeyPath:           filepath.Join(root, "ssh", "id_ed25519"),
			RuntimeConfigPath: filepath.Join(root, "runtime.json"),
		},
	}
}

// homeVolume, dockerVolume, and cacheVolume name the per-workspace named
// volumes.
func homeVolume(container string) string   { return container + "-home" }
func dockerVolume(container string) string { return container + "-docker" }
func cacheVolume(container string) string  { return container + "-cache" }

// Volumes returns the three named volumes backing a workspace container.
func Volumes(container string) []string {
	return []string{homeVolume(container), dockerVolume(container), cacheVolume(container)}
}

// loadResolvedConfig finds, parses, and resolves the project config for a
// workspace start. The user config is loaded (and its skeleton created)
// alongside.
func (e *Engine) loadResolvedConfig(ctx context.Context, name, pathOverride string) (*config.Resolved, *config.UserConfig, error) {
	cwd := pathOverride
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("getting working directory: %w", err)
		}
	}

	repoRoot := config.DiscoverRepoRoot(ctx, e.runner, cwd)
	configDir, err := config.FindWorkspaceDir(config.FindOptions{
		Path:     cwd,
		RepoRoot: repoRoot,
		HostHome: e.hostHome,
	})
	if err != nil {
		return nil, nil, err
	}

	project, err := config.LoadProjectConfig(configDir)
	if err != nil {
		return nil, nil, err
	}

	if err := config.EnsureUserConfig(e.hostHome); err != nil {
		return nil, nil, err
	}
	user, err := config.LoadUserConfig(e.hostHome)
	if err != nil {
		return nil, nil, err
	}

	resolved, err := config.Resolve(project, user, configDir, config.ResolveOptions{
		WorkspaceName: name,
		HostHome:      e.hostHome,
		BuildContext:  filepath.Join(e.store.BaseDir(), "buildcontext"),
	})
	if err != nil {
		return nil, nil, err
	}
	return resolved, user, nil
}
