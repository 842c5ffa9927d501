package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/workspace-dev/workspace/internal/buildkit"
	"github.com/workspace-dev/workspace/internal/config"
	"github.com/workspace-dev/workspace/internal/docker"
	"github.com/workspace-dev/workspace/internal/execx"
	"github.com/workspace-dev/workspace/internal/fsutil"
	"github.com/workspace-dev/workspace/internal/runtimecfg"
	"github.com/workspace-dev/workspace/internal/sshkey"
	"github.com/workspace-dev/workspace/internal/state"
)

const (
	execReadyTimeout    = 15 * time.Second
	dockerdReadyTimeout = 30 * time.Second

	// sharedImageMaxAge is how old the shared image may get before a start
	// rebuilds it.
	sharedImageMaxAge = 7 * 24 * time.Hour
)

// StartOptions controls Start.
type StartOptions struct {
	Rebuild       bool
	NoCache       bool
	ForceRecreate bool
	NoInit        bool
	Path          string
}

// StartResult reports the outcome of a successful start.
type StartResult struct {
	AlreadyRunning bool
	SSHPort        int
	Forwards       []int
	LogPath        string
}

// Start brings a workspace container up: resume an existing container when
// possible, otherwise resolve config, claim state, build what is missing,
// run the container, and initialize it.
func (e *Engine) Start(ctx context.Context, name string, opts StartOptions) (*StartResult, error) {
	info := e.ResolveInfo(name)

	exists := e.docker.ContainerExists(ctx, info.ContainerName)
	recreate := opts.ForceRecreate || opts.Rebuild || opts.NoCache

	if exists && !recreate {
		return e.resume(ctx, info, opts)
	}
	return e.create(ctx, info, opts)
}

// resume handles the existing-container path: start it if stopped, restore
// the BuildKit wiring, and re-run the in-container init.
func (e *Engine) resume(ctx context.Context, info Info, opts StartOptions) (*StartResult, error) {
	details, err := e.docker.InspectContainer(ctx, info.ContainerName)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, fmt.Errorf("container %s disappeared during start", info.ContainerName)
	}

	ws, err := e.store.Workspace(ctx, info.Name)
	if err != nil {
		return nil, err
	}

	result := &StartResult{}
	if ws != nil {
		result.SSHPort = ws.SSHPort
		result.Forwards = ws.Forwards
	}

	if details.State.IsRunning() {
		result.AlreadyRunning = true
		return result, nil
	}

	e.reportProgress("Starting container...")
	if err := e.docker.StartContainer(ctx, info.ContainerName); err != nil {
		return nil, err
	}
	if err := e.waitForDockerd(ctx, info.ContainerName); err != nil {
		return nil, err
	}

	if err := e.wireBuildKit(ctx, info.ContainerName); err != nil {
		return nil, err
	}

	if !opts.NoInit {
		logPath, err := e.runInit(ctx, info)
		result.LogPath = logPath
		if err != nil {
			return nil, err
		}
	}

	e.verifyClone(ctx, info)
	return result, nil
}

// create handles the fresh-container path, including forced recreation.
func (e *Engine) create(ctx context.Context, info Info, opts StartOptions) (*StartResult, error) {
	resolved, userCfg, err := e.loadResolvedConfig(ctx, info.Name, opts.Path)
	if err != nil {
		if errors.Is(err, config.ErrConfigMissing) {
			return nil, fmt.Errorf("workspace %s has no container and no .workspace.yml was found; run `workspace init` in the project first: %w", info.Name, err)
		}
		return nil, err
	}

	e.reportProgress("Claiming workspace state...")
	ws, err := e.store.EnsureWorkspaceState(ctx, resolved)
	if err != nil {
		return nil, err
	}

	selectedKey := e.selectKey(ctx, resolved, userCfg, ws)

	rt := runtimecfg.Build(resolved, ws.SSHPort, selectedKey)
	if err := fsutil.EnsureDir(resolved.State.Root); err != nil {
		return nil, err
	}
	if err := runtimecfg.Write(resolved.State.RuntimeConfigPath, rt); err != nil {
		return nil, err
	}

	if err := sshkey.EnsureHostKey(resolved.State.KeyPath); err != nil {
		return nil, err
	}
	publicKey, err := sshkey.ReadPublicKey(resolved.State.KeyPath)
	if err != nil {
		return nil, err
	}

	if err := e.ensureSharedImage(ctx, opts.Rebuild, opts.NoCache); err != nil {
		return nil, err
	}

	if opts.ForceRecreate && e.docker.ContainerExists(ctx, info.ContainerName) {
		e.reportProgress("Removing existing container...")
		if err := e.docker.RemoveContainer(ctx, info.ContainerName, true); err != nil {
			return nil, err
		}
	}

	e.reportProgress("Starting shared BuildKit...")
	if err := e.buildkit.EnsureShared(ctx); err != nil {
		return nil, err
	}

	e.reportProgress("Creating container...")
	runArgs := buildRunArgs(runArgsInput{
		resolved:    resolved,
		sshPort:     ws.SSHPort,
		publicKey:   publicKey,
		selectedKey: selectedKey,
		hostHome:    e.hostHome,
		agentSock:   liveAgentSocket(),
		uid:         getuid(),
		gid:         getgid(),
	})
	if err := e.docker.CreateContainer(ctx, runArgs); err != nil {
		return nil, err
	}

	if err := e.docker.ConnectNetwork(ctx, info.ContainerName, buildkit.Network); err != nil {
		return nil, err
	}

	if err := e.waitForContainer(ctx, info.ContainerName); err != nil {
		return nil, err
	}
	if err := e.waitForDockerd(ctx, info.ContainerName); err != nil {
		return nil, err
	}

	e.reportProgress("Configuring buildx...")
	if err := e.buildkit.ConfigureBuildx(ctx, info.ContainerName); err != nil {
		return nil, err
	}

	result := &StartResult{SSHPort: ws.SSHPort, Forwards: resolved.Forwards}
	if !opts.NoInit {
		logPath, err := e.runInit(ctx, info)
		result.LogPath = logPath
		if err != nil {
			return nil, err
		}
	}

	e.verifyClone(ctx, info)
	return result, nil
}

// selectKey picks the repository key, records its basename in state, and
// returns the basename.
func (e *Engine) selectKey(ctx context.Context, resolved *config.Resolved, userCfg *config.UserConfig, ws *state.WorkspaceState) string {
	keyPath := e.selector.SelectForRepo(resolved.Repo.Remote, userCfg)
	if keyPath == "" {
		return ws.SelectedKey
	}

	e.logger.Debug("selected ssh key", "key", keyPath)
	selected := filepath.Base(keyPath)
	if selected != ws.SelectedKey {
		if err := e.store.SetSelectedKey(ctx, resolved.Name, selected); err != nil {
			e.logger.Warn("failed to record selected key", "error", err)
		}
	}
	return selected
}

// wireBuildKit restores the shared BuildKit network attachment and buildx
// builder for a resumed container.
func (e *Engine) wireBuildKit(ctx context.Context, container string) error {
	if err := e.buildkit.EnsureShared(ctx); err != nil {
		return err
	}
	if err := e.docker.ConnectNetwork(ctx, container, buildkit.Network); err != nil {
		return err
	}
	return e.buildkit.ConfigureBuildx(ctx, container)
}

// waitForContainer polls `docker exec <container> true` until the container
// accepts execs.
func (e *Engine) waitForContainer(ctx context.Context, container string) error {
	e.reportProgress("Waiting for container...")
	deadline := time.Now().Add(execReadyTimeout)
	for {
		if res := e.docker.TryExec(ctx, container, []string{"true"}, docker.ExecOptions{}); res.Code == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("container %s did not accept exec within %s", container, execReadyTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// waitForDockerd polls in-container `docker info` until the inner daemon
// answers.
func (e *Engine) waitForDockerd(ctx context.Context, container string) error {
	e.reportProgress("Waiting for Docker daemon...")
	deadline := time.Now().Add(dockerdReadyTimeout)
	for {
		if res := e.docker.TryExec(ctx, container, []string{"docker", "info"}, docker.ExecOptions{}); res.Code == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("docker daemon in %s not ready within %s; check `workspace logs %s`", container, dockerdReadyTimeout, strings.TrimPrefix(container, config.ContainerNamePrefix))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// runInit invokes the in-container agent init as the workspace user,
// capturing output to a timestamped host-side log.
func (e *Engine) runInit(ctx context.Context, info Info) (string, error) {
	logsDir := filepath.Join(e.hostHome, ".workspaces", "logs")
	if err := fsutil.EnsureDir(logsDir); err != nil {
		return "", err
	}
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", info.Name, time.Now().Format("2006-01-02T15-04-05")))

	e.reportProgress("Initializing workspace...")
	args := []string{"exec", "-u", "workspace", info.ContainerName, "workspace-internal", "init"}
	if _, err := e.runner.Logged(ctx, "docker", args, logPath, execx.LoggedOptions{}); err != nil {
		return logPath, fmt.Errorf("workspace init failed: %w", err)
	}
	return logPath, nil
}

// verifyClone warns when a configured remote has not produced a git
// checkout at the source mount.
func (e *Engine) verifyClone(ctx context.Context, info Info) {
	rt, err := runtimecfg.Read(info.State.RuntimeConfigPath)
	if err != nil || rt.Workspace.Repo.Remote == "" {
		return
	}
	res := e.docker.TryExec(ctx, info.ContainerName, []string{"test", "-d", containerSourceDir + "/.git"}, docker.ExecOptions{})
	if res.Code != 0 {
		e.logger.Warn("no git checkout at source mount", "container", info.ContainerName, "path", containerSourceDir)
	}
}
