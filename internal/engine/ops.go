package engine

import (
	"context"
	"fmt"

	"github.com/workspace-dev/workspace/internal/docker"
	"github.com/workspace-dev/workspace/internal/runtimecfg"
	"github.com/workspace-dev/workspace/internal/state"
)

// Stop stops a running workspace container. Missing or already stopped
// containers produce a diagnostic, never an error.
func (e *Engine) Stop(ctx context.Context, name string) (string, error) {
	info := e.ResolveInfo(name)

	details, err := e.docker.InspectContainer(ctx, info.ContainerName)
	if err != nil {
		return "", err
	}
	if details == nil {
		return fmt.Sprintf("no container for workspace %s", name), nil
	}
	if !details.State.IsRunning() {
		return fmt.Sprintf("workspace %s is already stopped", name), nil
	}

	if err := e.docker.StopContainer(ctx, info.ContainerName); err != nil {
		return "", err
	}
	return "", nil
}

// DestroyOptions controls Destroy.
type DestroyOptions struct {
	KeepVolumes bool
}

// Destroy removes a workspace's container, named volumes (unless kept), and
// state record. Missing pieces are non-fatal.
func (e *Engine) Destroy(ctx context.Context, name string, opts DestroyOptions) error {
	info := e.ResolveInfo(name)

	e.reportProgress("Removing container " + info.ContainerName + "...")
	if err := e.docker.RemoveContainer(ctx, info.ContainerName, true); err != nil {
		e.logger.Warn("failed to remove container", "container", info.ContainerName, "error", err)
	}

	if !opts.KeepVolumes {
		for _, vol := range Volumes(info.ContainerName) {
			if err := e.docker.RemoveVolume(ctx, vol); err != nil {
				e.logger.Warn("failed to remove volume", "volume", vol, "error", err)
			}
		}
	}

	return e.store.RemoveWorkspaceState(ctx, info.Name)
}

// StatusReport aggregates everything the status command prints.
type StatusReport struct {
	Name      string
	Container *docker.ContainerDetails
	State     *state.WorkspaceState
	Runtime   *runtimecfg.File
}

// Status inspects the container and loads the state and runtime records for
// a workspace. Missing pieces are nil, not errors.
func (e *Engine) Status(ctx context.Context, name string) (*StatusReport, error) {
	info := e.ResolveInfo(name)

	details, err := e.docker.InspectContainer(ctx, info.ContainerName)
	if err != nil {
		return nil, err
	}
	ws, err := e.store.Workspace(ctx, info.Name)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{Name: name, Container: details, State: ws}
	if rt, err := runtimecfg.Read(info.State.RuntimeConfigPath); err == nil {
		report.Runtime = rt
	}
	return report, nil
}

// Logs streams container logs to the process stdio.
func (e *Engine) Logs(ctx context.Context, name string, tail int, follow bool) error {
	info := e.ResolveInfo(name)
	if !e.docker.ContainerExists(ctx, info.ContainerName) {
		return fmt.Errorf("no container for workspace %s", name)
	}
	return e.docker.Logs(ctx, info.ContainerName, tail, follow)
}
