// Package buildkit manages the shared buildkitd daemon all workspaces use
// for image builds, plus the per-workspace buildx builder bound to it.
package buildkit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	bkclient "github.com/moby/buildkit/client"

	"github.com/workspace-dev/workspace/internal/docker"
)

// Shared infrastructure names. One of each exists per host, independent of
// any individual workspace.
const (
	Network   = "workspace-internal-buildnet"
	Volume    = "workspace-internal-buildkit-cache"
	Container = "workspace-internal-buildkitd"
	Port      = 1234

	// BuilderName is the per-workspace buildx builder bound to the shared
	// daemon.
	BuilderName = "workspace-internal-builder"

	image = "moby/buildkit:latest"
)

// readyTimeout bounds the post-creation wait for buildkitd to open its
// socket. The daemon usually answers within the first two seconds.
const readyTimeout = 15 * time.Second

// Manager ensures the shared BuildKit infrastructure exists and wires
// workspace containers to it.
type Manager struct {
	docker *docker.Client
	logger *slog.Logger

	// probe checks whether buildkitd answers on addr. Swappable in tests.
	probe func(ctx context.Context, addr string) error
}

// NewManager creates a Manager.
func NewManager(d *docker.Client, logger *slog.Logger) *Manager {
	return &Manager{
		docker: d,
		logger: logger,
		probe:  probeDaemon,
	}
}

// EnsureShared guarantees that after it returns the shared network and
// cache volume exist and a privileged buildkitd container is running on
// that network with the volume mounted at /var/lib/buildkit, listening on
// loopback port 1234.
func (m *Manager) EnsureShared(ctx context.Context) error {
	if err := m.docker.CreateNetwork(ctx, Network); err != nil {
		return err
	}
	if err := m.docker.CreateVolume(ctx, Volume); err != nil {
		return err
	}

	details, err := m.docker.InspectContainer(ctx, Container)
	if err != nil {
		return err
	}

	created := false
	switch {
	case details == nil:
		m.logger.Debug("creating shared buildkitd container")
		runArgs := []string{
			"--detach",
			"--name", Container,
			"--privileged",
			"--restart", "unless-stopped",
			"--network", Network,
			"-v", Volume + ":/var/lib/buildkit",
			"-p", fmt.Sprintf("127.0.0.1:%d:%d", Port, Port),
			image,
			"--addr", fmt.Sprintf("tcp://0.0.0.0:%d", Port),
		}
		if err := m.docker.CreateContainer(ctx, runArgs); err != nil {
			return fmt.Errorf("starting buildkitd: %w", err)
		}
		created = true
	case !details.State.IsRunning():
		m.logger.Debug("starting stopped buildkitd container")
		if err := m.docker.StartContainer(ctx, Container); err != nil {
			return err
		}
		created = true
	}

	if created {
		if err := m.waitReady(ctx); err != nil {
			return err
		}
	}
	return nil
}

// waitReady gives the daemon a 2 s grace period to open its socket, then
// polls it over its loopback TCP address until it lists workers or the
// timeout elapses.
func (m *Manager) waitReady(ctx context.Context) error {
	addr := fmt.Sprintf("tcp://127.0.0.1:%d", Port)
	deadline := time.Now().Add(readyTimeout)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
	}
	for {
		err := m.probe(ctx, addr)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("buildkitd did not become ready within %s: %w", readyTimeout, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// probeDaemon asks buildkitd for its worker list, the cheapest round trip
// that proves the daemon is serving.
func probeDaemon(ctx context.Context, addr string) error {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := bkclient.New(probeCtx, addr)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	_, err = c.ListWorkers(probeCtx)
	return err
}

// ConfigureBuildx recreates the remote buildx builder inside a workspace
// container, as the workspace user, bound to the shared daemon over the
// build network.
func (m *Manager) ConfigureBuildx(ctx context.Context, container string) error {
	opts := docker.ExecOptions{User: "workspace"}

	// A builder left over from a previous start may point at a dead
	// endpoint; drop it first.
	_ = m.docker.TryExec(ctx, container, []string{"docker", "buildx", "rm", BuilderName}, opts)

	endpoint := fmt.Sprintf("tcp://%s:%d", Container, Port)
	if _, err := m.docker.Exec(ctx, container, []string{
		"docker", "buildx", "create",
		"--name", BuilderName,
		"--driver", "remote",
		endpoint,
		"--use",
	}, opts); err != nil {
		return fmt.Errorf("creating buildx builder: %w", err)
	}

	if _, err := m.docker.Exec(ctx, container, []string{"docker", "buildx", "inspect", "--bootstrap"}, opts); err != nil {
		return fmt.Errorf("bootstrapping buildx builder: %w", err)
	}
	return nil
}

// Clean removes the shared daemon, network, and cache volume.
func (m *Manager) Clean(ctx context.Context) error {
	if err := m.docker.RemoveContainer(ctx, Container, true); err != nil {
		return err
	}
	if err := m.docker.RemoveNetwork(ctx, Network); err != nil {
		return err
	}
	return m.docker.RemoveVolume(ctx, Volume)
}
