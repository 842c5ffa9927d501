package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/workspace-dev/workspace/internal/execx"
)

const (
	dockerdLogPath = "/var/log/dockerd.log"

	dockerdWaitTimeout = 30 * time.Second
	superviseInterval  = 10 * time.Second
)

// Entrypoint runs as root and is the container's long-lived main process:
// it syncs the workspace user, installs SSH keys, launches dockerd and
// sshd, and then supervises both while tailing the dockerd log so the
// container's output stream stays useful.
func (a *Agent) Entrypoint(ctx context.Context) error {
	if err := a.syncUser(ctx, os.Getenv("HOST_UID"), os.Getenv("HOST_GID")); err != nil {
		a.logger.Warn("user sync skipped", "error", err)
	}

	if err := a.installSSHKeys(ctx, os.Getenv("SSH_PUBLIC_KEY"), os.Getenv("WORKSPACE_SELECTED_SSH_KEY")); err != nil {
		a.logger.Warn("ssh key install failed", "error", err)
	}

	a.rechownCache(ctx)

	if err := a.startDockerd(ctx); err != nil {
		return err
	}
	if err := a.startSSHD(ctx); err != nil {
		a.logger.Warn("sshd start failed", "error", err)
	}

	// The agent must not exit: dockerd and sshd are children of this
	// process tree and the container dies with PID 1. One goroutine tails
	// the dockerd log to the container output, the other keeps the
	// daemons alive.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.tailDockerdLog(groupCtx)
	})
	group.Go(func() error {
		a.supervise(groupCtx)
		return nil
	})
	return group.Wait()
}

// rechownCache fixes ownership of the cache volume mount, which docker
// creates root-owned on first use.
func (a *Agent) rechownCache(ctx context.Context) {
	cacheDir := filepath.Join(workspaceHome, ".cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		a.logger.Warn("could not create cache dir", "error", err)
		return
	}
	if _, err := a.runner.Captured(ctx, "chown", []string{"-R", workspaceUser + ":" + workspaceGroup, cacheDir}, execx.CapturedOptions{}); err != nil {
		a.logger.Warn("could not rechown cache dir", "error", err)
	}
}

// startDockerd spawns dockerd detached with its output going to the shared
// log file, then waits for `docker version` to succeed. A daemon that never
// answers is fatal; the log tail goes to stderr first.
func (a *Agent) startDockerd(ctx context.Context) error {
	if err := a.spawnDockerd(); err != nil {
		return err
	}

	deadline := time.Now().Add(dockerdWaitTimeout)
	for {
		res, err := a.runner.Captured(ctx, "docker", []string{"version"}, execx.CapturedOptions{IgnoreFailure: true})
		if err == nil && res.Code == 0 {
			a.logger.Info("dockerd is ready")
			return nil
		}
		if time.Now().After(deadline) {
			a.printDockerdLogTail(50)
			return fmt.Errorf("dockerd did not become ready within %s", dockerdWaitTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// spawnDockerd launches dockerd as a detached child piping stdout and
// stderr into the log file.
func (a *Agent) spawnDockerd() error {
	logFile, err := os.OpenFile(dockerdLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening dockerd log: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	cmd := exec.Command("dockerd")
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawning dockerd: %w", err)
	}
	// Reap the child when it exits so restarts do not accumulate zombies.
	go func() { _ = cmd.Wait() }()

	a.logger.Info("spawned dockerd", "pid", cmd.Process.Pid)
	return nil
}

// startSSHD starts the SSH daemon, which backgrounds itself.
func (a *Agent) startSSHD(ctx context.Context) error {
	if _, err := a.runner.Captured(ctx, "/usr/sbin/sshd", nil, execx.CapturedOptions{}); err != nil {
		return err
	}
	a.logger.Info("started sshd")
	return nil
}

// printDockerdLogTail writes the last n log lines to stderr for diagnosis.
func (a *Agent) printDockerdLogTail(n int) {
	data, err := os.ReadFile(dockerdLogPath)
	if err != nil {
		return
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	fmt.Fprintln(os.Stderr, strings.Join(lines, "\n"))
}

// tailDockerdLog blocks streaming the dockerd log to the container output.
func (a *Agent) tailDockerdLog(ctx context.Context) error {
	return a.runner.Streaming(ctx, "tail", []string{"-f", dockerdLogPath}, execx.StreamingOptions{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
}
