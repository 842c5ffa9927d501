package engine

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/workspace-dev/workspace/internal/docker"
	"github.com/workspace-dev/workspace/internal/execx"
)

// ShellOptions controls Shell.
type ShellOptions struct {
	User    string
	Command string
}

// Shell opens an interactive shell (or runs a one-off command) inside a
// running workspace container.
func (e *Engine) Shell(ctx context.Context, name string, opts ShellOptions) error {
	info := e.ResolveInfo(name)

	details, err := e.docker.InspectContainer(ctx, info.ContainerName)
	if err != nil {
		return err
	}
	if details == nil || !details.State.IsRunning() {
		return fmt.Errorf("workspace %s is not running; start it with `workspace start %s`", name, name)
	}

	user := opts.User
	if user == "" {
		user = "workspace"
	}

	shell := e.detectLoginShell(ctx, info.ContainerName, user)

	args := []string{"exec"}
	if opts.Command != "" {
		args = append(args, "-i")
	} else {
		args = append(args, "-it")
	}
	args = append(args, "-u", user)
	if term := os.Getenv("TERM"); term != "" {
		args = append(args, "-e", "TERM="+term)
	}
	args = append(args, info.ContainerName, shell)
	if opts.Command != "" {
		args = append(args, "-c", opts.Command)
	}

	return e.runner.Streaming(ctx, "docker", args, execx.StreamingOptions{})
}

// detectLoginShell reads the user's login shell from getent passwd inside
// the container, defaulting to /bin/bash.
func (e *Engine) detectLoginShell(ctx context.Context, container, user string) string {
	res := e.docker.TryExec(ctx, container, []string{"getent", "passwd", user}, docker.ExecOptions{})
	if res.Code != 0 {
		return "/bin/bash"
	}
	// Format: username:x:uid:gid:comment:home:shell
	parts := strings.Split(strings.TrimSpace(res.Stdout), ":")
	if len(parts) >= 7 && parts[6] != "" {
		return parts[6]
	}
	return "/bin/bash"
}
