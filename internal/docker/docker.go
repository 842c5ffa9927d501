// Package docker wraps the docker CLI with idempotent operations for
// images, networks, volumes, and containers. It never speaks the API
// directly; every operation is defined by what is true after it returns.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/workspace-dev/workspace/internal/execx"
)

// Client shells out to the docker binary.
type Client struct {
	runner *execx.Runner
	logger *slog.Logger
}

// NewClient creates a Client using the given process runner.
func NewClient(runner *execx.Runner, logger *slog.Logger) *Client {
	return &Client{runner: runner, logger: logger}
}

// inspectOK runs `docker <kind> inspect` and reports whether the object
// exists. Non-zero exits mean "absent".
func (c *Client) inspectOK(ctx context.Context, kind, id string) bool {
	res, err := c.runner.Captured(ctx, "docker", []string{kind, "inspect", id}, execx.CapturedOptions{IgnoreFailure: true})
	return err == nil && res.Code == 0
}

// ImageExists reports whether an image with the given tag is present.
func (c *Client) ImageExists(ctx context.Context, tag string) bool {
	return c.inspectOK(ctx, "image", tag)
}

// ContainerExists reports whether a container with the given name exists,
// running or not.
func (c *Client) ContainerExists(ctx context.Context, nameOrID string) bool {
	return c.inspectOK(ctx, "container", nameOrID)
}

// VolumeExists reports whether a named volume exists.
func (c *Client) VolumeExists(ctx context.Context, volume string) bool {
	return c.inspectOK(ctx, "volume", volume)
}

// NetworkExists reports whether a network exists.
func (c *Client) NetworkExists(ctx context.Context, network string) bool {
	return c.inspectOK(ctx, "network", network)
}

// BuildOptions adjusts BuildImage.
type BuildOptions struct {
	NoCache   bool
	BuildArgs map[string]string
}

// BuildImage runs a streaming `docker build`. The tag is validated before
// the build starts so a bad tag fails fast instead of mid-build.
func (c *Client) BuildImage(ctx context.Context, tag, contextDir string, opts BuildOptions) error {
	if _, err := name.NewTag(tag); err != nil {
		return fmt.Errorf("invalid image tag %q: %w", tag, err)
	}

	args := []string{"build", "-t", tag}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	for k, v := range opts.BuildArgs {
		args = append(args, "--build-arg", k+"="+v)
	}
	args = append(args, contextDir)

	if err := c.runner.Streaming(ctx, "docker", args, execx.StreamingOptions{}); err != nil {
		return fmt.Errorf("building image %s: %w", tag, err)
	}
	return nil
}

// CreateContainer runs `docker run` with the fully assembled argument list.
// The caller includes --detach; failures surface verbatim.
func (c *Client) CreateContainer(ctx context.Context, runArgs []string) error {
	args := append([]string{"run"}, runArgs...)
	if _, err := c.runner.Captured(ctx, "docker", args, execx.CapturedOptions{}); err != nil {
		return fmt.Errorf("creating container: %w", err)
	}
	return nil
}

// StartContainer starts a stopped container. Starting an already running
// container is not an error.
func (c *Client) StartContainer(ctx context.Context, nameOrID string) error {
	if _, err := c.runner.Captured(ctx, "docker", []string{"start", nameOrID}, execx.CapturedOptions{}); err != nil {
		return fmt.Errorf("starting container %s: %w", nameOrID, err)
	}
	return nil
}

// StopContainer stops a container. "Already stopped" is not an error path.
func (c *Client) StopContainer(ctx context.Context, nameOrID string) error {
	res, err := c.runner.Captured(ctx, "docker", []string{"stop", nameOrID}, execx.CapturedOptions{IgnoreFailure: true})
	if err != nil {
		return err
	}
	if res.Code != 0 && !strings.Contains(res.Stderr, "is not running") && !strings.Contains(res.Stderr, "No such container") {
		return fmt.Errorf("stopping container %s: %s", nameOrID, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// RemoveContainer removes a container; with force it also kills a running
// one. A missing container is fine.
func (c *Client) RemoveContainer(ctx context.Context, nameOrID string, force bool) error {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, nameOrID)
	res, err := c.runner.Captured(ctx, "docker", args, execx.CapturedOptions{IgnoreFailure: true})
	if err != nil {
		return err
	}
	if res.Code != 0 && !strings.Contains(res.Stderr, "No such container") {
		return fmt.Errorf("removing container %s: %s", nameOrID, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// RemoveVolume removes a named volume; missing volumes are fine.
func (c *Client) RemoveVolume(ctx context.Context, volume string) error {
	res, err := c.runner.Captured(ctx, "docker", []string{"volume", "rm", volume}, execx.CapturedOptions{IgnoreFailure: true})
	if err != nil {
		return err
	}
	if res.Code != 0 && !strings.Contains(res.Stderr, "no such volume") && !strings.Contains(res.Stderr, "No such volume") {
		return fmt.Errorf("removing volume %s: %s", volume, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// CreateVolume creates a named volume if it does not already exist.
func (c *Client) CreateVolume(ctx context.Context, volume string) error {
	if c.VolumeExists(ctx, volume) {
		return nil
	}
	if _, err := c.runner.Captured(ctx, "docker", []string{"volume", "create", volume}, execx.CapturedOptions{}); err != nil {
		return fmt.Errorf("creating volume %s: %w", volume, err)
	}
	return nil
}

// CreateNetwork creates a network if it does not already exist.
func (c *Client) CreateNetwork(ctx context.Context, network string) error {
	if c.NetworkExists(ctx, network) {
		return nil
	}
	if _, err := c.runner.Captured(ctx, "docker", []string{"network", "create", network}, execx.CapturedOptions{}); err != nil {
		return fmt.Errorf("creating network %s: %w", network, err)
	}
	return nil
}

// RemoveNetwork removes a network; missing networks are fine.
func (c *Client) RemoveNetwork(ctx context.Context, network string) error {
	res, err := c.runner.Captured(ctx, "docker", []string{"network", "rm", network}, execx.CapturedOptions{IgnoreFailure: true})
	if err != nil {
		return err
	}
	if res.Code != 0 && !strings.Contains(res.Stderr, "not found") {
		return fmt.Errorf("removing network %s: %s", network, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// ConnectNetwork attaches a container to a network. The "already exists in
// network" error is swallowed so concurrent starts stay benign.
func (c *Client) ConnectNetwork(ctx context.Context, container, network string) error {
	res, err := c.runner.Captured(ctx, "docker", []string{"network", "connect", network, container}, execx.CapturedOptions{IgnoreFailure: true})
	if err != nil {
		return err
	}
	if res.Code != 0 && !strings.Contains(res.Stderr, "already exists in network") {
		return fmt.Errorf("connecting %s to %s: %s", container, network, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// ExecOptions adjusts Exec.
type ExecOptions struct {
	User string
	Env  map[string]string
}

// Exec runs a command inside a container and captures its output.
func (c *Client) Exec(ctx context.Context, container string, argv []string, opts ExecOptions) (*execx.Result, error) {
	args := []string{"exec"}
	if opts.User != "" {
		args = append(args, "-u", opts.User)
	}
	for k, v := range opts.Env {
		if v == "" {
			continue
		}
		args = append(args, "-e", k+"="+v)
	}
	args = append(args, container)
	args = append(args, argv...)
	return c.runner.Captured(ctx, "docker", args, execx.CapturedOptions{})
}

// TryExec is Exec with failure tolerated; the result carries the exit code.
func (c *Client) TryExec(ctx context.Context, container string, argv []string, opts ExecOptions) *execx.Result {
	args := []string{"exec"}
	if opts.User != "" {
		args = append(args, "-u", opts.User)
	}
	args = append(args, container)
	args = append(args, argv...)
	res, err := c.runner.Captured(ctx, "docker", args, execx.CapturedOptions{IgnoreFailure: true})
	if err != nil {
		return &execx.Result{Code: -1}
	}
	return res
}

// Logs runs `docker logs` streaming to the process stdio.
func (c *Client) Logs(ctx context.Context, container string, tail int, follow bool) error {
	args := []string{"logs", "--tail", fmt.Sprintf("%d", tail)}
	if follow {
		args = append(args, "--follow")
	}
	args = append(args, container)
	return c.runner.Streaming(ctx, "docker", args, execx.StreamingOptions{})
}
