package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/workspace-dev/workspace/internal/execx"
	"github.com/workspace-dev/workspace/internal/fsutil"
	"github.com/workspace-dev/workspace/internal/runtimecfg"
)

// ProxyPlan is what Proxy will do, surfaced so the command can print the
// summary before the tunnel blocks.
type ProxyPlan struct {
	SSHPort  int
	Forwards []int
}

// Summary renders the forward list with consecutive ports collapsed into
// ranges, e.g. "3000, 5000-5003, 8080".
func (p *ProxyPlan) Summary() string {
	return collapseRanges(p.Forwards)
}

// PlanProxy gathers the tunnel parameters for a workspace: the SSH port and
// forwards from state (falling back to the runtime file) and the host-side
// key. Empty forwards or a missing key are errors.
func (e *Engine) PlanProxy(ctx context.Context, name string) (*ProxyPlan, error) {
	info := e.ResolveInfo(name)

	plan := &ProxyPlan{}
	if ws, err := e.store.Workspace(ctx, info.Name); err != nil {
		return nil, err
	} else if ws != nil {
		plan.SSHPort = ws.SSHPort
		plan.Forwards = ws.Forwards
	}

	if plan.SSHPort == 0 {
		rt, err := runtimecfg.Read(info.State.RuntimeConfigPath)
		if err != nil {
			return nil, fmt.Errorf("workspace %s has no recorded state; run `workspace start %s` first", name, name)
		}
		plan.SSHPort = rt.SSH.Port
		plan.Forwards = rt.Forwards
	}

	if len(plan.Forwards) == 0 {
		return nil, fmt.Errorf("workspace %s has no forwards configured", name)
	}
	if !fsutil.PathExists(info.State.KeyPath) {
		return nil, fmt.Errorf("ssh key for workspace %s not found at %s", name, info.State.KeyPath)
	}
	return plan, nil
}

// Proxy blocks running the SSH tunnel for every configured forward.
func (e *Engine) Proxy(ctx context.Context, name string, plan *ProxyPlan) error {
	info := e.ResolveInfo(name)

	args := []string{
		"-i", info.State.KeyPath,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-N",
		"-p", strconv.Itoa(plan.SSHPort),
	}
	for _, port := range plan.Forwards {
		args = append(args, "-L", fmt.Sprintf("127.0.0.1:%d:localhost:%d", port, port))
	}
	args = append(args, "workspace@localhost")

	return e.runner.Streaming(ctx, "ssh", args, execx.StreamingOptions{})
}

// collapseRanges renders ports with consecutive runs shortened to "A-B".
// The input order is preserved; only adjacent ascending runs collapse.
func collapseRanges(ports []int) string {
	if len(ports) == 0 {
		return ""
	}

	var parts []string
	start := ports[0]
	prev := ports[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, p := range ports[1:] {
		if p == prev+1 {
			prev = p
			continue
		}
		flush()
		start, prev = p, p
	}
	flush()
	return strings.Join(parts, ", ")
}
