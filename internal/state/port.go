package state

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/workspace-dev/workspace/internal/execx"
)

// firstSSHPort is the lowest SSH port a workspace may be assigned.
const firstSSHPort = 2300

// findAvailableSSHPort returns the first port at or above firstSSHPort that
// no workspace record claims and nothing on the host is listening on.
func (s *Store) findAvailableSSHPort(ctx context.Context, st *File) (int, error) {
	used := make(map[int]bool, len(st.Workspaces))
	for _, ws := range st.Workspaces {
		used[ws.SSHPort] = true
	}
	listening := s.listeningPorts(ctx)

	for port := firstSSHPort; ; port++ {
		if used[port] || listening[port] {
			continue
		}
		return port, nil
	}
}

// probeListeningPorts lists host TCP listen ports via `ss -tlnH`. A failed
// probe yields an empty set; the kernel refuses the bind later if we guess
// wrong.
func probeListeningPorts(ctx context.Context, runner *execx.Runner, logger *slog.Logger) map[int]bool {
	res, err := runner.Captured(ctx, "ss", []string{"-tlnH"}, execx.CapturedOptions{IgnoreFailure: true})
	if err != nil || res.Code != 0 {
		logger.Debug("ss probe failed, assuming no listeners", "error", err)
		return map[int]bool{}
	}
	return parseListenPorts(res.Stdout)
}

// parseListenPorts extracts local ports from `ss -tlnH` output. Each line
// looks like:
//
//	LISTEN 0 4096 127.0.0.1:2306 0.0.0.0:*
func parseListenPorts(out string) map[int]bool {
	ports := map[int]bool{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		local := fields[3]
		idx := strings.LastIndex(local, ":")
		if idx < 0 {
			continue
		}
		port, err := strconv.Atoi(local[idx+1:])
		if err != nil || port <= 0 {
			continue
		}
		ports[port] = true
	}
	return ports
}

// String renders the file for debug logging.
func (f *File) String() string {
	return fmt.Sprintf("state{workspaces: %d, lastBuild: %s}", len(f.Workspaces), f.SharedImage.LastBuildAt)
}
