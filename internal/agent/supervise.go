package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// supervise wakes every 10 seconds and restarts dockerd or sshd when the
// process has disappeared. It only returns when the context is canceled.
func (a *Agent) supervise(ctx context.Context) {
	ticker := time.NewTicker(superviseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !processRunning("dockerd") {
			a.logger.Warn("dockerd is gone, restarting")
			if err := a.spawnDockerd(); err != nil {
				a.logger.Error("dockerd restart failed", "error", err)
			}
		}
		if !processRunning("sshd") {
			a.logger.Warn("sshd is gone, restarting")
			if err := a.startSSHD(ctx); err != nil {
				a.logger.Error("sshd restart failed", "error", err)
			}
		}
	}
}

// processRunning scans /proc for a process whose comm matches name.
func processRunning(name string) bool {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() || !isNumeric(entry.Name()) {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == name {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
