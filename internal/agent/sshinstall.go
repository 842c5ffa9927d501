package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/workspace-dev/workspace/internal/execx"
	"github.com/workspace-dev/workspace/internal/fsutil"
)

const hostHomeMount = "/host/home"

// installSSHKeys prepares ~/.ssh for the workspace user: copies host keys
// when present, ensures authorized_keys contains the controller's public
// key, writes the client config block for the selected key, and fixes
// modes. Failures to copy host material are non-fatal.
func (a *Agent) installSSHKeys(ctx context.Context, publicKey, selectedKey string) error {
	sshDir := filepath.Join(workspaceHome, ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", sshDir, err)
	}

	a.copyHostKeys(sshDir)

	if err := a.appendAuthorizedKey(sshDir, publicKey); err != nil {
		return err
	}

	if selectedKey != "" && fsutil.PathExists(filepath.Join(sshDir, selectedKey)) {
		if err := a.writeClientConfig(sshDir, selectedKey); err != nil {
			return err
		}
	}

	fixSSHModes(sshDir)

	if _, err := a.runner.Captured(ctx, "chown", []string{"-R", workspaceUser + ":" + workspaceGroup, sshDir}, execx.CapturedOptions{}); err != nil {
		return fmt.Errorf("chowning %s: %w", sshDir, err)
	}
	return nil
}

// copyHostKeys copies /host/home/.ssh/* into the workspace ssh dir.
func (a *Agent) copyHostKeys(sshDir string) {
	hostSSH := filepath.Join(hostHomeMount, ".ssh")
	entries, err := os.ReadDir(hostSSH)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(hostSSH, entry.Name()))
		if err != nil {
			a.logger.Warn("could not copy host ssh file", "file", entry.Name(), "error", err)
			continue
		}
		if err := os.WriteFile(filepath.Join(sshDir, entry.Name()), data, 0o600); err != nil {
			a.logger.Warn("could not write ssh file", "file", entry.Name(), "error", err)
		}
	}
}

// appendAuthorizedKey ensures publicKey is a line of authorized_keys, then
// sorts and deduplicates the file.
func (a *Agent) appendAuthorizedKey(sshDir, publicKey string) error {
	path := filepath.Join(sshDir, "authorized_keys")

	var lines []string
	if data, err := os.ReadFile(path); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
	}

	key := strings.TrimSpace(publicKey)
	if key != "" {
		found := false
		for _, line := range lines {
			if line == key {
				found = true
				break
			}
		}
		if !found {
			lines = append(lines, key)
		}
	}

	sort.Strings(lines)
	lines = dedupeSorted(lines)

	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing authorized_keys: %w", err)
	}
	return nil
}

// dedupeSorted removes adjacent duplicates from a sorted slice.
func dedupeSorted(lines []string) []string {
	out := lines[:0]
	for i, line := range lines {
		if i > 0 && line == lines[i-1] {
			continue
		}
		out = append(out, line)
	}
	return out
}

// writeClientConfig appends a Host * block routing all SSH through the
// selected key. Idempotent by IdentityFile substring check.
func (a *Agent) writeClientConfig(sshDir, selectedKey string) error {
	path := filepath.Join(sshDir, "config")
	marker := "IdentityFile ~/.ssh/" + selectedKey

	if data, err := os.ReadFile(path); err == nil && strings.Contains(string(data), marker) {
		return nil
	}

	block := fmt.Sprintf("\nHost *\n  %s\n  IdentitiesOnly yes\n  AddKeysToAgent yes\n", marker)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening ssh config: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("writing ssh config: %w", err)
	}
	return nil
}

// fixSSHModes sets private keys and authorized_keys to 600 and public
// material (pubs, known_hosts, config) to 644.
func fixSSHModes(sshDir string) {
	entries, err := os.ReadDir(sshDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		mode := os.FileMode(0o600)
		if strings.HasSuffix(name, ".pub") || name == "known_hosts" || name == "config" {
			mode = 0o644
		}
		_ = os.Chmod(filepath.Join(sshDir, name), mode)
	}
}
