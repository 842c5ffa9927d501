// Package sshkey chooses the private key used for repository access and
// manages the per-workspace SSH host key pair.
package sshkey

import (
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/crypto/ssh/agent"

	"github.com/workspace-dev/workspace/internal/config"
	"github.com/workspace-dev/workspace/internal/fsutil"
)

// wellKnownKeys are tried in order by the default-key heuristic.
var wellKnownKeys = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// skippedSSHFiles never count as private keys during the directory scan.
var skippedSSHFiles = map[string]bool{
	"config":          true,
	"known_hosts":     true,
	"authorized_keys": true,
}

// Selector picks a private key for a repository URL.
type Selector struct {
	home   string
	logger *slog.Logger

	// agentIdentities lists identity comments from the running SSH agent.
	// It is a field so tests can substitute fixtures.
	agentIdentities func() []string
}

// NewSelector creates a Selector for the given host home directory.
func NewSelector(home string, logger *slog.Logger) *Selector {
	s := &Selector{home: home, logger: logger}
	s.agentIdentities = s.listAgentIdentities
	return s
}

// SelectForRepo returns the private key path for repoURL, or "" when no key
// applies. Explicit ssh.repos rules win: an exact pattern match first, then
// the first declared wildcard pattern that matches. Without a rule match the
// default-key heuristic applies.
func (s *Selector) SelectForRepo(repoURL string, cfg *config.UserConfig) string {
	if cfg != nil && len(cfg.SSH.Repos) > 0 && repoURL != "" {
		for _, rule := range cfg.SSH.Repos {
			if rule.Pattern == repoURL {
				if key := s.resolveConfiguredKey(rule.KeyPath); key != "" {
					return key
				}
			}
		}
		for _, rule := range cfg.SSH.Repos {
			if wildcardMatch(rule.Pattern, repoURL) {
				if key := s.resolveConfiguredKey(rule.KeyPath); key != "" {
					return key
				}
			}
		}
	}

	var defaultKey string
	if cfg != nil {
		defaultKey = cfg.SSH.DefaultKey
	}
	return s.selectDefaultKey(defaultKey)
}

// selectDefaultKey applies the fallback chain: the configured default key,
// the first agent identity backed by an on-disk private file, the well-known
// key names, then a scan of ~/.ssh for anything containing "PRIVATE KEY".
func (s *Selector) selectDefaultKey(configured string) string {
	if configured != "" {
		if key := s.resolveConfiguredKey(configured); key != "" {
			return key
		}
	}

	for _, comment := range s.agentIdentities() {
		candidate := s.expandPath(comment)
		if fsutil.PathExists(candidate) {
			return candidate
		}
	}

	sshDir := filepath.Join(s.home, ".ssh")
	for _, name := range wellKnownKeys {
		path := filepath.Join(sshDir, name)
		if fsutil.PathExists(path) {
			return path
		}
	}

	return s.scanForPrivateKey(sshDir)
}

// resolveConfiguredKey expands a configured key path and verifies it exists.
// A configured key that is missing on disk is a warning, not an error.
func (s *Selector) resolveConfiguredKey(path string) string {
	resolved := s.expandPath(path)
	if !fsutil.PathExists(resolved) {
		s.logger.Warn("configured SSH key does not exist, ignoring", "key", resolved)
		return ""
	}
	return resolved
}

// expandPath normalizes "~/" prefixes and resolves relative paths against
// the invoking directory.
func (s *Selector) expandPath(path string) string {
	if path == "~" {
		return s.home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(s.home, path[2:])
	}
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err == nil {
			return abs
		}
	}
	return path
}

// listAgentIdentities returns identity comments from the SSH agent when
// SSH_AUTH_SOCK points at a live socket.
func (s *Selector) listAgentIdentities() []string {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		s.logger.Debug("ssh agent socket not reachable", "socket", sock, "error", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		s.logger.Debug("listing ssh agent identities failed", "error", err)
		return nil
	}
	comments := make([]string, 0, len(keys))
	for _, key := range keys {
		if key.Comment != "" {
			comments = append(comments, key.Comment)
		}
	}
	return comments
}

// scanForPrivateKey returns the first file in dir that contains a private
// key marker and is not a known non-key file.
func (s *Selector) scanForPrivateKey(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if skippedSSHFiles[name] || strings.HasSuffix(name, ".pub") {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if strings.Contains(string(data), "PRIVATE KEY") {
			return path
		}
	}
	return ""
}

// wildcardMatch reports whether a "*"-wildcard pattern accepts the URL.
// All other regex metacharacters in the pattern match literally.
func wildcardMatch(pattern, url string) bool {
	if !strings.Contains(pattern, "*") {
		return false
	}
	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(url)
}
