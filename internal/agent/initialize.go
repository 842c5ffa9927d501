package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/workspace-dev/workspace/internal/execx"
	"github.com/workspace-dev/workspace/internal/fsutil"
	"github.com/workspace-dev/workspace/internal/runtimecfg"
)

const (
	agentSocketPath = "/ssh-agent"

	sourceMount     = "/workspace/source"
	userConfigMount = "/workspace/userconfig"
)

// Init prepares the workspace: repository clone, shell and git defaults,
// editor config, dev tools, and bootstrap scripts. Most steps are
// individually idempotent; the clone and bootstrap scripts run only until
// the initialization marker exists. The marker is written only on full
// success so a failed init is retried by the next start.
func (a *Agent) Init(ctx context.Context) error {
	if fsutil.PathExists(agentSocketPath) {
		_ = os.Setenv("SSH_AUTH_SOCK", agentSocketPath)
	}

	rt, err := runtimecfg.Read(runtimeConfigPath())
	if err != nil {
		return fmt.Errorf("reading runtime config: %w", err)
	}

	a.copyGitConfig()

	initialized := fsutil.PathExists(filepath.Join(workspaceHome, markerFile))

	if !initialized && rt.Workspace.Repo.Remote != "" {
		if err := a.cloneRepository(ctx, rt); err != nil {
			return err
		}
	}

	a.appendShellExports()
	a.installLazyVim(ctx)
	a.installDevTools(ctx)

	if !initialized {
		if err := a.runBootstrapScripts(ctx, rt); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(workspaceHome, markerFile), nil, 0o644); err != nil {
			return fmt.Errorf("writing initialization marker: %w", err)
		}
		a.logger.Info("workspace initialized", "workspace", rt.Workspace.Name)
	}

	return nil
}

// runtimeConfigPath honors the WORKSPACE_RUNTIME_CONFIG override.
func runtimeConfigPath() string {
	if p := os.Getenv("WORKSPACE_RUNTIME_CONFIG"); p != "" {
		return p
	}
	return runtimecfg.ContainerPath
}

// copyGitConfig carries the host ~/.gitconfig into the workspace home.
func (a *Agent) copyGitConfig() {
	src := filepath.Join(hostHomeMount, ".gitconfig")
	data, err := os.ReadFile(src)
	if err != nil {
		return
	}
	dst := filepath.Join(workspaceHome, ".gitconfig")
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		a.logger.Warn("could not copy .gitconfig", "error", err)
	}
}

// cloneRepository clones the configured remote into the workspace home.
// The first attempt pins the branch; a second attempt drops it so repos
// whose default branch differs still clone. Both failing aborts init.
func (a *Agent) cloneRepository(ctx context.Context, rt *runtimecfg.File) error {
	repo := rt.Workspace.Repo

	env := map[string]string{}
	if key := rt.SelectedKey(); key != "" && fsutil.PathExists(filepath.Join(workspaceHome, ".ssh", key)) {
		env["GIT_SSH_COMMAND"] = sshCommandForKey(key)
	}

	a.ensureKnownHost(ctx, repo.Remote)

	withBranch := !cloneArgsSetBranch(repo.CloneArgs)
	args := append([]string{"clone"}, repo.CloneArgs...)
	if withBranch {
		args = append(args, "--branch", repo.Branch)
	}
	args = append(args, repo.Remote)

	a.logger.Info("cloning repository", "remote", repo.Remote, "branch", repo.Branch)
	_, err := a.runner.Captured(ctx, "git", args, execx.CapturedOptions{Dir: workspaceHome, Env: env})
	if err != nil && withBranch {
		a.logger.Warn("clone with branch failed, retrying without", "branch", repo.Branch)
		retry := append([]string{"clone"}, repo.CloneArgs...)
		retry = append(retry, repo.Remote)
		_, err = a.runner.Captured(ctx, "git", retry, execx.CapturedOptions{Dir: workspaceHome, Env: env})
	}
	if err != nil {
		return fmt.Errorf("cloning %s: %w", repo.Remote, err)
	}

	// Pin the key into the repo config so later git operations inherit it
	// without the environment.
	cloneDir := filepath.Join(workspaceHome, repoBasename(repo.Remote))
	if key := rt.SelectedKey(); key != "" && fsutil.PathExists(cloneDir) {
		if _, err := a.runner.Captured(ctx, "git", []string{"-C", cloneDir, "config", "core.sshCommand", sshCommandForKey(key)}, execx.CapturedOptions{}); err != nil {
			a.logger.Warn("could not set core.sshCommand", "error", err)
		}
	}
	return nil
}

// sshCommandForKey builds the GIT_SSH_COMMAND value for a selected key.
func sshCommandForKey(key string) string {
	return fmt.Sprintf("ssh -i ~/.ssh/%s -F ~/.ssh/config", key)
}

// cloneArgsSetBranch reports whether the configured clone args already pin
// a branch.
func cloneArgsSetBranch(args []string) bool {
	for _, arg := range args {
		if arg == "--branch" || arg == "-b" || strings.HasPrefix(arg, "--branch=") {
			return true
		}
	}
	return false
}

// repoBasename derives the checkout directory name from a remote URL.
func repoBasename(remote string) string {
	base := remote
	if idx := strings.LastIndexAny(base, "/:"); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.TrimSuffix(base, ".git")
}

// ensureKnownHost adds the remote's SSH host to known_hosts via ssh-keyscan
// when it is not already recorded. HTTPS remotes need nothing.
func (a *Agent) ensureKnownHost(ctx context.Context, remote string) {
	host := sshHostOf(remote)
	if host == "" {
		return
	}

	knownHosts := filepath.Join(workspaceHome, ".ssh", "known_hosts")
	if data, err := os.ReadFile(knownHosts); err == nil && strings.Contains(string(data), host) {
		return
	}

	res, err := a.runner.Captured(ctx, "ssh-keyscan", []string{host}, execx.CapturedOptions{IgnoreFailure: true})
	if err != nil || res.Code != 0 || strings.TrimSpace(res.Stdout) == "" {
		a.logger.Warn("ssh-keyscan failed", "host", host)
		return
	}

	f, err := os.OpenFile(knownHosts, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		a.logger.Warn("could not open known_hosts", "error", err)
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = f.WriteString(res.Stdout)
}

// sshHostOf extracts the host from an SSH-style remote. Returns "" for
// non-SSH remotes.
func sshHostOf(remote string) string {
	if strings.HasPrefix(remote, "ssh://") {
		rest := strings.TrimPrefix(remote, "ssh://")
		if at := strings.Index(rest, "@"); at >= 0 {
			rest = rest[at+1:]
		}
		if idx := strings.IndexAny(rest, ":/"); idx >= 0 {
			rest = rest[:idx]
		}
		return rest
	}
	if at := strings.Index(remote, "@"); at >= 0 && strings.Contains(remote, ":") && !strings.Contains(remote, "://") {
		rest := remote[at+1:]
		if idx := strings.Index(rest, ":"); idx >= 0 {
			return rest[:idx]
		}
	}
	return ""
}

// shellExports are appended once to each shell rc file.
var shellExports = []string{
	`export GIT_SSH_COMMAND="ssh -F ~/.ssh/config"`,
	`export PATH="$HOME/.npm-global/bin:$PATH"`,
}

// appendShellExports adds the workspace exports to .bashrc and .zshrc,
// idempotent by substring check.
func (a *Agent) appendShellExports() {
	for _, rc := range []string{".bashrc", ".zshrc"} {
		path := filepath.Join(workspaceHome, rc)
		existing := ""
		if data, err := os.ReadFile(path); err == nil {
			existing = string(data)
		}

		var missing []string
		for _, line := range shellExports {
			if !strings.Contains(existing, line) {
				missing = append(missing, line)
			}
		}
		if len(missing) == 0 {
			continue
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			a.logger.Warn("could not open shell rc", "file", rc, "error", err)
			continue
		}
		if _, err := f.WriteString("\n" + strings.Join(missing, "\n") + "\n"); err != nil {
			a.logger.Warn("could not append shell exports", "file", rc, "error", err)
		}
		_ = f.Close()
	}
}
