package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/workspace-dev/workspace/internal/execx"
	"github.com/workspace-dev/workspace/internal/fsutil"
	"github.com/workspace-dev/workspace/internal/runtimecfg"
)

const lazyVimStarter = "https://github.com/LazyVim/starter"

// installLazyVim makes sure a Neovim config exists: the host's config is
// copied when available, otherwise the LazyVim starter is cloned. A config
// the user already placed in the home volume wins.
func (a *Agent) installLazyVim(ctx context.Context) {
	nvimDir := filepath.Join(workspaceHome, ".config", "nvim")
	if fsutil.PathExists(filepath.Join(nvimDir, "init.lua")) || fsutil.PathExists(filepath.Join(nvimDir, "init.vim")) {
		return
	}

	hostNvim := filepath.Join(hostHomeMount, ".config", "nvim")
	if fsutil.PathExists(hostNvim) {
		if err := fsutil.EnsureDir(filepath.Dir(nvimDir)); err == nil {
			// The host config may contain root-owned cache files; sudo
			// copies it all, then ownership is fixed.
			_, cpErr := a.runner.Captured(ctx, "sudo", []string{"cp", "-r", hostNvim, nvimDir}, execx.CapturedOptions{IgnoreFailure: true})
			if cpErr == nil && fsutil.PathExists(nvimDir) {
				a.rechownToWorkspace(ctx, nvimDir)
				a.logger.Info("copied host neovim config")
				return
			}
		}
	}

	a.logger.Info("installing LazyVim starter")
	if _, err := a.runner.Captured(ctx, "git", []string{"clone", lazyVimStarter, nvimDir}, execx.CapturedOptions{}); err != nil {
		a.logger.Warn("LazyVim install failed", "error", err)
		return
	}
	_ = os.RemoveAll(filepath.Join(nvimDir, ".git"))
	a.rechownToWorkspace(ctx, nvimDir)
}

// rechownToWorkspace fixes ownership of a path for the workspace user.
func (a *Agent) rechownToWorkspace(ctx context.Context, path string) {
	if _, err := a.runner.Captured(ctx, "sudo", []string{"chown", "-R", workspaceUser + ":" + workspaceGroup, path}, execx.CapturedOptions{IgnoreFailure: true}); err != nil {
		a.logger.Warn("could not rechown", "path", path, "error", err)
	}
}

// installDevTools installs the coding agents once each: codex from npm and
// opencode from its release zip for this architecture.
func (a *Agent) installDevTools(ctx context.Context) {
	if _, err := exec.LookPath("codex"); err != nil {
		a.logger.Info("installing codex")
		if _, err := a.runner.Captured(ctx, "npm", []string{"install", "-g", "@openai/codex"}, execx.CapturedOptions{
			Env: map[string]string{"NPM_CONFIG_PREFIX": filepath.Join(workspaceHome, ".npm-global")},
		}); err != nil {
			a.logger.Warn("codex install failed", "error", err)
		}
	}

	if _, err := exec.LookPath("opencode"); err != nil {
		a.installOpencode(ctx)
	}
}

// installOpencode downloads and unpacks the opencode release zip into
// ~/.local/bin.
func (a *Agent) installOpencode(ctx context.Context) {
	arch, ok := opencodeArch(runtime.GOARCH)
	if !ok {
		a.logger.Warn("no opencode build for architecture", "arch", runtime.GOARCH)
		return
	}

	a.logger.Info("installing opencode", "arch", arch)
	url := fmt.Sprintf("https://github.com/sst/opencode/releases/latest/download/opencode-linux-%s.zip", arch)
	zipPath := filepath.Join(os.TempDir(), "opencode.zip")
	if _, err := a.runner.Captured(ctx, "curl", []string{"-fsSL", "-o", zipPath, url}, execx.CapturedOptions{}); err != nil {
		a.logger.Warn("opencode download failed", "error", err)
		return
	}
	defer func() { _ = os.Remove(zipPath) }()

	binDir := filepath.Join(workspaceHome, ".local", "bin")
	if err := fsutil.EnsureDir(binDir); err != nil {
		a.logger.Warn("could not create bin dir", "error", err)
		return
	}
	if _, err := a.runner.Captured(ctx, "unzip", []string{"-o", zipPath, "-d", binDir}, execx.CapturedOptions{}); err != nil {
		a.logger.Warn("opencode unpack failed", "error", err)
		return
	}
	_ = os.Chmod(filepath.Join(binDir, "opencode"), 0o755)
}

// opencodeArch maps Go architecture names to opencode release names.
func opencodeArch(goarch string) (string, bool) {
	switch goarch {
	case "amd64":
		return "x64", true
	case "arm64":
		return "arm64", true
	default:
		return "", false
	}
}

// runBootstrapScripts executes every configured bootstrap script in
// declared order. Directory entries expand to their executable files in
// lexical order. A missing or non-executable script aborts the init with a
// placement hint; so does a non-zero exit.
func (a *Agent) runBootstrapScripts(ctx context.Context, rt *runtimecfg.File) error {
	for _, script := range rt.Bootstrap.Scripts {
		baseDir := sourceMount
		if script.Source == "user" {
			baseDir = userConfigMount
		}
		path := script.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("bootstrap script %s not found; place it under %s (source: %s)", script.Path, baseDir, script.Source)
		}

		if info.IsDir() {
			files, err := fsutil.ListExecutableFiles(path)
			if err != nil {
				return fmt.Errorf("listing bootstrap scripts in %s: %w", path, err)
			}
			for _, file := range files {
				if err := a.runScript(ctx, file); err != nil {
					return err
				}
			}
			continue
		}

		if info.Mode().Perm()&0o111 == 0 {
			return fmt.Errorf("bootstrap script %s is not executable; chmod +x it in the project", script.Path)
		}
		if err := a.runScript(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// runScript executes one bootstrap script with the workspace home as its
// working directory, streaming output so host-side logs capture it.
func (a *Agent) runScript(ctx context.Context, path string) error {
	a.logger.Info("running bootstrap script", "script", path)
	err := a.runner.Streaming(ctx, path, nil, execx.StreamingOptions{
		Dir:    workspaceHome,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("bootstrap script %s failed: %w", path, err)
	}
	return nil
}
