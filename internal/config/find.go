package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/workspace-dev/workspace/internal/execx"
	"github.com/workspace-dev/workspace/internal/fsutil"
)

// DiscoverRepoRoot asks the VCS for the repository root containing dir.
// Falls back to dir itself when git is unavailable or dir is not inside a
// repository.
func DiscoverRepoRoot(ctx context.Context, runner *execx.Runner, dir string) string {
	res, err := runner.Captured(ctx, "git", []string{"rev-parse", "--show-toplevel"}, execx.CapturedOptions{
		Dir:           dir,
		IgnoreFailure: true,
	})
	if err != nil || res.Code != 0 {
		return dir
	}
	root := strings.TrimSpace(res.Stdout)
	if root == "" {
		return dir
	}
	return root
}

// FindOptions adjusts FindWorkspaceDir.
type FindOptions struct {
	// Path overrides the starting directory (defaults to the cwd).
	Path string

	// RepoRoot and HostHome bound the upward walk, alongside the
	// filesystem root.
	RepoRoot string
	HostHome string
}

// FindWorkspaceDir walks up from the starting directory looking for
// .workspace.yml. The walk stops after checking the repository root, the
// host home, or the filesystem root, whichever comes first. Returns the
// directory containing the config file, or ErrConfigMissing.
func FindWorkspaceDir(opts FindOptions) (string, error) {
	start := opts.Path
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		start = cwd
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for {
		if fsutil.PathExists(filepath.Join(dir, ConfigFileName)) {
			return dir, nil
		}
		if dir == opts.RepoRoot || dir == opts.HostHome {
			return "", fmt.Errorf("%w (searched up from %s)", ErrConfigMissing, start)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched up from %s)", ErrConfigMissing, start)
		}
		dir = parent
	}
}

// LoadProjectConfig parses the .workspace.yml in dir. An empty document
// yields a nil config, which Resolve rejects.
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg *ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfigInvalid, path, err)
	}
	return cfg, nil
}
