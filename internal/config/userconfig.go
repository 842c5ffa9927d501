package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/workspace-dev/workspace/internal/fsutil"
)

// userConfigTemplate is written on first use. The userscripts directory it
// references holds bootstrap scripts shared across all workspaces.
const userConfigTemplate = `# Workspace user configuration.
#
# Settings here apply to every workspace and merge with each project's
# .workspace.yml (project entries come first).
#
# ssh:
#   defaultKey: ~/.ssh/id_ed25519
#   repos:
#     "git@github.com:myorg/*": ~/.ssh/id_work
#
# forwards:
#   - 9000
#
# mounts:
#   - ~/notes:/home/workspace/notes:ro
#
# bootstrap:
#   scripts:
#     - userscripts
`

// UserConfigDir returns <hostHome>/.workspaces.
func UserConfigDir(hostHome string) string {
	return filepath.Join(hostHome, ".workspaces")
}

// UserConfigPath returns the path of the user config file.
func UserConfigPath(hostHome string) string {
	return filepath.Join(UserConfigDir(hostHome), "config.yml")
}

// UserScriptsDir returns the directory for user bootstrap scripts.
func UserScriptsDir(hostHome string) string {
	return filepath.Join(UserConfigDir(hostHome), "userscripts")
}

// EnsureUserConfig creates ~/.workspaces with the userscripts directory and
// a commented config.yml template on first use. Idempotent.
func EnsureUserConfig(hostHome string) error {
	if err := fsutil.EnsureDir(UserScriptsDir(hostHome)); err != nil {
		return err
	}

	path := UserConfigPath(hostHome)
	if fsutil.PathExists(path) {
		return nil
	}
	if err := os.WriteFile(path, []byte(userConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LoadUserConfig parses ~/.workspaces/config.yml. A missing or empty file
// yields a nil config, which callers treat as "no user settings".
func LoadUserConfig(hostHome string) (*UserConfig, error) {
	path := UserConfigPath(hostHome)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg *UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfigInvalid, path, err)
	}
	return cfg, nil
}
