package cmd

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// workspaceRC holds defaults loaded from a .workspacerc TOML file. The file
// is looked up in the current directory first, then the home directory.
type workspaceRC struct {
	// Path is the default project directory (same as --path).
	Path string `toml:"path"`

	// Workspace is the default workspace name for commands that take one.
	Workspace string `toml:"workspace"`
}

// loadWorkspaceRC reads the nearest .workspacerc. Returns nil when no file
// exists; parse errors propagate so typos do not silently disable the file.
func loadWorkspaceRC() (*workspaceRC, error) {
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".workspacerc"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".workspacerc"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		rc := &workspaceRC{}
		if _, err := toml.DecodeFile(path, rc); err != nil {
			return nil, err
		}
		return rc, nil
	}
	return nil, nil
}

// applyRCDefaults fills path and workspace name from .workspacerc when the
// user did not pass them explicitly.
func applyRCDefaults(path *string, name *string) {
	rc, err := loadWorkspaceRC()
	if err != nil {
		logger.Warn("could not load .workspacerc", "error", err)
		return
	}
	if rc == nil {
		return
	}
	if path != nil && *path == "" && rc.Path != "" {
		*path = rc.Path
		logger.Debug("using path from .workspacerc", "path", rc.Path)
	}
	if name != nil && *name == "" && rc.Workspace != "" {
		*name = rc.Workspace
		logger.Debug("using workspace from .workspacerc", "workspace", rc.Workspace)
	}
}
