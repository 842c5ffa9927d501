// Package buildctx carries the shared workspace image's build context,
// embedded into the binary and materialized on disk before docker build.
package buildctx

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/workspace-dev/workspace/internal/fsutil"
)

//go:embed image
var imageFS embed.FS

// Materialize writes the embedded build context under baseDir and returns
// the directory to pass to docker build. Files are rewritten on every call
// so upgrades of the binary refresh the context.
func Materialize(baseDir string) (string, error) {
	dir := filepath.Join(baseDir, "buildcontext")
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", err
	}

	err := fs.WalkDir(imageFS, "image", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("image", path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if d.IsDir() {
			return fsutil.EnsureDir(target)
		}

		data, err := imageFS.ReadFile(path)
		if err != nil {
			return err
		}
		mode := os.FileMode(0o644)
		if filepath.Ext(rel) == ".sh" {
			mode = 0o755
		}
		return os.WriteFile(target, data, mode)
	})
	if err != nil {
		return "", fmt.Errorf("materializing build context: %w", err)
	}

	if err := stageAgentBinary(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// stageAgentBinary copies the workspace-internal binary installed next to
// the controller executable into the build context, where the Dockerfile
// picks it up.
func stageAgentBinary(contextDir string) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	src := filepath.Join(filepath.Dir(self), "workspace-internal")
	if !fsutil.PathExists(src) {
		return fmt.Errorf("workspace-internal binary not found at %s (is the agent installed next to the controller?)", src)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading agent binary: %w", err)
	}
	dst := filepath.Join(contextDir, "workspace-internal")
	if err := os.WriteFile(dst, data, 0o755); err != nil {
		return fmt.Errorf("staging agent binary: %w", err)
	}
	return nil
}
