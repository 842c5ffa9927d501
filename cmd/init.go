package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/workspace-dev/workspace/internal/config"
	"github.com/workspace-dev/workspace/internal/fsutil"
)

var initForceFlag bool

// projectConfigTemplate is the starter .workspace.yml. The name comment is
// filled in when the user passes one.
const projectConfigTemplate = `# Workspace configuration for this project.
#
# repo:
#   remote: git@github.com:myorg/myrepo.git
#   branch: main
#
# forwards:
#   - 3000
#   - "8000-8010"
#
# mounts:
#   - ./data:/home/workspace/data
#
# bootstrap:
#   scripts:
#     - scripts/setup.sh
`

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a .workspace.yml in the current directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		path := filepath.Join(cwd, config.ConfigFileName)

		if fsutil.PathExists(path) && !initForceFlag {
			return fmt.Errorf("%s already exists (use -f to overwrite)", path)
		}

		content := projectConfigTemplate
		if len(args) > 0 {
			content = "# workspace: " + args[0] + "\n" + content
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		u.Success("Wrote " + path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForceFlag, "force", "f", false, "overwrite an existing config")
}
