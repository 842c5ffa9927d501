package cmd

import (
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/workspace-dev/workspace/internal/execx"
)

// externalTools are the executables the controller shells out to, paired
// with the argument that prints a version.
var externalTools = []struct {
	name       string
	versionArg string
}{
	{"docker", "--version"},
	{"git", "--version"},
	{"ssh", "-V"},
	{"ssh-keygen", ""},
	{"ssh-keyscan", ""},
	{"ss", "--version"},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the external tools the controller needs are available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()
		runner := execx.New(logger)

		u.Header("Checking external tools")
		missing := 0
		for _, tool := range externalTools {
			path, err := exec.LookPath(tool.name)
			if err != nil {
				u.Error(tool.name + ": not found on PATH")
				missing++
				continue
			}

			version := ""
			if tool.versionArg != "" {
				// ssh prints its version to stderr.
				if res, err := runner.Captured(cmd.Context(), tool.name, []string{tool.versionArg}, execx.CapturedOptions{IgnoreFailure: true}); err == nil {
					out := strings.TrimSpace(res.Stdout)
					if out == "" {
						out = strings.TrimSpace(res.Stderr)
					}
					if idx := strings.Index(out, "\n"); idx >= 0 {
						out = out[:idx]
					}
					version = out
				}
			}
			if version != "" {
				u.Success(tool.name + ": " + version)
			} else {
				u.Success(tool.name + ": " + path)
			}
		}

		if missing > 0 {
			u.Warn("some tools are missing; workspace commands that need them will fail")
		}
		return nil
	},
}
