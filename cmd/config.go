package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/workspace-dev/workspace/internal/runtimecfg"
)

var configCmd = &cobra.Command{
	Use:   "config <workspace>",
	Short: "Print the workspace's runtime configuration JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := newEngine()
		if err != nil {
			return err
		}

		info := eng.ResolveInfo(args[0])
		rt, err := runtimecfg.Read(info.State.RuntimeConfigPath)
		if err != nil {
			return fmt.Errorf("workspace %s has no runtime config; run `workspace start %s` first", args[0], args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rt)
	},
}
