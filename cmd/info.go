package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <workspace>",
	Short: "Show resolved paths and state for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		eng, store, err := newEngine()
		if err != nil {
			return err
		}

		info := eng.ResolveInfo(args[0])
		u.Header("Workspace " + info.Name)
		u.Keyval("Container", info.ContainerName)
		u.Keyval("State dir", info.State.Root)
		u.Keyval("SSH key", info.State.KeyPath)
		u.Keyval("Runtime", info.State.RuntimeConfigPath)

		ws, err := store.Workspace(cmd.Context(), info.Name)
		if err != nil {
			return err
		}
		if ws == nil {
			u.Dim("  no state record (never started)")
			return nil
		}
		u.Keyval("SSH port", fmt.Sprintf("%d", ws.SSHPort))
		u.Keyval("Config dir", ws.ConfigDir)
		if ws.SelectedKey != "" {
			u.Keyval("Key", ws.SelectedKey)
		}
		return nil
	},
}
