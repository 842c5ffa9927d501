package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy <workspace>",
	Short: "Tunnel the configured forwards over SSH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		eng, _, err := newEngine()
		if err != nil {
			return err
		}

		plan, err := eng.PlanProxy(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		u.Println(fmt.Sprintf("Forwarding %s via 127.0.0.1 (ssh port %d); Ctrl-C to stop", plan.Summary(), plan.SSHPort))
		return eng.Proxy(cmd.Context(), args[0], plan)
	},
}
