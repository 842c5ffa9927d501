package cmd

import (
	"github.com/spf13/cobra"
)

var (
	logsTailFlag   int
	logsFollowFlag bool
)

var logsCmd = &cobra.Command{
	Use:   "logs <workspace>",
	Short: "Show workspace container logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := newEngine()
		if err != nil {
			return err
		}
		return eng.Logs(cmd.Context(), args[0], logsTailFlag, logsFollowFlag)
	},
}

func init() {
	logsCmd.Flags().IntVar(&logsTailFlag, "tail", 200, "number of trailing log lines to show")
	logsCmd.Flags().BoolVarP(&logsFollowFlag, "follow", "f", false, "follow log output")
}
