package cmd

import (
	"github.com/spf13/cobra"
)

var buildNoCacheFlag bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the shared workspace image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		eng, _, err := newEngine()
		if err != nil {
			return err
		}

		u.Header("Building shared image")

		progress := u.StartProgress()
		defer progress.Done()
		eng.SetProgress(progress.Update)

		err = eng.BuildSharedImage(cmd.Context(), buildNoCacheFlag)
		progress.Done()
		if err != nil {
			return err
		}
		u.Success("Image built")
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildNoCacheFlag, "no-cache", false, "build without the docker cache")
}
