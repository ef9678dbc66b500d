package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sinteflake",
		Short:         "Scrambled, time-ordered 64-bit ID generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "sinteflake", "config file name without extension")
	root.PersistentFlags().StringSlice("config-path", []string{".", "./config"}, "config search paths")

	root.AddCommand(
		newGenerateCmd(),
		newDecodeCmd(),
		newTokenCmd(),
		newServeCmd(),
	)
	return root
}
