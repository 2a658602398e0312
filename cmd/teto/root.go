package main

import (
	"github.com/spf13/cobra"

	"github.com/kazuvin/teto/internal/logging"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "teto",
		Short:         "Compile declarative video scripts and render them",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newCacheCmd())
	return root
}
