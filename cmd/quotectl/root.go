package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd represents the base command when called without any subcommands
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quotectl",
		Short: "Operator tools for QuoteBuilder",
		Long: `quotectl runs the export pricing solver offline and mints access tokens
for the QuoteBuilder API using the service configuration.`,
		SilenceUsage: true,
	}
	root.AddCommand(newCalcCmd(), newTokenCmd())
	return root
}
