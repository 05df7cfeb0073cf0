package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aurorawatch",
		Short: "AuroraWatch UK status ingestion and alerting",
		Long: `aurorawatch polls the AuroraWatch UK summary activity feed, upserts every
observation into the configured store, publishes a digest when the green
status appears in the last six hours, and serves the history over GraphQL.

Configuration is read from environment variables.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newPollCmd(),
		newEvaluateCmd(),
		newValidateCmd(),
	)
	return root
}
