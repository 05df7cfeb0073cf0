// Command aurorawatch polls the AuroraWatch UK activity feed, stores the
// status history, alerts on the green status, and serves the history over
// GraphQL.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
