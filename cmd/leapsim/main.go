// Package main provides the CLI for the LeapSim simulation orchestrator.
package main

import (
	"os"

	"github.com/leapstack-labs/leapsim/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
