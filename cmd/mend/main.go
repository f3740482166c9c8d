package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mend",
	Short: "Mend - self-healing control loop for test infrastructure",
	Long: `Mend watches a fleet of workers and the infrastructure they depend
on, detects structural vulnerabilities (single points of failure,
bottlenecks, cascading failures, unreachable resources), and heals them
through declared playbooks and worker commands.

Safety comes from per-resource coordination locks, action cooldowns and
a per-cycle action cap, never from serializing the loop.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Mend version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(playbookCmd)
	rootCmd.AddCommand(fleetCmd)
	rootCmd.AddCommand(historyCmd)
}
