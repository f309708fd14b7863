// Package cmd defines the CLI commands for the rosterwatch executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rosterwatch",
		Short: "Autonomous monitor for roster-availability signals",
		Long: `rosterwatch continuously scans configured news sources for roster
availability events (absences, suspensions, lineup changes), scores and
cross-validates them, and exposes the resulting signals through a bounded
discovery queue and an introspection API.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./rosterwatch.yaml)")

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newCheckCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat("rosterwatch.yaml"); err == nil {
		return "rosterwatch.yaml"
	}
	return ""
}
