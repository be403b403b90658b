// Package main is the entrypoint for scactl, the SCA agent's operator
// CLI: validate a policy file, run a one-shot scan, or push a dump
// request to a running agent.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scactl",
		Short:         "scactl - Security Configuration Assessment control tool",
		Long:          `scactl validates SCA policy files and runs one-shot scans outside the daemon's schedule.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
