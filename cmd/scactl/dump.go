package main

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/kubecomply/scaagent/pkg/intake"
)

func newDumpCmd() *cobra.Command {
	var (
		socketPath string
		firstScan  bool
	)

	cmd := &cobra.Command{
		Use:   "dump <policy-id>",
		Short: "Request a database dump for a policy from a running agent",
		Long:  "Connect to the agent's intake socket and push a dump request for policy-id, replaying its current integrity-store records through the sink.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policyID := args[0]

			conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
			if err != nil {
				return fmt.Errorf("connecting to agent intake socket %s: %w", socketPath, err)
			}
			defer conn.Close()

			flag := "0"
			if firstScan {
				flag = "1"
			}
			line := fmt.Sprintf("%s:%s:%s\n", intake.DumpPrefix, policyID, flag)
			if _, err := conn.Write([]byte(line)); err != nil {
				return fmt.Errorf("sending dump request: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "dump requested for policy %q\n", policyID)
			return nil
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", "/var/run/sca/intake.sock", "Path to the agent's intake Unix socket")
	cmd.Flags().BoolVar(&firstScan, "first-scan", false, "Mark the dump as a first-scan replay, appending a forced summary")

	return cmd
}
