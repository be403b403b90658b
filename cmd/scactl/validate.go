package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubecomply/scaagent/pkg/policy"
)

func newValidateCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "validate <policy-file>...",
		Short: "Parse and validate one or more SCA policy files",
		Long:  "Load each policy file through the same loader the agent uses and report parse or structural errors without running any checks.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := &policy.YAMLLoader{Remote: remote}

			var failed int
			for _, path := range args {
				p, err := loader.Load(path)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK   %s: policy %q (%d checks)\n", path, p.ID, len(p.Checks))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d policy files failed validation", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Mark policies as remote-sourced, gating the command rule the same way the agent does")

	return cmd
}
