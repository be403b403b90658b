package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kubecomply/scaagent/pkg/check"
	"github.com/kubecomply/scaagent/pkg/policy"
	"github.com/kubecomply/scaagent/pkg/probe"
	"github.com/kubecomply/scaagent/pkg/report"
	"github.com/kubecomply/scaagent/pkg/rule"
)

type scanFlags struct {
	format          string
	output          string
	remote          bool
	skipNFS         bool
	remoteCommands  bool
	commandsTimeout time.Duration
	verbose         bool
}

func newScanCmd() *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan <policy-file>",
		Short: "Run a one-shot scan of a policy file outside the daemon's schedule",
		Long:  "Load and evaluate a single policy file's checks against the local machine, printing a report without touching the integrity store or sink.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "table", "Output format: table, json")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&flags.remote, "remote", false, "Evaluate as a remote-sourced policy, gating the command rule")
	cmd.Flags().BoolVar(&flags.skipNFS, "skip-nfs", false, "Skip NFS-mounted paths in directory rules")
	cmd.Flags().BoolVar(&flags.remoteCommands, "remote-commands", false, "Allow command rules in remote policies")
	cmd.Flags().DurationVar(&flags.commandsTimeout, "commands-timeout", 30*time.Second, "Timeout for command rule execution")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	return cmd
}

func runScan(cmd *cobra.Command, flags *scanFlags, policyPath string) error {
	logLevel := slog.LevelInfo
	if flags.verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	reportFormat, err := report.ParseFormat(flags.format)
	if err != nil {
		return err
	}

	loader := &policy.YAMLLoader{Remote: flags.remote}
	p, err := loader.Load(policyPath)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	caps := rule.Capabilities{
		SkipNFS:         flags.skipNFS,
		RemoteCommands:  flags.remoteCommands,
		CommandsTimeout: flags.commandsTimeout,
	}
	if p.Requirements != nil {
		rc := &rule.Context{Vars: p.Variables, Processes: probe.NewProcessLister(), Remote: p.Remote, Logger: logger, Caps: caps}
		outcome := check.Evaluate(ctx, *p.Requirements, rc)
		if outcome.Verdict != policy.Found {
			logger.Info("policy requirements not met, nothing to scan", "policy_id", p.ID, "verdict", outcome.Verdict)
			return nil
		}
	}

	result := &report.ScanResult{PolicyID: p.ID, Policy: p.Name}
	for _, c := range p.Checks {
		rc := &rule.Context{Vars: p.Variables, Processes: probe.NewProcessLister(), Remote: p.Remote, Logger: logger, Caps: caps}
		outcome := check.Evaluate(ctx, c, rc)

		switch outcome.Verdict {
		case policy.Found:
			result.Passed++
		case policy.NotFound:
			result.Failed++
		default:
			result.Invalid++
		}

		result.Checks = append(result.Checks, report.CheckResult{
			ID:      c.ID,
			Title:   c.Title,
			Result:  outcome.Verdict.String(),
			Reason:  outcome.Reason,
			Targets: outcome.Targets,
		})
	}

	writer := cmd.OutOrStdout()
	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	reporter, err := report.NewReporter(reportFormat)
	if err != nil {
		return err
	}
	return reporter.Generate(writer, result)
}
