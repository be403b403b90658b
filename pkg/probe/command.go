package probe

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/kubecomply/scaagent/pkg/match"
	"github.com/kubecomply/scaagent/pkg/policy"
)

// CommandOptions controls Command rule evaluation.
type CommandOptions struct {
	// Timeout bounds command execution (commands_timeout, §6, [1,300]s).
	Timeout time.Duration
	// RemoteAllowed gates Command rules sourced from a remote policy
	// (remote_commands, §6).
	RemoteAllowed bool
	// PolicyRemote marks whether the owning policy is remote-sourced.
	PolicyRemote bool
}

// Command evaluates a Command rule by executing cmdline through the shell
// and matching its output against pattern (presence-only when pattern is
// nil).
func Command(ctx context.Context, cmdline string, pattern *match.Pattern, opts CommandOptions, targets *TargetBuffer) policy.Result {
	targets.Add(cmdline)

	if opts.PolicyRemote && !opts.RemoteAllowed {
		return policy.Invalid
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "sh", "-c", cmdline)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	if cctx.Err() == context.DeadlineExceeded {
		return policy.Invalid
	}
	if err != nil {
		// Non-zero exit or an exec failure (binary missing, permission
		// denied, ...) are both inconclusive per spec.md §4.2.
		return policy.Invalid
	}

	if pattern == nil {
		return policy.Found
	}

	if stdout.Len() == 0 {
		return policy.NotFound
	}

	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if pattern.Match(line) {
			return policy.Found
		}
	}
	return policy.NotFound
}
