// Package rule interprets a single parsed policy.Rule: it resolves
// variables, compiles patterns, and dispatches to pkg/probe, returning a
// tri-state policy.Result.
package rule

import (
	"context"
	"log/slog"
	"time"

	"github.com/kubecomply/scaagent/pkg/match"
	"github.com/kubecomply/scaagent/pkg/policy"
	"github.com/kubecomply/scaagent/pkg/probe"
)

// Capabilities gates platform-dependent rule behavior, injected rather
// than read from globals (spec.md §9).
type Capabilities struct {
	SkipNFS           bool
	RemoteCommands    bool
	CommandsTimeout   time.Duration
}

// Context carries the per-check state a rule dispatch needs: the process
// lister cache (§4.2, built lazily once per check), the owning policy's
// remote flag, capabilities, and the target buffer for the event builder.
type Context struct {
	Vars       map[string]string
	Caps       Capabilities
	Processes  *probe.ProcessLister
	Remote     bool
	Targets    *probe.TargetBuffer
	Logger     *slog.Logger
}

// Eval interprets one rule and returns its tri-state result, already
// negated if the rule carries "NOT ".
//
// An unresolved "$var" soft-skips the rule: per spec.md §9(b) this is
// preserved as a logged skip rather than silently promoted to Invalid,
// matching the original's documented (if hazardous) behavior. Skipped is
// reported via the ok=false return so the caller (pkg/check) can treat the
// rule as absent from the aggregation instead of contributing any result.
func Eval(ctx context.Context, rc *Context, r policy.Rule) (result policy.Result, ok bool) {
	logger := rc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	targets, resolvedOK := resolveTargets(r.Targets, rc.Vars)
	if !resolvedOK {
		logger.Warn("rule references unresolved variable, skipping", "rule", r.Literal)
		return policy.Invalid, false
	}

	var pattern *match.Pattern
	if r.Pattern != "" {
		resolvedPattern, ok := policy.ResolveVariable(r.Pattern, rc.Vars)
		if !ok {
			logger.Warn("rule pattern references unresolved variable, skipping", "rule", r.Literal)
			return policy.Invalid, false
		}
		p, err := match.Compile(resolvedPattern)
		if err != nil {
			logger.Warn("invalid pattern, treating rule as invalid", "rule", r.Literal, "error", err)
			return policy.Invalid, true
		}
		pattern = p
	}

	var result0 policy.Result

	switch r.Kind {
	case policy.RuleFile:
		result0 = probe.File(targets, pattern, rc.Targets)

	case policy.RuleDir:
		var selector *match.Pattern
		if r.Selector != "" {
			resolvedSel, ok := policy.ResolveVariable(r.Selector, rc.Vars)
			if !ok {
				logger.Warn("rule selector references unresolved variable, skipping", "rule", r.Literal)
				return policy.Invalid, false
			}
			sel, err := probe.CompileSelector(resolvedSel)
			if err != nil {
				logger.Warn("invalid selector, treating rule as invalid", "rule", r.Literal, "error", err)
				return policy.Invalid, true
			}
			selector = sel
		}
		result0 = probe.Dir(targets, selector, pattern, probe.DirOptions{SkipNFS: rc.Caps.SkipNFS}, rc.Targets)

	case policy.RuleProcess:
		// A process rule's value is itself the pattern ("p:r:^sshd$").
		procPattern, err := match.Compile(targets[0])
		if err != nil {
			logger.Warn("invalid process pattern, treating rule as invalid", "rule", r.Literal, "error", err)
			return policy.Invalid, true
		}
		result0 = probe.Process(ctx, rc.Processes, procPattern, rc.Targets)

	case policy.RuleCommand:
		result0 = probe.Command(ctx, targets[0], pattern, probe.CommandOptions{
			Timeout:       rc.Caps.CommandsTimeout,
			RemoteAllowed: rc.Caps.RemoteCommands,
			PolicyRemote:  rc.Remote,
		}, rc.Targets)

	case policy.RuleRegistry:
		valueName := ""
		if pattern != nil {
			valueName = r.Pattern
		}
		result0 = probe.Registry(targets[0], valueName, pattern, rc.Targets)

	default:
		logger.Warn("unknown rule kind", "rule", r.Literal)
		return policy.Invalid, true
	}

	if r.Negate {
		result0 = result0.Negate()
	}
	return result0, true
}

// resolveTargets resolves every entry of a target list through the
// variable map. ok is false if any entry is an unresolved variable.
func resolveTargets(raw []string, vars map[string]string) ([]string, bool) {
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		resolved, ok := policy.ResolveVariable(t, vars)
		if !ok {
			return nil, false
		}
		out = append(out, resolved)
	}
	return out, true
}
