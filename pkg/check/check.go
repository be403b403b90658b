// Package check aggregates a policy check's rule results into a single
// tri-state verdict following the ALL/ANY/NONE truth table, and collects
// the concrete targets exercised along the way for the event builder.
package check

import (
	"context"
	"strings"

	"github.com/kubecomply/scaagent/pkg/policy"
	"github.com/kubecomply/scaagent/pkg/probe"
	"github.com/kubecomply/scaagent/pkg/rule"
)

// Outcome is the result of evaluating one check.
type Outcome struct {
	Verdict policy.Result
	// Reason explains an Invalid verdict; empty for Found/NotFound.
	Reason string
	// Targets maps each rule-kind field name ("file", "directory",
	// "process", "registry", "command") used by an evaluated rule to the
	// comma-joined, deduplicated list of concrete targets the check
	// exercised (spec.md §4.5). All present fields carry the same list: it
	// is one per-check buffer and is not split by rule kind.
	Targets map[string]string
}

func kindFieldName(k policy.RuleKind) string {
	switch k {
	case policy.RuleFile:
		return "file"
	case policy.RuleDir:
		return "directory"
	case policy.RuleProcess:
		return "process"
	case policy.RuleRegistry:
		return "registry"
	case policy.RuleCommand:
		return "command"
	default:
		return ""
	}
}

// Aggregate combines a sequence of rule results under condition c following
// the spec.md §4.3 truth table. The verdict depends only on the presence of
// each outcome kind in results, not on order, matching the determinism
// requirement that permutations of the same multiset agree on the verdict.
func Aggregate(c policy.Condition, results []policy.Result) policy.Result {
	var anyFound, anyNotFound, anyInvalid bool
	for _, r := range results {
		switch r {
		case policy.Found:
			anyFound = true
		case policy.NotFound:
			anyNotFound = true
		default:
			anyInvalid = true
		}
	}

	switch c {
	case policy.ConditionAll:
		if anyNotFound {
			return policy.NotFound
		}
		if anyInvalid {
			return policy.Invalid
		}
		return policy.Found

	case policy.ConditionAny:
		if anyFound {
			return policy.Found
		}
		if anyInvalid {
			return policy.Invalid
		}
		return policy.NotFound

	case policy.ConditionNone:
		if anyFound {
			return policy.NotFound
		}
		if anyInvalid {
			return policy.Invalid
		}
		return policy.Found

	default:
		return policy.Invalid
	}
}

// locks reports whether result already determines c's final verdict
// regardless of any rule still unevaluated, so Evaluate can stop early: a
// NOT_FOUND rule locks ALL, a FOUND rule locks ANY and NONE. This mirrors the
// original's break-on-decision loop (spec.md §2 C4, "short-circuit rules").
func locks(c policy.Condition, result policy.Result) bool {
	switch c {
	case policy.ConditionAll:
		return result == policy.NotFound
	case policy.ConditionAny, policy.ConditionNone:
		return result == policy.Found
	default:
		return false
	}
}

// Evaluate runs the rules of c in order against rc, aggregates the
// non-skipped results, and assembles the per-kind target lists the event
// builder needs. It stops at the first rule whose result already decides
// c's verdict (see locks), so a rule after that point is never evaluated
// and never contributes a target.
//
// A rule that soft-skips on an unresolved variable (rule.Eval's ok=false)
// contributes no result to the aggregation — it is treated as absent from
// the check entirely, per spec.md §9(b), not as an automatic Invalid.
func Evaluate(ctx context.Context, c policy.Check, rc *rule.Context) Outcome {
	results := make([]policy.Result, 0, len(c.Rules))
	kindsSeen := make(map[policy.RuleKind]bool)
	var invalidLiterals []string

	rc.Targets = probe.NewTargetBuffer()

	for _, r := range c.Rules {
		result, ok := rule.Eval(ctx, rc, r)
		if !ok {
			continue
		}
		results = append(results, result)
		kindsSeen[r.Kind] = true
		if result == policy.Invalid {
			invalidLiterals = append(invalidLiterals, r.Literal)
		}
		if locks(c.Condition, result) {
			break
		}
	}

	verdict := Aggregate(c.Condition, results)

	targets := make(map[string]string, len(kindsSeen))
	joined := rc.Targets.Join()
	for k := range kindsSeen {
		name := kindFieldName(k)
		if name != "" {
			targets[name] = joined
		}
	}

	var reason string
	if verdict == policy.Invalid {
		reason = "could not evaluate: " + strings.Join(invalidLiterals, "; ")
	}

	return Outcome{Verdict: verdict, Reason: reason, Targets: targets}
}
