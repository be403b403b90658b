// Package event builds the four outbound envelope shapes the engine
// emits: check, summary, dump_end, and policies (spec.md §4.5).
package event

import (
	"github.com/kubecomply/scaagent/pkg/policy"
)

// Check is the per-check result envelope. Result is set for Found/NotFound
// verdicts; Status+Reason are set instead when the verdict is Invalid
// ("Not applicable").
type Check struct {
	Type     string         `json:"type"`
	ScanID   int64          `json:"id"`
	Policy   string         `json:"policy"`
	PolicyID string         `json:"policy_id"`
	Check    CheckBody      `json:"check"`
}

// CheckBody is the nested check object within a Check envelope.
type CheckBody struct {
	ID          int                 `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Rationale   string              `json:"rationale,omitempty"`
	Remediation string              `json:"remediation,omitempty"`
	Rules       []string            `json:"rules"`
	Compliance  map[string][]string `json:"compliance,omitempty"`
	References  []string            `json:"references,omitempty"`

	File      string `json:"file,omitempty"`
	Directory string `json:"directory,omitempty"`
	Process   string `json:"process,omitempty"`
	Registry  string `json:"registry,omitempty"`
	Command   string `json:"command,omitempty"`

	Result string `json:"result,omitempty"`
	Status string `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Summary is the per-policy per-scan summary envelope (spec.md §3).
type Summary struct {
	Type              string  `json:"type"`
	PolicyID          string  `json:"policy_id"`
	Policy            string  `json:"policy"`
	Passed            int     `json:"passed"`
	Failed            int     `json:"failed"`
	Invalid           int     `json:"invalid"`
	Score             float64 `json:"score"`
	StartTime         int64   `json:"start_time"`
	EndTime           int64   `json:"end_time"`
	ScanID            int64   `json:"scan_id"`
	IntegrityHash     string  `json:"integrity_hash"`
	IntegrityHashFile string  `json:"integrity_hash_file"`
	FirstScan         bool    `json:"first_scan,omitempty"`
	ForceAlert        string  `json:"force_alert,omitempty"`
}

// DumpEnd marks the end of a C8 dump replay for one policy.
type DumpEnd struct {
	Type         string `json:"type"`
	PolicyID     string `json:"policy_id"`
	ElementsSent int    `json:"elements_sent"`
	ScanID       int64  `json:"scan_id"`
}

// Policies lists the policies active at the end of a scan cycle, letting
// the upstream collector garbage-collect ones no longer present.
type Policies struct {
	Type     string           `json:"type"`
	Policies []PoliciesEntry `json:"policies"`
}

// PoliciesEntry is one element of the Policies envelope's list.
type PoliciesEntry struct {
	Policy string `json:"policy"`
}

// ruleLiterals extracts the original rule-literal strings in order, for
// the check event's "rules" field.
func ruleLiterals(rules []policy.Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Literal
	}
	return out
}

// BuildCheck assembles a check envelope from an evaluated check, its
// verdict, an optional invalid reason, and the per-kind target lists
// collected during evaluation.
func BuildCheck(scanID int64, policyName, policyID string, c policy.Check, verdict policy.Result, reason string, targets map[string]string) Check {
	body := CheckBody{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Rationale:   c.Rationale,
		Remediation: c.Remediation,
		Rules:       ruleLiterals(c.Rules),
		Compliance:  c.Compliance,
		References:  c.References,
		File:        targets["file"],
		Directory:   targets["directory"],
		Process:     targets["process"],
		Registry:    targets["registry"],
		Command:     targets["command"],
	}

	if verdict == policy.Invalid {
		body.Status = "Not applicable"
		body.Reason = reason
	} else {
		body.Result = verdict.Tag()
	}

	return Check{
		Type:     "check",
		ScanID:   scanID,
		Policy:   policyName,
		PolicyID: policyID,
		Check:    body,
	}
}

// BuildSummary assembles a scan summary for one policy.
func BuildSummary(policyID, policyName string, passed, failed, invalid int, startTime, endTime, scanID int64, integrityHash, integrityHashFile string, firstScan bool) Summary {
	var score float64
	if total := passed + failed; total > 0 {
		score = float64(passed) / float64(total) * 100
	}
	return Summary{
		Type:              "summary",
		PolicyID:          policyID,
		Policy:            policyName,
		Passed:            passed,
		Failed:            failed,
		Invalid:           invalid,
		Score:             score,
		StartTime:         startTime,
		EndTime:           endTime,
		ScanID:            scanID,
		IntegrityHash:     integrityHash,
		IntegrityHashFile: integrityHashFile,
		FirstScan:         firstScan,
	}
}

// ForceAlertClone clones s, drops the first_scan flag, and sets
// force_alert — the envelope re-sent after a first-scan dump (spec.md
// §4.7 step 6).
func ForceAlertClone(s Summary) Summary {
	clone := s
	clone.FirstScan = false
	clone.ForceAlert = "1"
	return clone
}

// BuildDumpEnd assembles the terminator envelope for a dump replay.
func BuildDumpEnd(policyID string, elementsSent int, scanID int64) DumpEnd {
	return DumpEnd{
		Type:         "dump_end",
		PolicyID:     policyID,
		ElementsSent: elementsSent,
		ScanID:       scanID,
	}
}

// BuildPolicies assembles the end-of-cycle active-policies envelope.
func BuildPolicies(policyIDs []string) Policies {
	entries := make([]PoliciesEntry, len(policyIDs))
	for i, id := range policyIDs {
		entries[i] = PoliciesEntry{Policy: id}
	}
	return Policies{Type: "policies", Policies: entries}
}
