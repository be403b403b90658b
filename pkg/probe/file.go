// Package probe implements the platform-facing primitives the rule
// interpreter dispatches to: file/dir inspection, process enumeration,
// command execution, and (platform-gated) registry access.
package probe

import (
	"bufio"
	"os"
	"strings"

	"github.com/kubecomply/scaagent/pkg/match"
	"github.com/kubecomply/scaagent/pkg/policy"
)

// File evaluates a File rule: pathList is the comma-split target list,
// pattern is the optional contents pattern (nil means presence-only).
// Targets accumulates the concrete paths exercised, for the check event's
// "file" field (§4.5); the TargetBuffer enforces its own bound.
//
// Per wm_sca_check_file_existence, only ENOENT is a plain miss (skip, keep
// looking at the rest of pathList); any other stat error (permission
// denied, a path component not a directory, and so on) contributes Invalid
// regardless of whether pattern is set.
func File(pathList []string, pattern *match.Pattern, targets *TargetBuffer) policy.Result {
	if len(pathList) == 0 {
		return policy.NotFound
	}

	sawInvalid := false
	for _, path := range pathList {
		targets.Add(path)
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				sawInvalid = true
			}
			continue
		}
		if !info.Mode().IsRegular() {
			sawInvalid = true
			continue
		}

		if pattern == nil {
			return policy.Found
		}

		found, err := fileContentsMatch(path, pattern)
		if err != nil {
			sawInvalid = true
			continue
		}
		if found {
			return policy.Found
		}
	}

	if sawInvalid {
		return policy.Invalid
	}
	return policy.NotFound
}

// fileContentsMatch scans path line by line (CRLF trimmed), returning true
// on the first line the pattern matches.
func fileContentsMatch(path string, pattern *match.Pattern) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if pattern.Match(line) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// TargetBuffer is a per-check ordered, deduplicated buffer of concrete
// probe targets, bounded at 255 entries per spec.md §4.5.
type TargetBuffer struct {
	seen  map[string]bool
	order []string
}

// NewTargetBuffer creates an empty TargetBuffer.
func NewTargetBuffer() *TargetBuffer {
	return &TargetBuffer{seen: make(map[string]bool)}
}

// Add records a target, ignoring it once the 255-entry cap is reached or
// it is already present.
func (b *TargetBuffer) Add(target string) {
	if b.seen[target] || len(b.order) >= 255 {
		return
	}
	b.seen[target] = true
	b.order = append(b.order, target)
}

// Join renders the buffer as the comma-joined string the event builder
// expects, or "" if empty.
func (b *TargetBuffer) Join() string {
	return strings.Join(b.order, ",")
}
