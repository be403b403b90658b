// Package report renders a scactl one-shot scan as a terminal table or
// JSON document.
package report

import (
	"fmt"
	"io"
	"strings"
)

// Format is a supported report output format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, returning an error for invalid values.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatTable:
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported report format: %q (valid: json, table)", s)
	}
}

// CheckResult is a single check's verdict, ready for rendering.
type CheckResult struct {
	ID      int               `json:"id"`
	Title   string            `json:"title"`
	Result  string            `json:"result"`
	Reason  string            `json:"reason,omitempty"`
	Targets map[string]string `json:"targets,omitempty"`
}

// ScanResult is one policy's scan outcome.
type ScanResult struct {
	PolicyID string        `json:"policy_id"`
	Policy   string        `json:"policy"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Invalid  int           `json:"invalid"`
	Checks   []CheckResult `json:"checks"`
}

// Reporter renders a ScanResult to a writer.
type Reporter interface {
	Generate(w io.Writer, result *ScanResult) error
}

// NewReporter creates a Reporter for the given format.
func NewReporter(format Format) (Reporter, error) {
	switch format {
	case FormatJSON:
		return &JSONReporter{}, nil
	case FormatTable:
		return &TableReporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %q", format)
	}
}
