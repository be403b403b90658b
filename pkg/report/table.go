package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// TableReporter outputs a scan result as a formatted terminal table with colors.
type TableReporter struct{}

// Generate writes result as a terminal table.
func (r *TableReporter) Generate(w io.Writer, result *ScanResult) error {
	fmt.Fprintf(w, "\n%s%s SCA Policy Report %s\n", colorBold, colorGray, colorReset)
	fmt.Fprintf(w, "%s%s%s\n\n", colorGray, strings.Repeat("-", 50), colorReset)

	fmt.Fprintf(w, "  Policy: %s%s%s (%s)\n", colorBold, result.Policy, colorReset, result.PolicyID)

	total := result.Passed + result.Failed
	var score float64
	if total > 0 {
		score = float64(result.Passed) / float64(total) * 100
	}
	scoreColor := colorGreen
	if score < 50 {
		scoreColor = colorRed
	} else if score < 90 {
		scoreColor = colorYellow
	}
	fmt.Fprintf(w, "  Score: %s%.2f%%%s\n\n", scoreColor, score, colorReset)

	fmt.Fprintf(w, "  %sChecks:%s %d total | %s%d passed%s | %s%d failed%s",
		colorBold, colorReset, len(result.Checks),
		colorGreen, result.Passed, colorReset,
		colorRed, result.Failed, colorReset,
	)
	if result.Invalid > 0 {
		fmt.Fprintf(w, " | %s%d invalid%s", colorYellow, result.Invalid, colorReset)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	checks := make([]CheckResult, len(result.Checks))
	copy(checks, result.Checks)
	sort.Slice(checks, func(i, j int) bool {
		ri, rj := resultRank(checks[i].Result), resultRank(checks[j].Result)
		if ri != rj {
			return ri > rj
		}
		return checks[i].ID < checks[j].ID
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  %sID\tRESULT\tTITLE%s\n", colorGray, colorReset)
	fmt.Fprintf(tw, "  %s--\t------\t-----%s\n", colorGray, colorReset)

	for _, c := range checks {
		title := c.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\n", c.ID, colorResult(c.Result), title)
		if c.Reason != "" {
			fmt.Fprintf(tw, "  \t\t  %s%s%s\n", colorGray, c.Reason, colorReset)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table writer: %w", err)
	}
	fmt.Fprintln(w)

	return nil
}

func resultRank(result string) int {
	switch result {
	case "INVALID":
		return 2
	case "NOT_FOUND":
		return 1
	default:
		return 0
	}
}

func colorResult(result string) string {
	switch result {
	case "FOUND":
		return fmt.Sprintf("%sPASS%s", colorGreen, colorReset)
	case "NOT_FOUND":
		return fmt.Sprintf("%sFAIL%s", colorRed, colorReset)
	case "INVALID":
		return fmt.Sprintf("%sINVALID%s", colorYellow, colorReset)
	default:
		return result
	}
}
