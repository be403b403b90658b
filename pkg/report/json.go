package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONReporter outputs a scan result as formatted JSON.
type JSONReporter struct{}

// Generate writes result as pretty-printed JSON.
func (r *JSONReporter) Generate(w io.Writer, result *ScanResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("encoding JSON report: %w", err)
	}

	return nil
}
