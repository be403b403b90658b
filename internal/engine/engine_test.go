package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kubecomply/scaagent/internal/config"
)

func writePolicy(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testPolicy = `
policy:
  id: test_policy
  name: Test Policy
checks:
  - id: 1
    title: always passes
    condition: ALL
    rules:
      - "c:echo hello -> r:hello"
  - id: 2
    title: always fails
    condition: ALL
    rules:
      - "c:echo nope -> r:doesnotmatch"
`

func TestScanCycleEmitsCheckAndSummaryEvents(t *testing.T) {
	var mu sync.Mutex
	var received []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		received = append(received, body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	policyPath := writePolicy(t, testPolicy)

	cfg := &config.Config{
		Interval:        time.Hour,
		CommandsTimeout: 5 * time.Second,
		SinkEndpoint:    srv.URL,
		SinkModule:      "sca",
		SinkQueue:       "hot",
		Profiles: []config.ProfileEntry{
			{File: policyPath, Enabled: true},
		},
	}

	e := New(cfg, nil)
	// First scan: checks are computed but suppressed per spec.md §4.4
	// rule 6; only the summary is expected.
	e.scanCycle(context.Background())

	mu.Lock()
	firstCycleEvents := len(received)
	mu.Unlock()
	if firstCycleEvents != 2 { // summary + policies envelope
		t.Fatalf("expected 2 events on first scan (summary + policies), got %d: %+v", firstCycleEvents, received)
	}

	// Second scan with identical outcomes: dedup means no check events and
	// only a summary (+ policies envelope) again.
	e.scanCycle(context.Background())
	mu.Lock()
	secondCycleEvents := len(received) - firstCycleEvents
	mu.Unlock()
	if secondCycleEvents != 2 {
		t.Fatalf("expected 2 events on unchanged second scan, got %d", secondCycleEvents)
	}
}

func TestScanCycleSkipsMalformedPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	badPath := writePolicy(t, "not: [valid, policy")

	cfg := &config.Config{
		Interval:     time.Hour,
		SinkEndpoint: srv.URL,
		Profiles: []config.ProfileEntry{
			{File: badPath, Enabled: true},
		},
	}

	e := New(cfg, nil)
	e.scanCycle(context.Background()) // must not panic
}

func TestLastSummaryAfterScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	policyPath := writePolicy(t, testPolicy)
	cfg := &config.Config{
		Interval:        time.Hour,
		CommandsTimeout: 5 * time.Second,
		SinkEndpoint:    srv.URL,
		Profiles: []config.ProfileEntry{
			{File: policyPath, Enabled: true},
		},
	}

	e := New(cfg, nil)
	e.scanCycle(context.Background())

	if _, ok := e.LastSummary("test_policy"); !ok {
		t.Fatal("expected a stored summary for test_policy after a scan")
	}
	if _, ok := e.PolicyStore("test_policy"); !ok {
		t.Fatal("expected an integrity store for test_policy after a scan")
	}
}
