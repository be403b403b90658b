// Package sink implements the outbound adapter (C9): the only component
// permitted to perform I/O on the event path out of the engine. It applies
// an events-per-second rate limit and reconnects once on failure before
// dropping an event.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kubecomply/scaagent/pkg/metrics"
)

const (
	defaultTimeout = 30 * time.Second
)

// Sink is anything the engine can hand an outbound event to.
type Sink interface {
	Send(ctx context.Context, event any) error
}

// HTTPSink streams newline-framed JSON events to an HTTP(S) collector
// endpoint, tagging each request with the module and queue headers the
// transport expects (spec.md §6).
type HTTPSink struct {
	endpoint   string
	module     string
	queue      string
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	minDelay time.Duration
	lastSend time.Time
}

// NewHTTPSink creates a sink posting to endpoint, rate limited to at most
// maxEPS events per second (events/sec ≤ wm_max_eps, spec.md §4.8).
func NewHTTPSink(endpoint, module, queue string, maxEPS int, logger *slog.Logger) *HTTPSink {
	if logger == nil {
		logger = slog.Default()
	}
	var minDelay time.Duration
	if maxEPS > 0 {
		minDelay = time.Duration(1_000_000/maxEPS) * time.Microsecond
	}
	return &HTTPSink{
		endpoint:   endpoint,
		module:     module,
		queue:      queue,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		minDelay:   minDelay,
	}
}

// Send rate-limits, then posts event. On failure it attempts exactly one
// reconnect and retry before dropping the event (spec.md §4.8, §7.3).
func (s *HTTPSink) Send(ctx context.Context, event any) error {
	s.throttle()

	if err := s.post(ctx, event); err != nil {
		s.logger.Warn("sink send failed, retrying once", "error", err)
		if err := s.post(ctx, event); err != nil {
			metrics.SinkEventsTotal.WithLabelValues("dropped").Inc()
			s.logger.Warn("sink send failed after retry, dropping event", "error", err)
			return fmt.Errorf("sink: dropping event after retry: %w", err)
		}
	}
	metrics.SinkEventsTotal.WithLabelValues("sent").Inc()
	return nil
}

// throttle blocks, if needed, so consecutive sends are spaced at least
// minDelay apart.
func (s *HTTPSink) throttle() {
	if s.minDelay <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if elapsed := time.Since(s.lastSend); elapsed < s.minDelay {
		time.Sleep(s.minDelay - elapsed)
	}
	s.lastSend = time.Now()
}

func (s *HTTPSink) post(ctx context.Context, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	payload = append(payload, '\n')

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	req.Header.Set("X-SCA-Module", s.module)
	req.Header.Set("X-SCA-Queue", s.queue)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sink returned HTTP %d", resp.StatusCode)
	}
	return nil
}
