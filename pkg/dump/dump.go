// Package dump implements the dump controller (C8): it services upstream
// requests to rebroadcast a policy's last scan results, serialized against
// live scans via the coordinator's exclusive lock.
package dump

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/kubecomply/scaagent/pkg/coordinator"
	"github.com/kubecomply/scaagent/pkg/event"
	"github.com/kubecomply/scaagent/pkg/integrity"
	"github.com/kubecomply/scaagent/pkg/metrics"
	"github.com/kubecomply/scaagent/pkg/sink"
)

// queueCapacity is the bounded FIFO's capacity (spec.md §4.7).
const queueCapacity = 1024

// Request is a single upstream ask to rebroadcast a policy's state.
type Request struct {
	PolicyID  string
	FirstScan bool
}

// PolicySource resolves the data a dump replay needs for one policy: its
// integrity store and the last summary emitted for it. The engine
// implements this against its own per-policy scan state.
type PolicySource interface {
	PolicyStore(policyID string) (*integrity.PolicyStore, bool)
	PolicyName(policyID string) string
	LastSummary(policyID string) (event.Summary, bool)
}

// Controller consumes Requests from a bounded channel and replays a
// policy's stored events through the sink, under the coordinator's
// exclusive lock.
type Controller struct {
	requests chan Request
	lock     *coordinator.Lock
	sink     sink.Sink
	source   PolicySource
	logger   *slog.Logger

	requestDBInterval time.Duration

	// SettleDelay, ForceAlertDelay, and WarmupDelay default to the
	// spec.md §4.7 values (5s, 2s, 2s) but are exported so tests can
	// shrink them.
	SettleDelay     time.Duration
	ForceAlertDelay time.Duration
	WarmupDelay     time.Duration
}

// NewController creates a dump controller. requestDBInterval bounds the
// jitter delay applied before each replay (spec.md §4.7 step 1); it must
// already be clamped to the scan interval by the caller.
func NewController(lock *coordinator.Lock, sk sink.Sink, source PolicySource, requestDBInterval time.Duration, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		requests:          make(chan Request, queueCapacity),
		lock:              lock,
		sink:              sk,
		source:            source,
		logger:            logger,
		requestDBInterval: requestDBInterval,
		SettleDelay:       5 * time.Second,
		ForceAlertDelay:   2 * time.Second,
		WarmupDelay:       2 * time.Second,
	}
}

// Push enqueues a dump request. If the queue is full the request is
// dropped and logged (spec.md §7.4); the upstream is expected to retry.
func (c *Controller) Push(r Request) {
	select {
	case c.requests <- r:
		metrics.DumpRequestsTotal.WithLabelValues("queued").Inc()
		metrics.DumpQueueDepth.Set(float64(len(c.requests)))
	default:
		metrics.DumpRequestsTotal.WithLabelValues("dropped").Inc()
		c.logger.Warn("dump queue full, dropping request", "policy_id", r.PolicyID)
	}
}

// Run consumes requests until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-c.requests:
			metrics.DumpQueueDepth.Set(float64(len(c.requests)))
			c.service(ctx, req)
		}
	}
}

func (c *Controller) service(ctx context.Context, req Request) {
	delay := c.jitterDelay(req.FirstScan)
	if !sleep(ctx, delay) {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	ps, ok := c.source.PolicyStore(req.PolicyID)
	if !ok {
		metrics.DumpRequestsTotal.WithLabelValues("unknown_policy").Inc()
		c.logger.Warn("dump requested for unknown policy", "policy_id", req.PolicyID)
		return
	}

	records := ps.Records()
	var scanID int64
	for i, rec := range records {
		if i == 0 {
			if s, ok := rec.Snapshot.(event.Check); ok {
				scanID = s.ScanID
			}
		}
		if err := c.sink.Send(ctx, rec.Snapshot); err != nil {
			c.logger.Warn("dump: failed to send check event", "policy_id", req.PolicyID, "check_id", rec.CheckID, "error", err)
		}
	}

	if !sleep(ctx, c.SettleDelay) {
		return
	}
	dumpEnd := event.BuildDumpEnd(req.PolicyID, len(records), scanID)
	if err := c.sink.Send(ctx, dumpEnd); err != nil {
		c.logger.Warn("dump: failed to send dump_end", "policy_id", req.PolicyID, "error", err)
	}
	metrics.DumpRequestsTotal.WithLabelValues("serviced").Inc()

	if !req.FirstScan {
		return
	}

	if !sleep(ctx, c.ForceAlertDelay) {
		return
	}
	summary, ok := c.source.LastSummary(req.PolicyID)
	if !ok {
		return
	}
	forced := event.ForceAlertClone(summary)
	if err := c.sink.Send(ctx, forced); err != nil {
		c.logger.Warn("dump: failed to send forced summary", "policy_id", req.PolicyID, "error", err)
	}
}

// jitterDelay scatters load when many agents receive a dump request
// simultaneously (spec.md §4.7 step 1). A first-scan request skips the
// jitter in favor of a short fixed warm-up.
func (c *Controller) jitterDelay(firstScan bool) time.Duration {
	if firstScan {
		return c.WarmupDelay
	}
	interval := c.requestDBInterval
	if interval <= 0 {
		return 5 * time.Second
	}
	d := time.Duration(rand.Int63n(int64(interval)))
	if d == 0 {
		d = 5 * time.Second
	}
	return d
}

// sleep waits for d or until ctx is canceled, returning false on
// cancellation so callers can abandon the in-progress dump.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
