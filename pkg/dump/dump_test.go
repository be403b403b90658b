package dump

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kubecomply/scaagent/pkg/coordinator"
	"github.com/kubecomply/scaagent/pkg/event"
	"github.com/kubecomply/scaagent/pkg/integrity"
)

type fakeSink struct {
	mu     sync.Mutex
	events []any
}

func (f *fakeSink) Send(ctx context.Context, e any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeSource struct {
	stores    map[string]*integrity.PolicyStore
	summaries map[string]event.Summary
}

func (f *fakeSource) PolicyStore(id string) (*integrity.PolicyStore, bool) {
	ps, ok := f.stores[id]
	return ps, ok
}

func (f *fakeSource) PolicyName(id string) string { return id }

func (f *fakeSource) LastSummary(id string) (event.Summary, bool) {
	s, ok := f.summaries[id]
	return s, ok
}

func TestServiceReplaysRecordsAndDumpEnd(t *testing.T) {
	store := integrity.NewStore()
	ps := store.Begin("p1", "h1", 2)
	ps.Update(0, "1", "passed", event.Check{ScanID: 99})
	ps.Update(1, "2", "failed", event.Check{ScanID: 99})

	sk := &fakeSink{}
	source := &fakeSource{stores: map[string]*integrity.PolicyStore{"p1": ps}}
	c := NewController(coordinator.New(), sk, source, 300*time.Second, nil)
	c.SettleDelay = time.Millisecond
	c.ForceAlertDelay = time.Millisecond

	c.service(context.Background(), Request{PolicyID: "p1"})

	if sk.count() != 3 { // 2 check events + dump_end
		t.Fatalf("expected 3 events sent, got %d", sk.count())
	}
}

func TestServiceFirstScanAppendsForcedSummary(t *testing.T) {
	store := integrity.NewStore()
	ps := store.Begin("p1", "h1", 1)
	ps.Update(0, "1", "passed", event.Check{ScanID: 5})

	sk := &fakeSink{}
	source := &fakeSource{
		stores:    map[string]*integrity.PolicyStore{"p1": ps},
		summaries: map[string]event.Summary{"p1": event.BuildSummary("p1", "p1", 1, 0, 0, 1, 2, 5, "h", "h", true)},
	}
	c := NewController(coordinator.New(), sk, source, 300*time.Second, nil)
	c.SettleDelay = time.Millisecond
	c.ForceAlertDelay = time.Millisecond
	c.WarmupDelay = time.Millisecond

	c.service(context.Background(), Request{PolicyID: "p1", FirstScan: true})

	if sk.count() != 3 { // 1 check + dump_end + forced summary
		t.Fatalf("expected 3 events, got %d", sk.count())
	}
}

func TestPushDropsOnFullQueue(t *testing.T) {
	c := NewController(coordinator.New(), &fakeSink{}, &fakeSource{}, time.Second, nil)
	for i := 0; i < queueCapacity; i++ {
		c.Push(Request{PolicyID: "p"})
	}
	c.Push(Request{PolicyID: "overflow"}) // should be dropped and logged, not block or panic
	if len(c.requests) != queueCapacity {
		t.Fatalf("expected queue to stay at capacity %d, got %d", queueCapacity, len(c.requests))
	}
}

func TestJitterDelayFirstScanIsWarmup(t *testing.T) {
	c := NewController(coordinator.New(), &fakeSink{}, &fakeSource{}, 300*time.Second, nil)
	if d := c.jitterDelay(true); d != 2*time.Second {
		t.Fatalf("expected 2s warm-up for first scan, got %v", d)
	}
}

func TestJitterDelayBounded(t *testing.T) {
	c := NewController(coordinator.New(), &fakeSink{}, &fakeSource{}, 10*time.Second, nil)
	for i := 0; i < 20; i++ {
		d := c.jitterDelay(false)
		if d <= 0 || d > 10*time.Second {
			t.Fatalf("jitter delay out of bounds: %v", d)
		}
	}
}
