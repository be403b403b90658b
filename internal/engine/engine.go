// Package engine wires the scan evaluator, integrity store, scheduler,
// dump controller, and sink into a running SCA agent. It replaces the
// original's module-global state (spec.md §9) with explicit references
// passed to each collaborator at construction time.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/kubecomply/scaagent/internal/config"
	"github.com/kubecomply/scaagent/pkg/check"
	"github.com/kubecomply/scaagent/pkg/coordinator"
	"github.com/kubecomply/scaagent/pkg/dump"
	"github.com/kubecomply/scaagent/pkg/event"
	"github.com/kubecomply/scaagent/pkg/integrity"
	"github.com/kubecomply/scaagent/pkg/intake"
	"github.com/kubecomply/scaagent/pkg/metrics"
	"github.com/kubecomply/scaagent/pkg/policy"
	"github.com/kubecomply/scaagent/pkg/probe"
	"github.com/kubecomply/scaagent/pkg/rule"
	"github.com/kubecomply/scaagent/pkg/schedule"
	"github.com/kubecomply/scaagent/pkg/sink"
)

// Engine owns the running agent's collaborators and drives one scan cycle
// per scheduler tick.
type Engine struct {
	cfg    *config.Config
	loader policy.Loader
	store  *integrity.Store
	lock   *coordinator.Lock
	sink   sink.Sink
	logger *slog.Logger

	scheduler *schedule.Scheduler
	dumpCtl   *dump.Controller
	intakeLn  *intake.Listener

	mu            sync.Mutex
	firstScan     bool
	policyNames   map[string]string
	lastSummaries map[string]event.Summary
}

// New builds an Engine from validated configuration. The dump controller
// is constructed with the Engine itself as its PolicySource — safe even
// though the Engine isn't fully populated yet, since PolicySource methods
// are only invoked once scans have run.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:           cfg,
		loader:        &policy.YAMLLoader{},
		store:         integrity.NewStore(),
		lock:          coordinator.New(),
		logger:        logger,
		firstScan:     true,
		policyNames:   make(map[string]string),
		lastSummaries: make(map[string]event.Summary),
	}

	e.sink = sink.NewHTTPSink(cfg.SinkEndpoint, cfg.SinkModule, cfg.SinkQueue, cfg.MaxEPS, logger)
	e.dumpCtl = dump.NewController(e.lock, e.sink, e, cfg.RequestDBInterval, logger)
	e.scheduler = schedule.New(schedule.Config{
		Interval:    cfg.Interval,
		ScanOnStart: cfg.ScanOnStart,
		ScanDay:     cfg.ScanDay,
		ScanWday:    cfg.ScanWday,
		ScanTime:    cfg.ScanTime,
	}, logger)

	if cfg.IntakeSocketPath != "" {
		e.intakeLn = intake.New(cfg.IntakeSocketPath, dumpPusher{e.dumpCtl}, logger)
	}

	return e
}

// dumpPusher adapts *dump.Controller to intake.Pusher, translating the
// intake package's Request type into the dump package's.
type dumpPusher struct {
	ctl *dump.Controller
}

func (p dumpPusher) Push(r intake.Request) {
	p.ctl.Push(dump.Request{PolicyID: r.PolicyID, FirstScan: r.FirstScan})
}

// Run starts the dump controller, the optional intake listener, and the
// scheduler loop, blocking until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := e.dumpCtl.Run(ctx); err != nil {
			e.logger.Info("dump controller stopped", "error", err)
		}
	}()

	if e.intakeLn != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.intakeLn.Run(ctx); err != nil {
				e.logger.Info("intake listener stopped", "error", err)
			}
		}()
	}

	err := e.scheduler.Run(ctx, e.scanCycle)
	wg.Wait()
	return err
}

// scanCycle runs one full scan of every enabled profile, then emits the
// end-of-cycle policies envelope.
func (e *Engine) scanCycle(ctx context.Context) {
	var scannedIDs []string

	for _, prof := range e.cfg.Profiles {
		if !prof.Enabled {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		p, err := e.loader.Load(prof.File)
		if err != nil {
			e.logger.Warn("skipping malformed policy", "file", prof.File, "error", err)
			continue
		}
		p.Remote = prof.Remote
		if prof.PolicyID != "" {
			p.ID = prof.PolicyID
		}

		e.scanPolicy(ctx, p)
		scannedIDs = append(scannedIDs, p.ID)
	}

	if len(scannedIDs) > 0 {
		if err := e.sink.Send(ctx, event.BuildPolicies(scannedIDs)); err != nil {
			e.logger.Warn("failed to send policies envelope", "error", err)
		}
	}

	e.mu.Lock()
	e.firstScan = false
	e.mu.Unlock()
}

// scanPolicy evaluates every check of p in order and emits novel check
// events plus a trailing summary.
func (e *Engine) scanPolicy(ctx context.Context, p *policy.Policy) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	fileHash, err := policy.HashFile(p.File)
	if err != nil {
		e.logger.Warn("failed to hash policy file, skipping", "policy_id", p.ID, "file", p.File, "error", err)
		return
	}

	if p.Requirements != nil {
		rc := &rule.Context{
			Vars:      p.Variables,
			Processes: probe.NewProcessLister(),
			Remote:    p.Remote,
			Logger:    e.logger,
			Caps: rule.Capabilities{
				SkipNFS:         e.cfg.SkipNFS,
				RemoteCommands:  e.cfg.RemoteCommands,
				CommandsTimeout: e.cfg.CommandsTimeout,
			},
		}
		outcome := check.Evaluate(ctx, *p.Requirements, rc)
		if outcome.Verdict != policy.Found {
			e.logger.Info("policy requirements not met, skipping", "policy_id", p.ID, "verdict", outcome.Verdict)
			return
		}
	}

	ps := e.store.Begin(p.ID, fileHash, len(p.Checks))
	scanID := rand.Int63()
	startTime := time.Now()

	var passed, failed, invalid int

	e.mu.Lock()
	firstScan := e.firstScan
	e.policyNames[p.ID] = p.Name
	e.mu.Unlock()

	for i, c := range p.Checks {
		if ctx.Err() != nil {
			return
		}

		rc := &rule.Context{
			Vars:      p.Variables,
			Processes: probe.NewProcessLister(),
			Remote:    p.Remote,
			Logger:    e.logger,
			Caps: rule.Capabilities{
				SkipNFS:         e.cfg.SkipNFS,
				RemoteCommands:  e.cfg.RemoteCommands,
				CommandsTimeout: e.cfg.CommandsTimeout,
			},
		}
		outcome := check.Evaluate(ctx, c, rc)

		switch outcome.Verdict {
		case policy.Found:
			passed++
		case policy.NotFound:
			failed++
		default:
			invalid++
		}

		tag := outcome.Verdict.Tag()
		checkEvent := event.BuildCheck(scanID, p.Name, p.ID, c, outcome.Verdict, outcome.Reason, outcome.Targets)
		novel := ps.Update(i, policy.CheckIDKey(c.ID), tag, checkEvent)

		if novel && !firstScan {
			if err := e.sink.Send(ctx, checkEvent); err != nil {
				e.logger.Warn("failed to send check event", "policy_id", p.ID, "check_id", c.ID, "error", err)
			}
		}
	}

	endTime := time.Now()
	var score float64
	if total := passed + failed; total > 0 {
		score = float64(passed) / float64(total) * 100
	}

	summary := event.BuildSummary(p.ID, p.Name, passed, failed, invalid, startTime.Unix(), endTime.Unix(), scanID,
		ps.IntegrityHash(), fileHash, firstScan)

	if err := e.sink.Send(ctx, summary); err != nil {
		e.logger.Warn("failed to send summary", "policy_id", p.ID, "error", err)
	}

	e.mu.Lock()
	e.lastSummaries[p.ID] = summary
	e.mu.Unlock()

	metrics.RecordScan(p.ID, endTime.Sub(startTime), passed, failed, invalid, score, "ok", endTime)
}

// PolicyStore implements dump.PolicySource.
func (e *Engine) PolicyStore(policyID string) (*integrity.PolicyStore, bool) {
	return e.store.Get(policyID)
}

// PolicyName implements dump.PolicySource.
func (e *Engine) PolicyName(policyID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policyNames[policyID]
}

// LastSummary implements dump.PolicySource.
func (e *Engine) LastSummary(policyID string) (event.Summary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.lastSummaries[policyID]
	return s, ok
}

// PushDump enqueues a dump request, e.g. from a CLI-triggered request
// outside the intake socket.
func (e *Engine) PushDump(policyID string, firstScan bool) error {
	if _, ok := e.store.Get(policyID); !ok {
		return fmt.Errorf("no scan state for policy %q yet", policyID)
	}
	e.dumpCtl.Push(dump.Request{PolicyID: policyID, FirstScan: firstScan})
	return nil
}
