package probe

import (
	"context"
	"sync"

	gopsprocess "github.com/shirou/gopsutil/v3/process"

	"github.com/kubecomply/scaagent/pkg/match"
	"github.com/kubecomply/scaagent/pkg/policy"
)

// ProcessLister caches the running process command-line list for the
// lifetime of a single check (built lazily once per check, per spec.md
// §4.2), backed by github.com/shirou/gopsutil/v3/process.
type ProcessLister struct {
	mu       sync.Mutex
	loaded   bool
	cmdlines []string
}

// NewProcessLister creates an empty, unloaded lister.
func NewProcessLister() *ProcessLister {
	return &ProcessLister{}
}

func (l *ProcessLister) load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return nil
	}

	procs, err := gopsprocess.ProcessesWithContext(ctx)
	if err != nil {
		return err
	}

	cmdlines := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || cmdline == "" {
			cmdline = name
		}
		cmdlines = append(cmdlines, cmdline)
	}

	l.cmdlines = cmdlines
	l.loaded = true
	return nil
}

// Process evaluates a Process rule: FOUND iff any running process's
// command line matches pattern.
func Process(ctx context.Context, lister *ProcessLister, pattern *match.Pattern, targets *TargetBuffer) policy.Result {
	if err := lister.load(ctx); err != nil {
		return policy.Invalid
	}

	lister.mu.Lock()
	cmdlines := lister.cmdlines
	lister.mu.Unlock()

	for _, cmdline := range cmdlines {
		if pattern.Match(cmdline) {
			targets.Add(cmdline)
			return policy.Found
		}
	}
	targets.Add(pattern.String())
	return policy.NotFound
}
