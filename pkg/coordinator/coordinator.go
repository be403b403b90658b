// Package coordinator provides the single process-wide lock that
// serializes scans against dump replays (spec.md §5). Scans take the
// reader side; the dump controller takes the writer side, so a dump always
// sees a coherent, unmutated snapshot of a policy's integrity store.
package coordinator

import "sync"

// Lock is the shared reader/writer lock. There is exactly one instance per
// running engine, held by the engine for its scans and injected into the
// dump controller rather than held as a package global.
type Lock struct {
	mu sync.RWMutex
}

// New creates an unlocked coordinator.
func New() *Lock {
	return &Lock{}
}

// RLock acquires the reader side, held by a scan for the duration of one
// policy's evaluation.
func (l *Lock) RLock() {
	l.mu.RLock()
}

// RUnlock releases the reader side.
func (l *Lock) RUnlock() {
	l.mu.RUnlock()
}

// Lock acquires the exclusive side, held by the dump controller while it
// walks the integrity store for a policy.
func (l *Lock) Lock() {
	l.mu.Lock()
}

// Unlock releases the exclusive side.
func (l *Lock) Unlock() {
	l.mu.Unlock()
}
