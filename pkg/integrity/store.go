// Package integrity implements the per-policy dedup store: it decides
// whether a check's result is novel since the last scan, and computes the
// rolling policy integrity hash used in scan summaries (spec.md §4.4).
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// Record is the stored state for one check: the tag used for dedup
// comparison and a snapshot of the last event payload, replayed verbatim by
// the dump controller (C8).
type Record struct {
	CheckID   string
	ResultTag string // "passed", "failed", or "" for Invalid
	Snapshot  any
}

// PolicyStore holds the dedup map and scan-order position array for one
// policy. The map gives O(1) dedup lookups by check id; the position array
// is what the dump controller and the integrity hasher walk, per spec.md
// §4.4 ("the dump controller and integrity hasher iterate this array, not
// the map").
type PolicyStore struct {
	fileHash string
	byID     map[string]*Record
	ordered  []*Record
}

// Store is the process-wide collection of per-policy stores. Scans mutate
// a policy's store while holding the reader side of the coordinator lock
// (only one scan runs at a time); the dump controller reads it under the
// exclusive side. Store itself adds only the bookkeeping mutex needed to
// guard the top-level map.
type Store struct {
	mu       sync.Mutex
	policies map[string]*PolicyStore
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{policies: make(map[string]*PolicyStore)}
}

// Get returns the current per-policy store, if one exists. Used by the
// dump controller, which must not create a store for a policy it has
// never seen scanned.
func (s *Store) Get(policyID string) (*PolicyStore, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.policies[policyID]
	return ps, ok
}

// Begin prepares the per-policy store for a new scan of checkCount checks.
// If fileHash differs from the hash observed on the previous scan, the
// entire per-policy store is dropped and rebuilt (spec.md §4.4 invalidation
// rule); the returned PolicyStore is otherwise reused across scans so
// dedup comparisons span scans.
func (s *Store) Begin(policyID, fileHash string, checkCount int) *PolicyStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.policies[policyID]
	if !ok || ps.fileHash != fileHash {
		ps = &PolicyStore{
			fileHash: fileHash,
			byID:     make(map[string]*Record, checkCount),
		}
		s.policies[policyID] = ps
	}
	ps.ordered = make([]*Record, checkCount)
	return ps
}

// Update records a check's result at its scan-order position. novel
// reports whether this result differs from the previously stored one (or
// there was none) — the caller should only emit a check event when novel
// is true. The position array is always refreshed regardless of novelty
// since a full dump replay needs every check's current record.
func (ps *PolicyStore) Update(position int, checkID, resultTag string, snapshot any) (novel bool) {
	prev, had := ps.byID[checkID]
	novel = !had || prev.ResultTag != resultTag

	rec := &Record{CheckID: checkID, ResultTag: resultTag, Snapshot: snapshot}
	ps.byID[checkID] = rec
	if position >= 0 && position < len(ps.ordered) {
		ps.ordered[position] = rec
	}
	return novel
}

// Records returns the position-ordered record slice for a full-policy walk
// (used by the dump controller). Unfilled positions (a check skipped this
// scan) are omitted.
func (ps *PolicyStore) Records() []*Record {
	out := make([]*Record, 0, len(ps.ordered))
	for _, r := range ps.ordered {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// IntegrityHash computes the SHA-256 hex digest over the position-ordered
// result tags joined by ":", per spec.md §4.4 rule 3. It is stable across
// scans that produce the same outcome sequence regardless of whether any
// individual check's event was suppressed as non-novel.
func (ps *PolicyStore) IntegrityHash() string {
	tags := make([]string, len(ps.ordered))
	for i, r := range ps.ordered {
		if r != nil {
			tags[i] = r.ResultTag
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(tags, ":")))
	return hex.EncodeToString(sum[:])
}
