package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateDedup(t *testing.T) {
	s := NewStore()
	ps := s.Begin("policy-a", "hash1", 2)

	novel := ps.Update(0, "1", "passed", nil)
	assert.True(t, novel, "first observation of a check should be novel")

	novel = ps.Update(0, "1", "passed", nil)
	assert.False(t, novel, "identical result on rescan should not be novel")

	novel = ps.Update(0, "1", "failed", nil)
	assert.True(t, novel, "changed result should be novel")
}

func TestBeginInvalidatesOnFileHashChange(t *testing.T) {
	s := NewStore()
	ps := s.Begin("policy-a", "hash1", 1)
	ps.Update(0, "1", "passed", nil)

	ps2 := s.Begin("policy-a", "hash2", 1)
	novel := ps2.Update(0, "1", "passed", nil)
	assert.True(t, novel, "store should have been rebuilt after file hash changed, losing prior state")
}

func TestBeginPreservesStoreWhenHashUnchanged(t *testing.T) {
	s := NewStore()
	ps := s.Begin("policy-a", "hash1", 1)
	ps.Update(0, "1", "passed", nil)

	ps2 := s.Begin("policy-a", "hash1", 1)
	novel := ps2.Update(0, "1", "passed", nil)
	assert.False(t, novel, "store should persist across scans when file hash is unchanged")
}

func TestIntegrityHashStableAndOrdered(t *testing.T) {
	s := NewStore()
	ps := s.Begin("policy-a", "hash1", 2)
	ps.Update(0, "1", "passed", nil)
	ps.Update(1, "2", "failed", nil)
	h1 := ps.IntegrityHash()

	ps2 := s.Begin("policy-b", "hash1", 2)
	ps2.Update(0, "1", "passed", nil)
	ps2.Update(1, "2", "failed", nil)
	h2 := ps2.IntegrityHash()

	require.Equal(t, h1, h2, "identical outcome sequences must hash identically across policies")

	ps3 := s.Begin("policy-c", "hash1", 2)
	ps3.Update(0, "2", "failed", nil)
	ps3.Update(1, "1", "passed", nil)
	h3 := ps3.IntegrityHash()

	assert.NotEqual(t, h1, h3, "reordering positions should change the hash")
}

func TestRecordsSkipsUnfilledPositions(t *testing.T) {
	s := NewStore()
	ps := s.Begin("policy-a", "hash1", 3)
	ps.Update(0, "1", "passed", nil)
	ps.Update(2, "3", "failed", nil)

	recs := ps.Records()
	require.Len(t, recs, 2)
}
