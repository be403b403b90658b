package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubecomply/scaagent/pkg/policy"
)

func TestBuildCheckFound(t *testing.T) {
	c := policy.Check{ID: 1, Title: "ssh hardened", Condition: policy.ConditionAll}
	e := BuildCheck(42, "CIS Linux", "cis_linux", c, policy.Found, "", map[string]string{"file": "/etc/ssh/sshd_config"})

	require.Equal(t, "check", e.Type)
	require.EqualValues(t, 42, e.ScanID)
	assert.Equal(t, "passed", e.Check.Result)
	assert.Empty(t, e.Check.Status)
	assert.Empty(t, e.Check.Reason)
	assert.Equal(t, "/etc/ssh/sshd_config", e.Check.File)
}

func TestBuildCheckInvalid(t *testing.T) {
	c := policy.Check{ID: 2, Title: "foo"}
	e := BuildCheck(1, "p", "p_id", c, policy.Invalid, "could not evaluate: c:foo", nil)

	assert.Equal(t, "Not applicable", e.Check.Status)
	assert.NotEmpty(t, e.Check.Reason)
	assert.Empty(t, e.Check.Result)
}

func TestBuildSummaryScore(t *testing.T) {
	s := BuildSummary("p_id", "p", 3, 1, 0, 100, 200, 7, "hash1", "hash2", false)
	assert.InDelta(t, 75.0, s.Score, 0.001)

	zero := BuildSummary("p_id", "p", 0, 0, 5, 100, 200, 7, "hash1", "hash2", false)
	assert.InDelta(t, 0.0, zero.Score, 0.001)

	fractional := BuildSummary("p_id", "p", 1, 2, 0, 100, 200, 7, "hash1", "hash2", false)
	assert.InDelta(t, 33.333, fractional.Score, 0.01)
}

func TestForceAlertClone(t *testing.T) {
	s := BuildSummary("p_id", "p", 1, 0, 0, 1, 2, 3, "h1", "h2", true)
	clone := ForceAlertClone(s)

	assert.False(t, clone.FirstScan, "clone should clear first_scan")
	assert.Equal(t, "1", clone.ForceAlert, "clone should set force_alert")
	assert.True(t, s.FirstScan, "original summary must not be mutated")
}
