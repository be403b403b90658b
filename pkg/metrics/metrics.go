// Package metrics provides Prometheus metrics for the SCA engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sca"

var (
	// ScanDuration tracks the time taken for a policy scan.
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of a single policy scan in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"policy_id"},
	)

	// ComplianceScore is the latest score (passed / (passed+failed) * 100)
	// for a policy.
	ComplianceScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compliance_score",
			Help:      "Latest compliance score as a percentage (0-100).",
		},
		[]string{"policy_id"},
	)

	// ChecksTotal tracks the latest passed/failed/invalid tallies for a
	// policy.
	ChecksTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Latest check counts from a policy scan, by result.",
		},
		[]string{"policy_id", "result"},
	)

	// ScanTotal counts scans executed, by outcome.
	ScanTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_total",
			Help:      "Total number of policy scans executed.",
		},
		[]string{"policy_id", "status"},
	)

	// LastScanTimestamp records the Unix timestamp of the last scan of a
	// policy.
	LastScanTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_timestamp",
			Help:      "Unix timestamp of the last scan of a policy.",
		},
		[]string{"policy_id"},
	)

	// DumpRequestsTotal counts dump requests, by outcome (queued, dropped,
	// unknown_policy, serviced).
	DumpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dump_requests_total",
			Help:      "Total number of dump requests, by outcome.",
		},
		[]string{"outcome"},
	)

	// DumpQueueDepth reports the current depth of the dump request queue.
	DumpQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dump_queue_depth",
			Help:      "Current number of requests waiting in the dump queue.",
		},
	)

	// SinkEventsTotal counts events passed to the sink, by outcome (sent,
	// dropped).
	SinkEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_events_total",
			Help:      "Total number of events passed to the sink, by outcome.",
		},
		[]string{"outcome"},
	)
)

// RecordScan updates all per-policy scan metrics from a completed scan.
func RecordScan(policyID string, duration time.Duration, passed, failed, invalid int, score float64, status string, endTime time.Time) {
	ScanDuration.WithLabelValues(policyID).Observe(duration.Seconds())
	ComplianceScore.WithLabelValues(policyID).Set(score)
	ChecksTotal.WithLabelValues(policyID, "passed").Set(float64(passed))
	ChecksTotal.WithLabelValues(policyID, "failed").Set(float64(failed))
	ChecksTotal.WithLabelValues(policyID, "invalid").Set(float64(invalid))
	ScanTotal.WithLabelValues(policyID, status).Inc()
	LastScanTimestamp.WithLabelValues(policyID).Set(float64(endTime.Unix()))
}
