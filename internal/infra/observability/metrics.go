// Package observability exposes replay counters as Prometheus metrics.
//
// Metrics are registered on a caller-supplied registerer rather than the
// global default, so every run (and every test) gets a clean set.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tutu-network/ledger/internal/domain"
)

// ReplayMetrics tracks one ledger replay.
type ReplayMetrics struct {
	Records   *prometheus.CounterVec
	Malformed prometheus.Counter
	Accounts  prometheus.Gauge
	Locked    prometheus.Gauge
	Duration  prometheus.Histogram
}

// NewReplayMetrics registers the replay metrics on reg.
func NewReplayMetrics(reg prometheus.Registerer) *ReplayMetrics {
	f := promauto.With(reg)
	return &ReplayMetrics{
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "replay",
			Name:      "records_total",
			Help:      "Records replayed, by kind and outcome (applied or rejection reason).",
		}, []string{"kind", "outcome"}),

		Malformed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "replay",
			Name:      "malformed_rows_total",
			Help:      "Input rows that could not be decoded into a record.",
		}),

		Accounts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Subsystem: "replay",
			Name:      "accounts",
			Help:      "Client accounts in the final snapshot.",
		}),

		Locked: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Subsystem: "replay",
			Name:      "locked_accounts",
			Help:      "Client accounts locked by a chargeback.",
		}),

		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: "replay",
			Name:      "duration_seconds",
			Help:      "Wall time of a full replay.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

// Observe implements ledger.Observer.
func (m *ReplayMetrics) Observe(rec domain.Record, outcome domain.Outcome) {
	m.Records.WithLabelValues(rec.Kind.String(), outcome.Label()).Inc()
}

// MalformedRow counts one undecodable input row.
func (m *ReplayMetrics) MalformedRow() {
	m.Malformed.Inc()
}

// Finish records the final snapshot shape and the replay duration.
func (m *ReplayMetrics) Finish(snap domain.Snapshot, elapsed time.Duration) {
	m.Accounts.Set(float64(len(snap)))
	m.Locked.Set(float64(snap.LockedCount()))
	m.Duration.Observe(elapsed.Seconds())
}
