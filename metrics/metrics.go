// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"sync"
	"time"

	"github.com/danielhkuo/quickly-vote/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label for successful casts. Failures use their ErrorKind.
const OutcomeSuccess = "success"

// Finding kinds reported by the integrity auditor
const (
	FindingDuplicate = "duplicate"
	FindingMismatch  = "count_mismatch"
)

// Metrics holds the Prometheus collectors for casting and auditing. A nil
// *Metrics, or one that was never registered, records nothing.
type Metrics struct {
	casts         *prometheus.CounterVec
	castDuration  prometheus.Histogram
	auditRuns     prometheus.Counter
	auditFindings *prometheus.CounterVec

	// registerOnce ensures collectors are only registered once
	registerOnce sync.Once
}

func New() *Metrics {
	return &Metrics{}
}

// Register registers the collectors with the given registry. A nil
// registry is a no-op and repeated calls are ignored.
func (m *Metrics) Register(registry prometheus.Registerer) {
	if m == nil || registry == nil {
		return
	}

	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.casts = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickly_vote_casts_total",
			Help: "Total vote cast attempts by outcome",
		}, []string{"outcome"})

		m.castDuration = factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quickly_vote_cast_duration_seconds",
			Help:    "Time spent casting a vote, including the ledger transaction",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		})

		m.auditRuns = factory.NewCounter(prometheus.CounterOpts{
			Name: "quickly_vote_audit_runs_total",
			Help: "Total integrity audits run",
		})

		m.auditFindings = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickly_vote_audit_findings_total",
			Help: "Integrity findings by kind",
		}, []string{"kind"})

		// Pre-create every label so dashboards see zeros
		m.casts.WithLabelValues(OutcomeSuccess)
		for _, kind := range []models.ErrorKind{
			models.KindElectionNotFound,
			models.KindElectionNotActive,
			models.KindInvalidCandidate,
			models.KindAlreadyVoted,
			models.KindCastFailed,
		} {
			m.casts.WithLabelValues(string(kind))
		}
		m.auditFindings.WithLabelValues(FindingDuplicate)
		m.auditFindings.WithLabelValues(FindingMismatch)
	})
}

// ObserveCast records one cast attempt. An empty kind means success.
func (m *Metrics) ObserveCast(kind models.ErrorKind, elapsed time.Duration) {
	if m == nil || m.casts == nil {
		return
	}

	outcome := OutcomeSuccess
	if kind != "" {
		outcome = string(kind)
	}
	m.casts.WithLabelValues(outcome).Inc()
	m.castDuration.Observe(elapsed.Seconds())
}

// ObserveAudit records one audit run and its findings.
func (m *Metrics) ObserveAudit(report models.IntegrityReport) {
	if m == nil || m.auditRuns == nil {
		return
	}

	m.auditRuns.Inc()
	if n := len(report.Duplicates); n > 0 {
		m.auditFindings.WithLabelValues(FindingDuplicate).Add(float64(n))
	}
	if n := len(report.CountMismatches); n > 0 {
		m.auditFindings.WithLabelValues(FindingMismatch).Add(float64(n))
	}
}
