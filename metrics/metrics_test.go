// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"testing"
	"time"

	"github.com/danielhkuo/quickly-vote/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCast(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New()
	m.Register(registry)

	m.ObserveCast("", 5*time.Millisecond)
	m.ObserveCast("", 3*time.Millisecond)
	m.ObserveCast(models.KindAlreadyVoted, time.Millisecond)

	tests := []struct {
		outcome string
		want    float64
	}{
		{OutcomeSuccess, 2},
		{string(models.KindAlreadyVoted), 1},
		{string(models.KindCastFailed), 0},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			got := testutil.ToFloat64(m.casts.WithLabelValues(tt.outcome))
			if got != tt.want {
				t.Errorf("casts{outcome=%q} = %v, want %v", tt.outcome, got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(m.castDuration); n != 1 {
		t.Errorf("Expected one duration histogram, got %d", n)
	}
}

func TestObserveAudit(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New()
	m.Register(registry)

	m.ObserveAudit(models.IntegrityReport{})
	m.ObserveAudit(models.IntegrityReport{
		Duplicates: []string{"a", "b"},
		CountMismatches: []models.CountMismatch{
			{CandidateID: 1, Stored: 2, Actual: 1},
		},
	})

	if got := testutil.ToFloat64(m.auditRuns); got != 2 {
		t.Errorf("audit runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.auditFindings.WithLabelValues(FindingDuplicate)); got != 2 {
		t.Errorf("duplicate findings = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.auditFindings.WithLabelValues(FindingMismatch)); got != 1 {
		t.Errorf("mismatch findings = %v, want 1", got)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New()

	// A second registration would panic on duplicate collectors
	m.Register(registry)
	m.Register(registry)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"quickly_vote_casts_total",
		"quickly_vote_audit_findings_total",
	} {
		if !names[want] {
			t.Errorf("Expected %s to be registered", want)
		}
	}
}

func TestNilSafe(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.Register(prometheus.NewRegistry())
	nilMetrics.ObserveCast(models.KindCastFailed, time.Second)
	nilMetrics.ObserveAudit(models.IntegrityReport{Duplicates: []string{"x"}})

	unregistered := New()
	unregistered.Register(nil)
	unregistered.ObserveCast("", time.Second)
	unregistered.ObserveAudit(models.IntegrityReport{})
}
