// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/quickly-vote/metrics"
	"github.com/danielhkuo/quickly-vote/models"
)

// Catalog confirms the election exists before it is inspected.
type Catalog interface {
	GetElection(ctx context.Context, id int64) (models.Election, error)
}

// Inspector recomputes counters from the ballot log in one snapshot.
type Inspector interface {
	Inspect(ctx context.Context, electionID int64) (models.IntegrityReport, error)
}

// Auditor is read-only. It reports divergence and never corrects it.
type Auditor struct {
	catalog   Catalog
	inspector Inspector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type OptionFunc func(*Auditor)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(a *Auditor) {
		a.logger = logger
	}
}

// WithMetrics specifies the collectors that count audit findings
func WithMetrics(m *metrics.Metrics) OptionFunc {
	return func(a *Auditor) {
		a.metrics = m
	}
}

func New(catalog Catalog, inspector Inspector, opts ...OptionFunc) *Auditor {
	a := &Auditor{
		catalog:   catalog,
		inspector: inspector,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Verify checks one election. Duplicate voter keys should be impossible
// and are logged as critical alerts; counter mismatches are logged as
// errors. Both are returned to the caller for an administrator to act on.
func (a *Auditor) Verify(ctx context.Context, electionID int64) (models.IntegrityReport, error) {
	if _, err := a.catalog.GetElection(ctx, electionID); err != nil {
		return models.IntegrityReport{}, err
	}

	report, err := a.inspector.Inspect(ctx, electionID)
	if err != nil {
		return models.IntegrityReport{}, fmt.Errorf("inspect election %d: %w", electionID, err)
	}
	a.metrics.ObserveAudit(report)

	log := a.logger.With("election_id", electionID)

	if len(report.Duplicates) > 0 {
		log.Error("duplicate ballots found",
			"alert", "critical",
			"duplicate_keys", len(report.Duplicates),
			"ballot_count", report.BallotCount,
		)
	}
	for _, m := range report.CountMismatches {
		log.Error("vote count mismatch",
			"candidate_id", m.CandidateID,
			"stored", m.Stored,
			"actual", m.Actual,
		)
	}
	if report.Clean() {
		log.Info("integrity check passed", "ballot_count", report.BallotCount)
	}

	return report, nil
}
