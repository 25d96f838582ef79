// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package caster

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/quickly-vote/election"
	"github.com/danielhkuo/quickly-vote/ledger"
	"github.com/danielhkuo/quickly-vote/metrics"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/store"
	"github.com/google/uuid"
)

// DefaultTxTimeout bounds the ledger transaction when no option sets it.
const DefaultTxTimeout = 5 * time.Second

// Catalog looks up elections and candidates. Missing rows are reported
// with store.ErrElectionNotFound and store.ErrCandidateNotFound.
type Catalog interface {
	GetElection(ctx context.Context, id int64) (models.Election, error)
	GetCandidate(ctx context.Context, id int64) (models.Candidate, error)
}

// Ledger performs the atomic ballot write and answers ballot lookups.
type Ledger interface {
	AppendBallotAndIncrement(ctx context.Context, b models.Ballot) error
	HasVoted(ctx context.Context, electionID int64, voterKey string) (bool, error)
}

// Anonymizer derives the per-election voter key and hashes client origins.
type Anonymizer interface {
	DeriveKey(voterID string, electionID int64) string
	HashOrigin(ip string) string
}

// Request is one authenticated cast attempt. OriginIP is optional.
type Request struct {
	VoterID     string
	ElectionID  int64
	CandidateID int64
	OriginIP    string
}

type Caster struct {
	catalog    Catalog
	ledger     Ledger
	anonymizer Anonymizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	txTimeout  time.Duration
}

type OptionFunc func(*Caster)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(c *Caster) {
		c.logger = logger
	}
}

// WithMetrics specifies the collectors that record cast outcomes
func WithMetrics(m *metrics.Metrics) OptionFunc {
	return func(c *Caster) {
		c.metrics = m
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) OptionFunc {
	return func(c *Caster) {
		c.now = now
	}
}

// WithTxTimeout bounds each ledger transaction
func WithTxTimeout(d time.Duration) OptionFunc {
	return func(c *Caster) {
		if d > 0 {
			c.txTimeout = d
		}
	}
}

func New(catalog Catalog, ledger Ledger, anonymizer Anonymizer, opts ...OptionFunc) *Caster {
	c := &Caster{
		catalog:    catalog,
		ledger:     ledger,
		anonymizer: anonymizer,
		now:        time.Now,
		txTimeout:  DefaultTxTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// CastVote records one ballot for req.VoterID in req.ElectionID. Every
// failure is a *CastError and leaves no ballot or counter change behind.
// AlreadyVoted is terminal and must not be retried; CastFailed may be
// retried from scratch.
func (c *Caster) CastVote(ctx context.Context, req Request) (models.BallotReceipt, error) {
	began := time.Now()
	receipt, err := c.cast(ctx, req)
	c.metrics.ObserveCast(KindOf(err), time.Since(began))
	return receipt, err
}

// HasVoted reports whether voterID already has a ballot in the election.
// CastVote never consults it. Missing elections yield store.ErrElectionNotFound.
func (c *Caster) HasVoted(ctx context.Context, voterID string, electionID int64) (bool, error) {
	if _, err := c.catalog.GetElection(ctx, electionID); err != nil {
		return false, err
	}
	return c.ledger.HasVoted(ctx, electionID, c.anonymizer.DeriveKey(voterID, electionID))
}

func (c *Caster) cast(ctx context.Context, req Request) (models.BallotReceipt, error) {
	now := c.now().UTC()
	log := c.logger.With("election_id", req.ElectionID, "candidate_id", req.CandidateID)

	if req.VoterID == "" {
		return models.BallotReceipt{}, fail(models.KindCastFailed, "voter identity is required", nil)
	}

	e, err := c.catalog.GetElection(ctx, req.ElectionID)
	if errors.Is(err, store.ErrElectionNotFound) {
		log.Debug("vote rejected", "error_kind", models.KindElectionNotFound)
		return models.BallotReceipt{}, fail(models.KindElectionNotFound, "election not found", nil)
	}
	if err != nil {
		log.Error("failed to load election", "error", err)
		return models.BallotReceipt{}, fail(models.KindCastFailed, "could not record vote, try again", err)
	}

	if !election.AcceptsBallots(e, now) {
		state := election.Effective(e, now)
		log.Debug("vote rejected", "error_kind", models.KindElectionNotActive, "state", state)
		return models.BallotReceipt{}, fail(models.KindElectionNotActive, "election is "+string(state), nil)
	}

	candidate, err := c.catalog.GetCandidate(ctx, req.CandidateID)
	if errors.Is(err, store.ErrCandidateNotFound) || (err == nil && candidate.ElectionID != req.ElectionID) {
		log.Debug("vote rejected", "error_kind", models.KindInvalidCandidate)
		return models.BallotReceipt{}, fail(models.KindInvalidCandidate, "candidate is not part of this election", nil)
	}
	if err != nil {
		log.Error("failed to load candidate", "error", err)
		return models.BallotReceipt{}, fail(models.KindCastFailed, "could not record vote, try again", err)
	}

	b := models.Ballot{
		ID:             uuid.NewString(),
		ElectionID:     req.ElectionID,
		CandidateID:    req.CandidateID,
		VoterAnonymKey: c.anonymizer.DeriveKey(req.VoterID, req.ElectionID),
		CastAt:         now,
	}
	if req.OriginIP != "" {
		origin := c.anonymizer.HashOrigin(req.OriginIP)
		b.IPHash = &origin
	}

	txCtx, cancel := context.WithTimeout(ctx, c.txTimeout)
	defer cancel()

	err = c.ledger.AppendBallotAndIncrement(txCtx, b)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrDuplicateBallot):
		log.Info("vote rejected", "error_kind", models.KindAlreadyVoted)
		return models.BallotReceipt{}, fail(models.KindAlreadyVoted, "a ballot has already been cast in this election", nil)
	case errors.Is(err, ledger.ErrCandidateMismatch):
		log.Warn("candidate left election during cast", "error_kind", models.KindInvalidCandidate)
		return models.BallotReceipt{}, fail(models.KindInvalidCandidate, "candidate is not part of this election", err)
	default:
		log.Error("ballot transaction failed", "error", err, "timed_out", errors.Is(err, context.DeadlineExceeded))
		return models.BallotReceipt{}, fail(models.KindCastFailed, "could not record vote, try again", err)
	}

	log.Info("vote cast", "ballot_id", b.ID)
	return models.BallotReceipt{BallotID: b.ID, CastAt: b.CastAt}, nil
}
