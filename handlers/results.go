// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/election"
	"github.com/danielhkuo/quickly-vote/ledger"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/store"
)

type ResultsHandler struct {
	store  *store.Store
	ledger *ledger.Ledger
	cfg    cliparse.Config
	now    func() time.Time
}

func NewResultsHandler(s *store.Store, l *ledger.Ledger, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{store: s, ledger: l, cfg: cfg, now: time.Now}
}

// ListElections handles GET /elections
func (h *ResultsHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.store.ListElections(r.Context())
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	now := h.now()
	summaries := make([]models.ElectionSummary, 0, len(elections))
	for _, e := range elections {
		summaries = append(summaries, models.ElectionSummary{
			Election: e,
			State:    election.Effective(e, now),
		})
	}

	middleware.JSONResponse(w, http.StatusOK, summaries)
}

// GetElection handles GET /elections/{id}
// Candidate vote counts are zeroed until results are public.
func (h *ResultsHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := h.store.GetElection(r.Context(), electionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	candidates, err := h.store.ListCandidates(r.Context(), electionID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	now := h.now()
	if !h.resultsVisible(r, e, now) {
		for i := range candidates {
			candidates[i].VoteCount = 0
		}
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionWithCandidates{
		Election:   e,
		State:      election.Effective(e, now),
		Candidates: candidates,
	})
}

// GetResults handles GET /elections/{id}/results
// Returns 403 until the election has completed, unless the caller is an
// administrator.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := h.store.GetElection(r.Context(), electionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if !h.resultsVisible(r, e, h.now()) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Results are hidden until the election has completed")
		return
	}

	tally, err := h.ledger.Tally(r.Context(), electionID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute results")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, tally)
}

// GetBallotCount handles GET /elections/{id}/ballot-count
// Turnout only, never per-candidate counts.
func (h *ResultsHandler) GetBallotCount(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.store.GetElection(r.Context(), electionID); err != nil {
		writeStoreError(w, err)
		return
	}

	count, err := h.ledger.BallotCount(r.Context(), electionID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.BallotCountResponse{BallotCount: count})
}

func (h *ResultsHandler) resultsVisible(r *http.Request, e models.Election, now time.Time) bool {
	if election.ResultsPublic(e, now) {
		return true
	}
	if middleware.IsAdmin(r, h.cfg.AdminKey) {
		slog.Debug("admin read of unpublished results", "election_id", e.ID)
		return true
	}
	return false
}
