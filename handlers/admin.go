// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/danielhkuo/quickly-vote/audit"
	"github.com/danielhkuo/quickly-vote/election"
	"github.com/danielhkuo/quickly-vote/ledger"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/store"
)

// AdminHandler serves the administrator routes. Every route is wrapped with
// middleware.RequireAdmin by the router.
type AdminHandler struct {
	store   *store.Store
	ledger  *ledger.Ledger
	auditor *audit.Auditor
	now     func() time.Time
}

// recentWindow and recentLimit bound the activity list of OverallStats
const (
	recentWindow = 24 * time.Hour
	recentLimit  = 5
)

func NewAdminHandler(s *store.Store, l *ledger.Ledger, a *audit.Auditor) *AdminHandler {
	return &AdminHandler{store: s, ledger: l, auditor: a, now: time.Now}
}

// CreateElection handles POST /admin/elections
func (h *AdminHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	id, err := h.store.CreateElection(r.Context(), store.NewElection{
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{ElectionID: id})
}

// UpdateElection handles PATCH /admin/elections/{id}
// Only title and description; the window and flag have their own routes.
func (h *AdminHandler) UpdateElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateElectionRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.store.UpdateElectionDetails(r.Context(), electionID, req.Title, req.Description); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateWindow handles PUT /admin/elections/{id}/window
func (h *AdminHandler) UpdateWindow(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateWindowRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.store.UpdateElectionWindow(r.Context(), electionID, req.StartsAt, req.EndsAt); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetStatus handles POST /admin/elections/{id}/status
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.SetStatusRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.store.SetElectionStatus(r.Context(), electionID, req.Status); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteElection handles DELETE /admin/elections/{id}
func (h *AdminHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteElection(r.Context(), electionID); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddCandidate handles POST /admin/elections/{id}/candidates
func (h *AdminHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	id, err := h.store.AddCandidate(r.Context(), electionID, store.CandidateDetails{
		Name:        req.Name,
		Party:       req.Party,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.AddCandidateResponse{CandidateID: id})
}

// UpdateCandidate handles PATCH /admin/candidates/{id}
func (h *AdminHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateCandidateRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	err := h.store.UpdateCandidate(r.Context(), candidateID, store.CandidateDetails{
		Name:        req.Name,
		Party:       req.Party,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	c, err := h.store.GetCandidate(r.Context(), candidateID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, c)
}

// DeleteCandidate handles DELETE /admin/candidates/{id}
func (h *AdminHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteCandidate(r.Context(), candidateID); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Integrity handles GET /admin/elections/{id}/integrity
func (h *AdminHandler) Integrity(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	report, err := h.auditor.Verify(r.Context(), electionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, report)
}

// Stats handles GET /admin/elections/{id}/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.store.GetElection(r.Context(), electionID); err != nil {
		writeStoreError(w, err)
		return
	}

	tally, err := h.ledger.Tally(r.Context(), electionID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute tally")
		return
	}
	hourly, err := h.ledger.HourlyBreakdown(r.Context(), electionID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute hourly breakdown")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.StatsResponse{Tally: tally, Hourly: hourly})
}

// OverallStats handles GET /admin/stats
func (h *AdminHandler) OverallStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.overallStats(r.Context())
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stats)
}

func (h *AdminHandler) overallStats(ctx context.Context) (models.OverallStats, error) {
	now := h.now().UTC()
	stats := models.OverallStats{ComputedAt: now, RecentActivity: []models.ElectionActivity{}}

	elections, err := h.store.ListElections(ctx)
	if err != nil {
		return stats, err
	}
	if stats.TotalCandidates, err = h.store.CountCandidates(ctx); err != nil {
		return stats, err
	}
	if stats.TotalBallots, err = h.ledger.TotalBallots(ctx); err != nil {
		return stats, err
	}
	recent, err := h.ledger.BallotsSince(ctx, now.Add(-recentWindow))
	if err != nil {
		return stats, err
	}

	stats.TotalElections = int64(len(elections))
	for _, e := range elections {
		if election.Effective(e, now) != models.StatusActive {
			continue
		}
		stats.ActiveElections++
		if n := recent[e.ID]; n > 0 {
			stats.RecentActivity = append(stats.RecentActivity, models.ElectionActivity{
				ElectionID: e.ID,
				Title:      e.Title,
				Ballots:    n,
			})
		}
	}

	sort.Slice(stats.RecentActivity, func(i, j int) bool {
		a, b := stats.RecentActivity[i], stats.RecentActivity[j]
		if a.Ballots != b.Ballots {
			return a.Ballots > b.Ballots
		}
		return a.ElectionID < b.ElectionID
	})
	if len(stats.RecentActivity) > recentLimit {
		stats.RecentActivity = stats.RecentActivity[:recentLimit]
	}
	return stats, nil
}

// writeStoreError maps store sentinels to HTTP statuses. Anything else is a
// storage failure.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrElectionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
	case errors.Is(err, store.ErrCandidateNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
	case errors.Is(err, store.ErrTitleRequired),
		errors.Is(err, store.ErrNameRequired),
		errors.Is(err, store.ErrInvalidWindow),
		errors.Is(err, store.ErrInvalidStatus):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrElectionHasBallots),
		errors.Is(err, store.ErrElectionStarted),
		errors.Is(err, store.ErrCandidateExists),
		errors.Is(err, store.ErrCandidateHasVotes):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
	}
}
