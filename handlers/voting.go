// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/danielhkuo/quickly-vote/caster"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/models"
)

// VoteCaster is the casting core the voting handler forwards to.
type VoteCaster interface {
	CastVote(ctx context.Context, req caster.Request) (models.BallotReceipt, error)
	HasVoted(ctx context.Context, voterID string, electionID int64) (bool, error)
}

type VotingHandler struct {
	caster VoteCaster
}

func NewVotingHandler(c VoteCaster) *VotingHandler {
	return &VotingHandler{caster: c}
}

// CastVote handles POST /elections/{id}/votes
// The voter is identified by X-Voter-ID, set by the authentication layer.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	voterID := middleware.VoterID(r)
	if voterID == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authenticated voter required")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.CandidateID <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	receipt, err := h.caster.CastVote(r.Context(), caster.Request{
		VoterID:     voterID,
		ElectionID:  electionID,
		CandidateID: req.CandidateID,
		OriginIP:    middleware.GetClientIP(r),
	})
	if err != nil {
		writeCastFailure(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		Success:  true,
		BallotID: receipt.BallotID,
		CastAt:   receipt.CastAt,
	})
}

// VoteStatus handles GET /elections/{id}/my-vote
func (h *VotingHandler) VoteStatus(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	voterID := middleware.VoterID(r)
	if voterID == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authenticated voter required")
		return
	}

	voted, err := h.caster.HasVoted(r.Context(), voterID, electionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteStatusResponse{HasVoted: voted})
}

// castStatus maps each failure kind to its HTTP status
var castStatus = map[models.ErrorKind]int{
	models.KindElectionNotFound:  http.StatusNotFound,
	models.KindElectionNotActive: http.StatusConflict,
	models.KindInvalidCandidate:  http.StatusBadRequest,
	models.KindAlreadyVoted:      http.StatusConflict,
	models.KindCastFailed:        http.StatusServiceUnavailable,
}

func writeCastFailure(w http.ResponseWriter, err error) {
	kind := caster.KindOf(err)

	message := "could not record vote, try again"
	var castErr *caster.CastError
	if errors.As(err, &castErr) {
		message = castErr.Message
	}

	status, ok := castStatus[kind]
	if !ok {
		status = http.StatusServiceUnavailable
	}
	if kind == models.KindCastFailed {
		w.Header().Set("Retry-After", "1")
	}

	middleware.JSONResponse(w, status, models.CastFailureResponse{
		Success:   false,
		ErrorKind: kind,
		Message:   message,
	})
}

// pathID parses a positive integer path value, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
