// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/testutil"
)

// TestFullVotingWorkflow drives an election from creation to published
// results through the handlers only
func TestFullVotingWorkflow(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	// Step 1: create the election
	w := call(f.admin.CreateElection, "POST", 0, models.CreateElectionRequest{
		Title:    "E1",
		StartsAt: now.Add(-time.Minute),
		EndsAt:   now.Add(time.Hour),
	}, adminHeaders)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var created models.CreateElectionResponse
	testutil.AssertJSON(t, w, &created)
	electionID := created.ElectionID

	// Step 2: add candidates
	addCandidate := func(name string) int64 {
		w := call(f.admin.AddCandidate, "POST", electionID, models.AddCandidateRequest{Name: name}, adminHeaders)
		testutil.AssertStatus(t, w, http.StatusCreated)
		var resp models.AddCandidateResponse
		testutil.AssertJSON(t, w, &resp)
		return resp.CandidateID
	}
	c1 := addCandidate("C1")
	c2 := addCandidate("C2")

	cast := func(voter string, candidateID int64) *models.CastFailureResponse {
		w := call(f.voting.CastVote, "POST", electionID, models.CastVoteRequest{CandidateID: candidateID},
			map[string]string{middleware.VoterIDHeader: voter})
		if w.Code == http.StatusCreated {
			return nil
		}
		var resp models.CastFailureResponse
		testutil.AssertJSON(t, w, &resp)
		return &resp
	}

	// Step 3: the flag still holds the election pending
	if failure := cast("V1", c1); failure == nil || failure.ErrorKind != models.KindElectionNotActive {
		t.Fatalf("Expected ElectionNotActive while flagged pending, got %+v", failure)
	}

	// Step 4: open it
	w = call(f.admin.SetStatus, "POST", electionID, models.SetStatusRequest{Status: models.StatusActive}, adminHeaders)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	// Step 5: vote
	if failure := cast("V1", c1); failure != nil {
		t.Fatalf("V1 cast failed: %+v", failure)
	}
	if failure := cast("V2", c2); failure != nil {
		t.Fatalf("V2 cast failed: %+v", failure)
	}
	if failure := cast("V1", c2); failure == nil || failure.ErrorKind != models.KindAlreadyVoted {
		t.Fatalf("Expected AlreadyVoted for V1's second cast, got %+v", failure)
	}

	// Step 6: results stay sealed
	w = call(f.results.GetResults, "GET", electionID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusForbidden)

	// Step 7: close early
	w = call(f.admin.SetStatus, "POST", electionID, models.SetStatusRequest{Status: models.StatusCompleted}, adminHeaders)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	if failure := cast("V3", c1); failure == nil || failure.ErrorKind != models.KindElectionNotActive {
		t.Fatalf("Expected ElectionNotActive after completion, got %+v", failure)
	}

	// Step 8: results are public
	w = call(f.results.GetResults, "GET", electionID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var tally models.Tally
	testutil.AssertJSON(t, w, &tally)

	if tally.TotalVotes != 2 {
		t.Errorf("Expected 2 votes, got %d", tally.TotalVotes)
	}
	for _, c := range tally.Candidates {
		if c.VoteCount != 1 || c.Percentage != 50 {
			t.Errorf("Expected 1 vote at 50%% for %s, got %+v", c.Name, c)
		}
	}

	// Step 9: the books balance
	w = call(f.admin.Integrity, "GET", electionID, nil, adminHeaders)
	testutil.AssertStatus(t, w, http.StatusOK)
	var report models.IntegrityReport
	testutil.AssertJSON(t, w, &report)
	if !report.Clean() || report.BallotCount != 2 {
		t.Errorf("Expected clean report over 2 ballots, got %+v", report)
	}

	// Step 10: no more candidates, no deletion
	w = call(f.admin.AddCandidate, "POST", electionID, models.AddCandidateRequest{Name: "C3"}, adminHeaders)
	testutil.AssertStatus(t, w, http.StatusConflict)
	w = call(f.admin.DeleteElection, "DELETE", electionID, nil, adminHeaders)
	testutil.AssertStatus(t, w, http.StatusConflict)
}
