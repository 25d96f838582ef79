// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

Typed records constructed at the storage boundary:

  - Election: title, window (starts_at, ends_at), administrator status flag
  - Candidate: belongs to one election, unique name within it, display
    fields (party, description, photo_url), and the denormalized vote_count
  - Ballot: one immutable cast-vote record keyed by (election_id, voter key)
  - BallotReceipt: ballot_id and cast_at handed back to the voter

# Tallies and Integrity

  - Tally / CandidateTally: per-candidate counts with percentages
  - HourlyCount: ballots cast per UTC hour
  - IntegrityReport: duplicate voter keys and counter mismatches
  - OverallStats / ElectionActivity: totals across all elections and the
    last 24 hours of activity

# Request Types

  - CastVoteRequest: candidate_id
  - CreateElectionRequest: title, description, starts_at, ends_at
  - UpdateElectionRequest: title, description
  - UpdateWindowRequest: starts_at, ends_at
  - SetStatusRequest: status
  - AddCandidateRequest, UpdateCandidateRequest: name, party, description, photo_url

# Response Types

  - CastVoteResponse: success, ballot_id, cast_at
  - CastFailureResponse: success, error_kind, message
  - ElectionWithCandidates, ElectionSummary
  - CreateElectionResponse, AddCandidateResponse, BallotCountResponse, StatsResponse
  - VoteStatusResponse: has_voted
  - ErrorResponse: error, message

# Constants

Status values:

	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"

Cast failure kinds (closed set):

	KindElectionNotFound
	KindElectionNotActive
	KindInvalidCandidate
	KindAlreadyVoted
	KindCastFailed
*/
package models
