package models

import "time"

// ElectionStatus is both the administrator-settable flag stored on an
// election and the computed state returned by the election window.
type ElectionStatus string

// Election status constants
const (
	StatusPending   ElectionStatus = "pending"
	StatusActive    ElectionStatus = "active"
	StatusCompleted ElectionStatus = "completed"
)

// Valid reports whether s is one of the three known statuses.
func (s ElectionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// ErrorKind is the closed set of reasons a cast attempt can fail.
type ErrorKind string

// Cast failure kinds
const (
	KindElectionNotFound  ErrorKind = "ElectionNotFound"
	KindElectionNotActive ErrorKind = "ElectionNotActive"
	KindInvalidCandidate  ErrorKind = "InvalidCandidate"
	KindAlreadyVoted      ErrorKind = "AlreadyVoted"
	KindCastFailed        ErrorKind = "CastFailed"
)

// Domain types

type Election struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	StartsAt    time.Time      `json:"starts_at"`
	EndsAt      time.Time      `json:"ends_at"`
	Status      ElectionStatus `json:"status"` // administrator flag, narrows the window only
	CreatedAt   time.Time      `json:"created_at"`
}

// Candidate names are unique within an election. Party, description and
// photo URL are display fields only.
type Candidate struct {
	ID          int64  `json:"id"`
	ElectionID  int64  `json:"election_id"`
	Name        string `json:"name"`
	Party       string `json:"party"`
	Description string `json:"description"`
	PhotoURL    string `json:"photo_url"`
	VoteCount   int64  `json:"vote_count"`
}

// Ballot is one immutable cast-vote record. The voter key and origin hash
// never leave the storage boundary.
type Ballot struct {
	ID             string    `json:"id"`
	ElectionID     int64     `json:"election_id"`
	CandidateID    int64     `json:"candidate_id"`
	VoterAnonymKey string    `json:"-"` // Never expose in JSON
	CastAt         time.Time `json:"cast_at"`
	IPHash         *string   `json:"-"` // Never expose in JSON
}

// BallotReceipt is what a successful cast hands back to the voter.
type BallotReceipt struct {
	BallotID string    `json:"ballot_id"`
	CastAt   time.Time `json:"cast_at"`
}

// Tally types

type CandidateTally struct {
	CandidateID int64   `json:"candidate_id"`
	Name        string  `json:"name"`
	VoteCount   int64   `json:"vote_count"`
	Percentage  float64 `json:"percentage"`
}

type Tally struct {
	ElectionID int64            `json:"election_id"`
	TotalVotes int64            `json:"total_votes"`
	Candidates []CandidateTally `json:"candidates"`
	ComputedAt time.Time        `json:"computed_at"`
}

type HourlyCount struct {
	Hour  time.Time `json:"hour"`
	Count int64     `json:"count"`
}

// Overview types

type ElectionActivity struct {
	ElectionID int64  `json:"election_id"`
	Title      string `json:"title"`
	Ballots    int64  `json:"ballots"`
}

// OverallStats summarises every election. RecentActivity covers the active
// elections with the most ballots cast in the last 24 hours.
type OverallStats struct {
	TotalElections  int64              `json:"total_elections"`
	ActiveElections int64              `json:"active_elections"`
	TotalCandidates int64              `json:"total_candidates"`
	TotalBallots    int64              `json:"total_ballots"`
	RecentActivity  []ElectionActivity `json:"recent_activity"`
	ComputedAt      time.Time          `json:"computed_at"`
}

// Integrity types

type CountMismatch struct {
	CandidateID int64 `json:"candidate_id"`
	Stored      int64 `json:"stored"`
	Actual      int64 `json:"actual"`
}

// IntegrityReport lists every divergence found between the ballot log and
// the stored counters. Duplicates should be structurally impossible.
type IntegrityReport struct {
	ElectionID      int64           `json:"election_id"`
	Duplicates      []string        `json:"duplicates"`
	CountMismatches []CountMismatch `json:"count_mismatches"`
	BallotCount     int64           `json:"ballot_count"`
	CheckedAt       time.Time       `json:"checked_at"`
}

// Clean reports whether the report carries no findings.
func (r IntegrityReport) Clean() bool {
	return len(r.Duplicates) == 0 && len(r.CountMismatches) == 0
}

// Request types

type CastVoteRequest struct {
	CandidateID int64 `json:"candidate_id"`
}

type CreateElectionRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

type UpdateElectionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type UpdateWindowRequest struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type SetStatusRequest struct {
	Status ElectionStatus `json:"status"`
}

type AddCandidateRequest struct {
	Name        string `json:"name"`
	Party       string `json:"party"`
	Description string `json:"description"`
	PhotoURL    string `json:"photo_url"`
}

type UpdateCandidateRequest struct {
	Name        string `json:"name"`
	Party       string `json:"party"`
	Description string `json:"description"`
	PhotoURL    string `json:"photo_url"`
}

// Response types

type CastVoteResponse struct {
	Success  bool      `json:"success"`
	BallotID string    `json:"ballot_id"`
	CastAt   time.Time `json:"cast_at"`
}

type CastFailureResponse struct {
	Success   bool      `json:"success"`
	ErrorKind ErrorKind `json:"error_kind"`
	Message   string    `json:"message"`
}

type ElectionWithCandidates struct {
	Election   Election       `json:"election"`
	State      ElectionStatus `json:"state"` // computed from the window and the flag
	Candidates []Candidate    `json:"candidates"`
}

type ElectionSummary struct {
	Election Election       `json:"election"`
	State    ElectionStatus `json:"state"`
}

type CreateElectionResponse struct {
	ElectionID int64 `json:"election_id"`
}

type AddCandidateResponse struct {
	CandidateID int64 `json:"candidate_id"`
}

type VoteStatusResponse struct {
	HasVoted bool `json:"has_voted"`
}

type BallotCountResponse struct {
	BallotCount int64 `json:"ballot_count"`
}

type StatsResponse struct {
	Tally  Tally         `json:"tally"`
	Hourly []HourlyCount `json:"hourly"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
