// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/election"
	"github.com/danielhkuo/quickly-vote/models"
)

var (
	ErrElectionNotFound   = errors.New("election not found")
	ErrCandidateNotFound  = errors.New("candidate not found")
	ErrInvalidWindow      = errors.New("election must start before it ends")
	ErrInvalidStatus      = errors.New("invalid election status")
	ErrTitleRequired      = errors.New("title is required")
	ErrNameRequired       = errors.New("candidate name is required")
	ErrElectionHasBallots = errors.New("election has cast ballots")
	ErrElectionStarted    = errors.New("candidates can only change while the election is pending")
	ErrCandidateHasVotes  = errors.New("candidate has votes")
	ErrCandidateExists    = errors.New("a candidate with this name already exists in this election")
)

// NewElection carries the administrator-supplied fields for CreateElection.
type NewElection struct {
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
}

// CandidateDetails are the administrator-supplied candidate fields. Only
// Name is required.
type CandidateDetails struct {
	Name        string
	Party       string
	Description string
	PhotoURL    string
}

func (d CandidateDetails) trimmed() CandidateDetails {
	return CandidateDetails{
		Name:        strings.TrimSpace(d.Name),
		Party:       strings.TrimSpace(d.Party),
		Description: strings.TrimSpace(d.Description),
		PhotoURL:    strings.TrimSpace(d.PhotoURL),
	}
}

// Store is the administrative boundary for elections and candidates. It
// never touches ballots or counters beyond reading them for guards.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
	logger  *slog.Logger
	now     func() time.Time
}

func New(conn *sql.DB, dialect db.Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:      conn,
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
	}
}

const electionColumns = `id, title, description, starts_at, ends_at, status, created_at`

// CreateElection inserts a pending election and returns its ID.
func (s *Store) CreateElection(ctx context.Context, in NewElection) (int64, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return 0, ErrTitleRequired
	}
	if !election.ValidWindow(in.StartsAt, in.EndsAt) {
		return 0, ErrInvalidWindow
	}

	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		INSERT INTO election (title, description, starts_at, ends_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`), title, strings.TrimSpace(in.Description), in.StartsAt.UTC(), in.EndsAt.UTC(),
		string(models.StatusPending), s.now().UTC()).Scan(&id)
	if err != nil {
		return 0, s.logError("store_create_election_failed", err, "title", title)
	}

	s.logger.Info("election created", "election_id", id, "title", title)
	return id, nil
}

// GetElection loads one election.
func (s *Store) GetElection(ctx context.Context, id int64) (models.Election, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		SELECT `+electionColumns+` FROM election WHERE id = ?
	`), id)

	e, err := scanElection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Election{}, ErrElectionNotFound
	}
	if err != nil {
		return models.Election{}, s.logError("store_get_election_failed", err, "election_id", id)
	}
	return e, nil
}

// ListElections returns every election, newest first.
func (s *Store) ListElections(ctx context.Context) ([]models.Election, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+electionColumns+` FROM election ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, s.logError("store_list_elections_failed", err)
	}
	defer rows.Close()

	elections := []models.Election{}
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, s.logError("store_scan_election_failed", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.logError("store_list_elections_failed", err)
	}
	return elections, nil
}

// UpdateElectionDetails changes title and description. These fields carry
// no voting semantics and may change at any time.
func (s *Store) UpdateElectionDetails(ctx context.Context, id int64, title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}

	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE election SET title = ?, description = ? WHERE id = ?
	`), title, strings.TrimSpace(description), id)
	if err != nil {
		return s.logError("store_update_election_failed", err, "election_id", id)
	}
	return requireRow(res, ErrElectionNotFound)
}

// UpdateElectionWindow moves the voting window. Refused once any ballot has
// been cast, since it would change which ballots were valid.
func (s *Store) UpdateElectionWindow(ctx context.Context, id int64, start, end time.Time) error {
	if !election.ValidWindow(start, end) {
		return ErrInvalidWindow
	}

	// The ballot guard lives in the UPDATE itself so a concurrent first
	// ballot cannot slip between check and write.
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE election SET starts_at = ?, ends_at = ?
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM ballot WHERE election_id = ?)
	`), start.UTC(), end.UTC(), id, id)
	if err != nil {
		return s.logError("store_update_window_failed", err, "election_id", id)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		s.logger.Info("election window updated", "election_id", id)
		return nil
	}

	if _, err := s.GetElection(ctx, id); err != nil {
		return err
	}
	return ErrElectionHasBallots
}

// SetElectionStatus stores the administrator flag. The flag only narrows
// the time window, so it may change at any point.
func (s *Store) SetElectionStatus(ctx context.Context, id int64, status models.ElectionStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE election SET status = ? WHERE id = ?
	`), string(status), id)
	if err != nil {
		return s.logError("store_set_status_failed", err, "election_id", id)
	}
	if err := requireRow(res, ErrElectionNotFound); err != nil {
		return err
	}

	s.logger.Info("election status updated", "election_id", id, "status", status)
	return nil
}

// DeleteElection removes an election and its candidates. Elections with
// ballots are never deleted.
func (s *Store) DeleteElection(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		DELETE FROM election
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM ballot WHERE election_id = ?)
	`), id, id)
	if err != nil {
		return s.logError("store_delete_election_failed", err, "election_id", id)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		s.logger.Info("election deleted", "election_id", id)
		return nil
	}

	if _, err := s.GetElection(ctx, id); err != nil {
		return err
	}
	return ErrElectionHasBallots
}

const candidateColumns = `id, election_id, name, party, description, photo_url, vote_count`

// AddCandidate registers a candidate while the election is still pending.
// The ballot guard sits in the INSERT so a first ballot racing the
// pending check still blocks it.
func (s *Store) AddCandidate(ctx context.Context, electionID int64, in CandidateDetails) (int64, error) {
	in = in.trimmed()
	if in.Name == "" {
		return 0, ErrNameRequired
	}

	e, err := s.GetElection(ctx, electionID)
	if err != nil {
		return 0, err
	}
	if election.Effective(e, s.now()) != models.StatusPending {
		return 0, ErrElectionStarted
	}

	var id int64
	err = s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		INSERT INTO candidate (election_id, name, party, description, photo_url, vote_count)
		SELECT CAST(? AS BIGINT), ?, ?, ?, ?, 0
		WHERE NOT EXISTS (SELECT 1 FROM ballot WHERE election_id = ?)
		RETURNING id
	`), electionID, in.Name, in.Party, in.Description, in.PhotoURL, electionID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, ErrElectionStarted
	case db.IsUniqueViolation(err):
		return 0, ErrCandidateExists
	case err != nil:
		return 0, s.logError("store_add_candidate_failed", err, "election_id", electionID)
	}

	s.logger.Info("candidate added", "election_id", electionID, "candidate_id", id)
	return id, nil
}

// UpdateCandidate replaces a candidate's details. Party, description and
// photo URL may change at any time; a rename follows the AddCandidate rule.
func (s *Store) UpdateCandidate(ctx context.Context, id int64, in CandidateDetails) error {
	in = in.trimmed()
	if in.Name == "" {
		return ErrNameRequired
	}

	current, err := s.GetCandidate(ctx, id)
	if err != nil {
		return err
	}
	if in.Name != current.Name {
		e, err := s.GetElection(ctx, current.ElectionID)
		if err != nil {
			return err
		}
		if election.Effective(e, s.now()) != models.StatusPending {
			return ErrElectionStarted
		}
	}

	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE candidate
		SET name = ?, party = ?, description = ?, photo_url = ?
		WHERE id = ?
		  AND (name = ? OR NOT EXISTS (SELECT 1 FROM ballot WHERE election_id = ?))
	`), in.Name, in.Party, in.Description, in.PhotoURL, id, in.Name, current.ElectionID)
	if db.IsUniqueViolation(err) {
		return ErrCandidateExists
	}
	if err != nil {
		return s.logError("store_update_candidate_failed", err, "candidate_id", id)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		s.logger.Info("candidate updated", "candidate_id", id)
		return nil
	}

	if _, err := s.GetCandidate(ctx, id); err != nil {
		return err
	}
	return ErrElectionStarted
}

// GetCandidate loads one candidate with its stored vote count.
func (s *Store) GetCandidate(ctx context.Context, id int64) (models.Candidate, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		SELECT `+candidateColumns+` FROM candidate WHERE id = ?
	`), id)

	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Candidate{}, ErrCandidateNotFound
	}
	if err != nil {
		return models.Candidate{}, s.logError("store_get_candidate_failed", err, "candidate_id", id)
	}
	return c, nil
}

// ListCandidates returns an election's candidates ordered by ID.
func (s *Store) ListCandidates(ctx context.Context, electionID int64) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT `+candidateColumns+`
		FROM candidate
		WHERE election_id = ?
		ORDER BY id
	`), electionID)
	if err != nil {
		return nil, s.logError("store_list_candidates_failed", err, "election_id", electionID)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, s.logError("store_scan_candidate_failed", err, "election_id", electionID)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.logError("store_list_candidates_failed", err, "election_id", electionID)
	}
	return candidates, nil
}

// CountCandidates counts candidates across all elections.
func (s *Store) CountCandidates(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidate`).Scan(&n); err != nil {
		return 0, s.logError("store_count_candidates_failed", err)
	}
	return n, nil
}

// DeleteCandidate removes a candidate that has no votes, checked against
// both the counter and the ballot log.
func (s *Store) DeleteCandidate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		DELETE FROM candidate
		WHERE id = ? AND vote_count = 0
		  AND NOT EXISTS (SELECT 1 FROM ballot WHERE candidate_id = ?)
	`), id, id)
	if err != nil {
		return s.logError("store_delete_candidate_failed", err, "candidate_id", id)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		s.logger.Info("candidate deleted", "candidate_id", id)
		return nil
	}

	if _, err := s.GetCandidate(ctx, id); err != nil {
		return err
	}
	return ErrCandidateHasVotes
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner) (models.Election, error) {
	var e models.Election
	var status string
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &status, &e.CreatedAt)
	if err != nil {
		return models.Election{}, err
	}
	e.Status = models.ElectionStatus(status)
	e.StartsAt = e.StartsAt.UTC()
	e.EndsAt = e.EndsAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func scanCandidate(row rowScanner) (models.Candidate, error) {
	var c models.Candidate
	err := row.Scan(&c.ID, &c.ElectionID, &c.Name, &c.Party, &c.Description, &c.PhotoURL, &c.VoteCount)
	return c, err
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+4)
	fields = append(fields,
		"event", event,
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	s.logger.Error("store operation failed", fields...)
	return err
}
