// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/models"
)

var (
	// ErrDuplicateBallot means the unique (election, voter key) index
	// rejected the ballot. It is terminal and must not be retried.
	ErrDuplicateBallot = errors.New("ballot already recorded for this voter")

	// ErrCandidateMismatch means the counter update matched no candidate of
	// the ballot's election. The ballot insert is rolled back with it.
	ErrCandidateMismatch = errors.New("candidate does not belong to election")
)

// Ledger owns the ballot table and the candidate counters as one
// consistency domain.
type Ledger struct {
	db      *sql.DB
	dialect db.Dialect
	logger  *slog.Logger
	now     func() time.Time
}

func New(conn *sql.DB, dialect db.Dialect, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		db:      conn,
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
	}
}

// AppendBallotAndIncrement inserts the ballot and bumps its candidate's
// counter by one in a single transaction. Either both rows change or
// neither does.
func (l *Ledger) AppendBallotAndIncrement(ctx context.Context, b models.Ballot) (err error) {
	tx, err := l.db.BeginTx(ctx, l.dialect.WriteTxOptions())
	if err != nil {
		return fmt.Errorf("begin ballot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, l.dialect.Rebind(`
		INSERT INTO ballot (id, election_id, candidate_id, voter_key, cast_at, ip_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`), b.ID, b.ElectionID, b.CandidateID, b.VoterAnonymKey, b.CastAt.UTC(), b.IPHash)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateBallot
		}
		return fmt.Errorf("insert ballot: %w", err)
	}

	res, err := tx.ExecContext(ctx, l.dialect.Rebind(`
		UPDATE candidate SET vote_count = vote_count + 1
		WHERE id = ? AND election_id = ?
	`), b.CandidateID, b.ElectionID)
	if err != nil {
		return fmt.Errorf("increment vote count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment vote count: %w", err)
	}
	if n != 1 {
		return ErrCandidateMismatch
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit ballot: %w", err)
	}
	return nil
}

// Tally reads every candidate's stored count for an election in one
// snapshot, ordered by votes then name.
func (l *Ledger) Tally(ctx context.Context, electionID int64) (models.Tally, error) {
	tally := models.Tally{
		ElectionID: electionID,
		Candidates: []models.CandidateTally{},
	}

	rows, err := l.db.QueryContext(ctx, l.dialect.Rebind(`
		SELECT id, name, vote_count
		FROM candidate
		WHERE election_id = ?
		ORDER BY vote_count DESC, name ASC, id ASC
	`), electionID)
	if err != nil {
		return tally, l.logError("ledger_tally_failed", err, "election_id", electionID)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.CandidateTally
		if err := rows.Scan(&c.CandidateID, &c.Name, &c.VoteCount); err != nil {
			return tally, l.logError("ledger_tally_scan_failed", err, "election_id", electionID)
		}
		tally.TotalVotes += c.VoteCount
		tally.Candidates = append(tally.Candidates, c)
	}
	if err := rows.Err(); err != nil {
		return tally, l.logError("ledger_tally_failed", err, "election_id", electionID)
	}

	for i := range tally.Candidates {
		tally.Candidates[i].Percentage = percentage(tally.Candidates[i].VoteCount, tally.TotalVotes)
	}
	tally.ComputedAt = l.now().UTC()
	return tally, nil
}

// BallotCount returns the number of ballots cast in an election.
func (l *Ledger) BallotCount(ctx context.Context, electionID int64) (int64, error) {
	var count int64
	err := l.db.QueryRowContext(ctx, l.dialect.Rebind(`
		SELECT COUNT(*) FROM ballot WHERE election_id = ?
	`), electionID).Scan(&count)
	if err != nil {
		return 0, l.logError("ledger_ballot_count_failed", err, "election_id", electionID)
	}
	return count, nil
}

// HasVoted reports whether voterKey already has a ballot in the election.
// The lookup uses the (election_id, voter_key) unique index. It is never the
// duplicate guard; AppendBallotAndIncrement relies on the index itself.
func (l *Ledger) HasVoted(ctx context.Context, electionID int64, voterKey string) (bool, error) {
	var count int64
	err := l.db.QueryRowContext(ctx, l.dialect.Rebind(`
		SELECT COUNT(*) FROM ballot WHERE election_id = ? AND voter_key = ?
	`), electionID, voterKey).Scan(&count)
	if err != nil {
		return false, l.logError("ledger_has_voted_failed", err, "election_id", electionID)
	}
	return count > 0, nil
}

// TotalBallots counts ballots across all elections.
func (l *Ledger) TotalBallots(ctx context.Context) (int64, error) {
	var count int64
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ballot`).Scan(&count); err != nil {
		return 0, l.logError("ledger_total_ballots_failed", err)
	}
	return count, nil
}

// BallotsSince counts ballots cast at or after since, keyed by election.
// Elections without such ballots are absent from the map.
func (l *Ledger) BallotsSince(ctx context.Context, since time.Time) (map[int64]int64, error) {
	rows, err := l.db.QueryContext(ctx, l.dialect.Rebind(`
		SELECT election_id, COUNT(*)
		FROM ballot
		WHERE cast_at >= ?
		GROUP BY election_id
	`), since.UTC())
	if err != nil {
		return nil, l.logError("ledger_ballots_since_failed", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var electionID, count int64
		if err := rows.Scan(&electionID, &count); err != nil {
			return nil, l.logError("ledger_ballots_since_scan_failed", err)
		}
		counts[electionID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, l.logError("ledger_ballots_since_failed", err)
	}
	return counts, nil
}

// HourlyBreakdown buckets an election's ballots by UTC hour, oldest first.
// Hours without ballots are omitted.
func (l *Ledger) HourlyBreakdown(ctx context.Context, electionID int64) ([]models.HourlyCount, error) {
	rows, err := l.db.QueryContext(ctx, l.dialect.Rebind(`
		SELECT cast_at FROM ballot WHERE election_id = ?
	`), electionID)
	if err != nil {
		return nil, l.logError("ledger_hourly_failed", err, "election_id", electionID)
	}
	defer rows.Close()

	buckets := make(map[time.Time]int64)
	for rows.Next() {
		var castAt time.Time
		if err := rows.Scan(&castAt); err != nil {
			return nil, l.logError("ledger_hourly_scan_failed", err, "election_id", electionID)
		}
		buckets[castAt.UTC().Truncate(time.Hour)]++
	}
	if err := rows.Err(); err != nil {
		return nil, l.logError("ledger_hourly_failed", err, "election_id", electionID)
	}

	hourly := make([]models.HourlyCount, 0, len(buckets))
	for hour, count := range buckets {
		hourly = append(hourly, models.HourlyCount{Hour: hour, Count: count})
	}
	sort.Slice(hourly, func(i, j int) bool {
		return hourly[i].Hour.Before(hourly[j].Hour)
	})
	return hourly, nil
}

// Inspect recomputes the counters of an election from its ballot log and
// lists voter keys that occur more than once. All reads share one
// transaction so a concurrent cast is either fully visible or not at all.
// Nothing is corrected.
func (l *Ledger) Inspect(ctx context.Context, electionID int64) (report models.IntegrityReport, err error) {
	report = models.IntegrityReport{
		ElectionID:      electionID,
		Duplicates:      []string{},
		CountMismatches: []models.CountMismatch{},
	}

	tx, err := l.db.BeginTx(ctx, l.dialect.SnapshotTxOptions())
	if err != nil {
		return report, l.logError("ledger_inspect_begin_failed", err, "election_id", electionID)
	}
	defer tx.Rollback()

	if report.Duplicates, err = duplicateKeys(ctx, tx, l.dialect, electionID); err != nil {
		return report, l.logError("ledger_inspect_duplicates_failed", err, "election_id", electionID)
	}
	if report.CountMismatches, err = countMismatches(ctx, tx, l.dialect, electionID); err != nil {
		return report, l.logError("ledger_inspect_counts_failed", err, "election_id", electionID)
	}

	foreign, err := foreignBallots(ctx, tx, l.dialect, electionID)
	if err != nil {
		return report, l.logError("ledger_inspect_foreign_failed", err, "election_id", electionID)
	}
	report.CountMismatches = append(report.CountMismatches, foreign...)

	err = tx.QueryRowContext(ctx, l.dialect.Rebind(`
		SELECT COUNT(*) FROM ballot WHERE election_id = ?
	`), electionID).Scan(&report.BallotCount)
	if err != nil {
		return report, l.logError("ledger_inspect_count_failed", err, "election_id", electionID)
	}

	report.CheckedAt = l.now().UTC()
	return report, nil
}

func duplicateKeys(ctx context.Context, tx *sql.Tx, dialect db.Dialect, electionID int64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, dialect.Rebind(`
		SELECT voter_key
		FROM ballot
		WHERE election_id = ?
		GROUP BY voter_key
		HAVING COUNT(*) > 1
		ORDER BY voter_key
	`), electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func countMismatches(ctx context.Context, tx *sql.Tx, dialect db.Dialect, electionID int64) ([]models.CountMismatch, error) {
	rows, err := tx.QueryContext(ctx, dialect.Rebind(`
		SELECT c.id, c.vote_count, COUNT(b.id)
		FROM candidate c
		LEFT JOIN ballot b ON b.candidate_id = c.id AND b.election_id = c.election_id
		WHERE c.election_id = ?
		GROUP BY c.id, c.vote_count
		ORDER BY c.id
	`), electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mismatches := []models.CountMismatch{}
	for rows.Next() {
		var m models.CountMismatch
		if err := rows.Scan(&m.CandidateID, &m.Stored, &m.Actual); err != nil {
			return nil, err
		}
		if m.Stored != m.Actual {
			mismatches = append(mismatches, m)
		}
	}
	return mismatches, rows.Err()
}

// foreignBallots finds ballots of this election that point at a candidate
// of another election. They count toward no candidate here, so they show
// up with a stored count of zero.
func foreignBallots(ctx context.Context, tx *sql.Tx, dialect db.Dialect, electionID int64) ([]models.CountMismatch, error) {
	rows, err := tx.QueryContext(ctx, dialect.Rebind(`
		SELECT b.candidate_id, COUNT(*)
		FROM ballot b
		JOIN candidate c ON c.id = b.candidate_id
		WHERE b.election_id = ? AND c.election_id <> ?
		GROUP BY b.candidate_id
		ORDER BY b.candidate_id
	`), electionID, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CountMismatch
	for rows.Next() {
		m := models.CountMismatch{}
		if err := rows.Scan(&m.CandidateID, &m.Actual); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// percentage rounds to two decimals
func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}

func (l *Ledger) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+4)
	fields = append(fields,
		"event", event,
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	l.logger.Error("ledger operation failed", fields...)
	return err
}
