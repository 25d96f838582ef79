// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/google/uuid"
)

const (
	TestBallotSecret = "test-ballot-secret-0123456789"
	TestAdminKey     = "test-admin-key"
)

// SetupTestDB creates a fresh file-backed SQLite database with the full
// schema in the test's temp directory.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := "file:" + filepath.Join(t.TempDir(), "quickly-vote.db")
	conn, err := db.Open(context.Background(), db.SQLite, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    "file::memory:",
		DatabaseType:   string(db.SQLite),
		BallotSecret:   TestBallotSecret,
		AdminKey:       TestAdminKey,
		TxTimeout:      cliparse.DefaultTxTimeout,
		MetricsEnabled: true,
	}
}

// Logger discards everything
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateTestElection inserts an election with the given window and
// administrator flag and returns its ID.
func CreateTestElection(t *testing.T, conn *sql.DB, status models.ElectionStatus, start, end time.Time) int64 {
	t.Helper()

	var id int64
	err := conn.QueryRow(`
		INSERT INTO election (title, description, starts_at, ends_at, status, created_at)
		VALUES ('Test Election', 'A test election', ?, ?, ?, ?)
		RETURNING id
	`, start.UTC(), end.UTC(), string(status), time.Now().UTC()).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return id
}

// CreateActiveElection inserts an election whose window is open now and
// whose flag is active.
func CreateActiveElection(t *testing.T, conn *sql.DB) int64 {
	t.Helper()
	now := time.Now()
	return CreateTestElection(t, conn, models.StatusActive, now.Add(-time.Hour), now.Add(time.Hour))
}

// AddTestCandidate adds a candidate to an election and returns its ID
func AddTestCandidate(t *testing.T, conn *sql.DB, electionID int64, name string) int64 {
	t.Helper()

	var id int64
	err := conn.QueryRow(`
		INSERT INTO candidate (election_id, name, vote_count)
		VALUES (?, ?, 0)
		RETURNING id
	`, electionID, name).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return id
}

// InsertRawBallot writes a ballot row without touching the candidate
// counter, the way a write that bypassed the ledger would.
func InsertRawBallot(t *testing.T, conn *sql.DB, electionID, candidateID int64, voterKey string) string {
	t.Helper()

	ballotID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO ballot (id, election_id, candidate_id, voter_key, cast_at)
		VALUES (?, ?, ?, ?, ?)
	`, ballotID, electionID, candidateID, voterKey, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test ballot: %v", err)
	}

	return ballotID
}

// DropUniqueBallotIndex removes the one-ballot-per-voter index so tests can
// construct states that should be impossible.
func DropUniqueBallotIndex(t *testing.T, conn *sql.DB) {
	t.Helper()

	if _, err := conn.Exec(fmt.Sprintf("DROP INDEX %s", db.UniqueBallotIndex)); err != nil {
		t.Fatalf("Failed to drop unique ballot index: %v", err)
	}
}

// VoteCount reads a candidate's stored counter
func VoteCount(t *testing.T, conn *sql.DB, candidateID int64) int64 {
	t.Helper()

	var count int64
	if err := conn.QueryRow(`SELECT vote_count FROM candidate WHERE id = ?`, candidateID).Scan(&count); err != nil {
		t.Fatalf("Failed to read vote count: %v", err)
	}
	return count
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
