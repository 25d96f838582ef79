// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		input   string
		want    Dialect
		wantErr bool
	}{
		{"postgres", Postgres, false},
		{"PostgreSQL", Postgres, false},
		{"sqlite", SQLite, false},
		{"sqlite3", SQLite, false},
		{"", SQLite, false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDialect(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDialect(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDialect(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	query := "UPDATE candidate SET vote_count = vote_count + 1 WHERE id = ? AND election_id = ?"

	if got := SQLite.Rebind(query); got != query {
		t.Errorf("SQLite.Rebind() changed the query: %s", got)
	}

	want := "UPDATE candidate SET vote_count = vote_count + 1 WHERE id = $1 AND election_id = $2"
	if got := Postgres.Rebind(query); got != want {
		t.Errorf("Postgres.Rebind() = %s, want %s", got, want)
	}
}

func TestTxOptions(t *testing.T) {
	if SQLite.WriteTxOptions() != nil || SQLite.SnapshotTxOptions() != nil {
		t.Error("SQLite should use driver default transactions")
	}

	if opts := Postgres.WriteTxOptions(); opts == nil || opts.Isolation != sql.LevelReadCommitted {
		t.Errorf("Postgres write options = %+v", opts)
	}
	if opts := Postgres.SnapshotTxOptions(); opts == nil || opts.Isolation != sql.LevelRepeatableRead || !opts.ReadOnly {
		t.Errorf("Postgres snapshot options = %+v", opts)
	}
}

func TestIsUniqueViolation_Postgres(t *testing.T) {
	dup := &pq.Error{Code: "23505"}
	if !IsUniqueViolation(fmt.Errorf("insert ballot: %w", dup)) {
		t.Error("Expected wrapped 23505 to be a unique violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "40001"}) {
		t.Error("Serialization failure is not a unique violation")
	}
	if IsUniqueViolation(errors.New("boom")) || IsUniqueViolation(nil) {
		t.Error("Plain errors are not unique violations")
	}
}

func TestIsUniqueViolation_SQLite(t *testing.T) {
	conn := openTestDB(t)

	insert := `INSERT INTO election (title, starts_at, ends_at, created_at) VALUES (?, ?, ?, ?)`
	now := time.Now().UTC()
	res, err := conn.Exec(insert, "E", now, now.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("Failed to insert election: %v", err)
	}
	electionID, _ := res.LastInsertId()

	res, err = conn.Exec(`INSERT INTO candidate (election_id, name) VALUES (?, ?)`, electionID, "C")
	if err != nil {
		t.Fatalf("Failed to insert candidate: %v", err)
	}
	candidateID, _ := res.LastInsertId()

	ballot := `INSERT INTO ballot (id, election_id, candidate_id, voter_key, cast_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := conn.Exec(ballot, "b1", electionID, candidateID, "key", now); err != nil {
		t.Fatalf("Failed to insert first ballot: %v", err)
	}

	_, err = conn.Exec(ballot, "b2", electionID, candidateID, "key", now)
	if err == nil {
		t.Fatal("Expected duplicate voter key to be rejected")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("Expected unique violation, got %v", err)
	}

	// Foreign key failures must not be mistaken for duplicates
	_, err = conn.Exec(ballot, "b3", electionID, 9999, "other", now)
	if err == nil {
		t.Fatal("Expected foreign key violation")
	}
	if IsUniqueViolation(err) {
		t.Errorf("Foreign key violation reported as unique violation: %v", err)
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	conn := openTestDB(t)

	if err := CreateSchema(conn, SQLite); err != nil {
		t.Fatalf("Second CreateSchema() failed: %v", err)
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := "file:" + filepath.Join(t.TempDir(), "schema.db")
	conn, err := Open(context.Background(), SQLite, url)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := CreateSchema(conn, SQLite); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	return conn
}
