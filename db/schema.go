// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// UniqueBallotIndex is the index that enforces one ballot per voter key per
// election. It is named so that it can be located, and never dropped, by
// operators.
const UniqueBallotIndex = "uq_ballot_election_voter"

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect Dialect) error {
	for _, stmt := range statements(dialect) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// statements splits the schema so drivers that reject multi-statement Exec
// still work.
func statements(dialect Dialect) []string {
	idType := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if dialect == Postgres {
		idType = "BIGSERIAL PRIMARY KEY"
	}

	var out []string
	for _, stmt := range strings.Split(fmt.Sprintf(schema, idType, UniqueBallotIndex), ";") {
		if strings.TrimSpace(stmt) != "" {
			out = append(out, stmt)
		}
	}
	return out
}

const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS election (
    id %[1]s,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    starts_at TIMESTAMP NOT NULL,
    ends_at TIMESTAMP NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active', 'completed')),
    created_at TIMESTAMP NOT NULL
);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id %[1]s,
    election_id BIGINT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    party TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    photo_url TEXT NOT NULL DEFAULT '',
    vote_count BIGINT NOT NULL DEFAULT 0 CHECK (vote_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_candidate_election_id ON candidate(election_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_candidate_election_name ON candidate(election_id, name);

-- Ballots
CREATE TABLE IF NOT EXISTS ballot (
    id TEXT PRIMARY KEY,
    election_id BIGINT NOT NULL REFERENCES election(id) ON DELETE RESTRICT,
    candidate_id BIGINT NOT NULL REFERENCES candidate(id) ON DELETE RESTRICT,
    voter_key TEXT NOT NULL,
    cast_at TIMESTAMP NOT NULL,
    ip_hash TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS %[2]s ON ballot(election_id, voter_key);
CREATE INDEX IF NOT EXISTS idx_ballot_candidate_id ON ballot(candidate_id);
`
