// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections, dialects, and schema creation.

# Dialects

Two backends are supported through database/sql:

  - Postgres via github.com/lib/pq
  - SQLite via modernc.org/sqlite (pure Go, used by the test suite)

Queries are written with ? placeholders and passed through Dialect.Rebind,
which rewrites them to $N for Postgres.

# Opening

	dialect, err := db.ParseDialect(cfg.DatabaseType)
	conn, err := db.Open(ctx, dialect, cfg.DatabaseURL)

SQLite connections get foreign keys, a busy timeout, WAL, and the sqlite
time format, and are capped at a single open connection.

# Schema Creation

	if err := db.CreateSchema(conn, dialect); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - election: title, window, administrator status flag
  - candidate: one election each, denormalized vote_count
  - ballot: one row per cast ballot, unique on (election_id, voter_key)

# Relationships

	election 1──* candidate   (ON DELETE CASCADE)
	election 1──* ballot      (ON DELETE RESTRICT)
	candidate 1──* ballot     (ON DELETE RESTRICT)

# Constraint Errors

IsUniqueViolation recognises SQLSTATE 23505 from Postgres and
SQLITE_CONSTRAINT_UNIQUE / SQLITE_CONSTRAINT_PRIMARYKEY from SQLite.
*/
package db
