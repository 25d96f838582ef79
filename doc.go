// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Vote server.

Quickly Vote records one anonymous ballot per voter per election, keeps a
running count per candidate, and can prove the counts match the ballots.

# Commands

	quickly-vote serve   [flags]   Run the HTTP API
	quickly-vote audit   [flags]   Run integrity checks and print a report
	quickly-vote migrate [flags]   Create the schema and exit

All commands accept the same configuration flags plus --debug:

	quickly-vote serve -t sqlite -d file:votes.db
	quickly-vote audit --election 3 --election 4

audit checks every election when none is named and exits 2 when any
election reports findings.

# Configuration

Settings come from, in increasing precedence, a YAML file (-c), a .env
file, environment variables, and flags:

  - DATABASE_URL (-d): Postgres connection string or SQLite file URL
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - BALLOT_SECRET (--ballot-secret): key for voter anonymization
  - ADMIN_KEY (--admin-key): value expected in X-Admin-Key
  - PORT (-p): server port (default: 3318)
  - TX_TIMEOUT (--tx-timeout): ballot transaction timeout (default: 5s)
  - METRICS_ENABLED (--metrics): expose /metrics (default: true)

# Architecture

  - election: window and status rules
  - auth: voter key derivation and admin key checks
  - store: elections and candidates
  - ledger: atomic ballot writes, tallies, integrity inspection
  - caster: the single cast operation and its error kinds
  - audit: integrity verification and alerting
  - metrics: Prometheus collectors
  - handlers, router, middleware: the HTTP surface
  - db: drivers, dialects, schema
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
