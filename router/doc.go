// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Vote API.

# Wiring

Wire builds the store, ledger, caster, and auditor over one database
handle. NewRouter registers every endpoint on a http.ServeMux:

	svc, err := router.Wire(conn, dialect, cfg, m, logger)
	svc.Gatherer = registry
	mux := router.NewRouter(svc, cfg)

# Endpoints

Health and metrics:

	GET /health
	GET /metrics - Prometheus exposition (when metrics are enabled)

Voting (voter identity from X-Voter-ID):

	POST /elections/{id}/votes   - Cast a ballot
	GET  /elections/{id}/my-vote - Whether the caller has voted

Public reads:

	GET /elections                  - List elections with computed state
	GET /elections/{id}             - Election and candidates
	GET /elections/{id}/results     - Tally (completed elections only)
	GET /elections/{id}/ballot-count - Turnout

Administration (requires X-Admin-Key):

	POST   /admin/elections                 - Create election
	PATCH  /admin/elections/{id}            - Update title and description
	PUT    /admin/elections/{id}/window     - Move the window (no ballots yet)
	POST   /admin/elections/{id}/status     - Set the status flag
	DELETE /admin/elections/{id}            - Delete (no ballots yet)
	POST   /admin/elections/{id}/candidates - Add candidate (pending elections only)
	PATCH  /admin/candidates/{id}           - Update candidate details
	DELETE /admin/candidates/{id}           - Remove candidate (no votes yet)
	GET    /admin/elections/{id}/integrity  - Run the integrity check
	GET    /admin/elections/{id}/stats      - Tally and hourly breakdown
	GET    /admin/stats                     - Totals and last-24h activity

Every route is wrapped with middleware.WithLogging.
*/
package router
