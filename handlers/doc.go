// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quickly Vote API.

# Handler Types

  - VotingHandler: ballot casting, forwarded to the caster
  - ResultsHandler: public election listings, results, and turnout
  - AdminHandler: election and candidate management, integrity checks, stats

Handlers take their collaborators through constructors:

	votingHandler := handlers.NewVotingHandler(caster)
	resultsHandler := handlers.NewResultsHandler(store, ledger, cfg)
	adminHandler := handlers.NewAdminHandler(store, ledger, auditor)

# Election State

Elections move pending → active → completed. The state is computed from
the voting window on every request; the administrator flag can hold an
election pending or close it early but never opens one outside its window.

# Voting Flow

	POST /elections/{id}/votes → CastVote

The voter is identified by the X-Voter-ID header. The body carries only
candidate_id. A successful cast answers 201 with the ballot receipt;
failures answer with the error kind:

	ElectionNotFound   404
	ElectionNotActive  409
	InvalidCandidate   400
	AlreadyVoted       409
	CastFailed         503 (with Retry-After)

GET /elections/{id}/my-vote tells a voter whether they already voted. It
is a lookup only; the duplicate guard stays in the ballot log.

# Candidates

Candidates are added only while an election is pending and has no
ballots. Names are unique within an election (409 on a clash). Party,
description, and photo URL stay editable; a rename follows the add rule.

# Results

Per-candidate counts stay hidden until the election completes. Before
then GET /elections/{id}/results answers 403 and GET /elections/{id}
reports zero votes, unless the caller presents the admin key.
*/
package handlers
