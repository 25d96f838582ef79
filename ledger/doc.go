// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger stores cast ballots and the per-candidate counters derived
from them.

The ballot table and the candidate.vote_count column form one consistency
domain. The only mutation is AppendBallotAndIncrement, which inserts the
ballot and increments the counter inside one transaction:

	INSERT INTO ballot (...)                    -- unique (election_id, voter_key)
	UPDATE candidate SET vote_count = vote_count + 1
	WHERE id = ? AND election_id = ?            -- must touch exactly one row

A unique violation on the insert becomes ErrDuplicateBallot. The unique index
is the authoritative duplicate guard; there is no SELECT-based pre-check.

# Reads

  - Tally: stored counts with percentages, ordered by votes then name
  - BallotCount: number of ballots in an election
  - HourlyBreakdown: ballots per UTC hour
  - Inspect: duplicate voter keys and counter mismatches, read in one
    snapshot transaction

Inspect never repairs what it finds.
*/
package ledger
