// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package caster records a single vote.

CastVote runs these steps and stops at the first failure:

 1. Load the election (ElectionNotFound)
 2. Check the election window and flag (ElectionNotActive)
 3. Load the candidate and check it belongs to the election (InvalidCandidate)
 4. Derive the anonymized voter key
 5. Insert the ballot and increment the counter in one bounded transaction
    (AlreadyVoted on a unique violation, CastFailed otherwise)

The unique (election_id, voter_key) index is the duplicate guard. There is
no "has this voter voted" query, because two concurrent requests would both
pass it.

# Errors

Every failure is a *CastError whose Kind is one of:

	ElectionNotFound, ElectionNotActive, InvalidCandidate, AlreadyVoted, CastFailed

Callers branch on Kind (or KindOf(err)), never on the message. Only
CastFailed is worth retrying, and only as a whole new attempt.

# Logging

Rejections are logged at Debug or Info. Storage failures are logged at
Error. The voter ID and derived key are never logged.
*/
package caster
