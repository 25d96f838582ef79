// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package audit verifies that stored vote counts match the ballot log.
//
// Verify reports two kinds of finding. A count mismatch means a candidate's
// stored vote_count differs from the number of ballots that reference it.
// A duplicate means two ballots share an anonymized voter key in the same
// election; the unique index makes that impossible through the ledger, so
// it is always logged with alert=critical. Nothing is repaired here.
package audit
