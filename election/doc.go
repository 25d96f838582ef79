// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package election computes an election's state from its time window.

# Window

Status is a pure function of the window:

	now <  starts_at             → pending
	starts_at <= now < ends_at   → active
	now >= ends_at               → completed

# Administrator Flag

The stored status flag is advisory. Effective layers it over Status and can
only narrow the active window, never widen it:

	state := election.Effective(e, time.Now())
	if election.AcceptsBallots(e, now) { ... }

Vote casting and result reporting both use Effective, so they never disagree
about whether an election is open.
*/
package election
