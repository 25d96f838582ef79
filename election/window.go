// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"time"

	"github.com/danielhkuo/quickly-vote/models"
)

// Status computes the temporal state of an election from its window alone.
// The window is half-open: a ballot at StartsAt is accepted, one at EndsAt
// is not.
func Status(e models.Election, now time.Time) models.ElectionStatus {
	switch {
	case now.Before(e.StartsAt):
		return models.StatusPending
	case now.Before(e.EndsAt):
		return models.StatusActive
	default:
		return models.StatusCompleted
	}
}

// Effective applies the administrator flag on top of Status. The flag can
// only narrow the window: a pending flag holds an otherwise active election,
// a completed flag closes it early, and an active flag never opens an
// election outside [StartsAt, EndsAt).
//
// Casting and result reporting both go through Effective.
func Effective(e models.Election, now time.Time) models.ElectionStatus {
	state := Status(e, now)
	if state != models.StatusActive {
		return state
	}

	switch e.Status {
	case models.StatusActive:
		return models.StatusActive
	case models.StatusCompleted:
		return models.StatusCompleted
	default:
		return models.StatusPending
	}
}

// AcceptsBallots reports whether a ballot cast at now may be recorded.
func AcceptsBallots(e models.Election, now time.Time) bool {
	return Effective(e, now) == models.StatusActive
}

// ResultsPublic reports whether tallies may be shown to non-administrators.
func ResultsPublic(e models.Election, now time.Time) bool {
	return Effective(e, now) == models.StatusCompleted
}

// ValidWindow reports whether start strictly precedes end.
func ValidWindow(start, end time.Time) bool {
	return start.Before(end)
}
