// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package store is the administrative boundary for elections and candidates.
// Rows are turned into typed models.Election and models.Candidate values here
// and nowhere else. Guards that depend on ballots (deleting a candidate with
// votes, moving a window after the first ballot) are expressed inside the
// mutating statement, so they hold under concurrent casting.
package store
