// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics exposes Prometheus collectors for vote casting and
integrity audits.

	quickly_vote_casts_total{outcome}         success or the failure ErrorKind
	quickly_vote_cast_duration_seconds        histogram of CastVote latency
	quickly_vote_audit_runs_total
	quickly_vote_audit_findings_total{kind}   duplicate, count_mismatch

Collectors exist only after Register. Until then, and on a nil *Metrics,
every Observe method is a no-op, so components can take a *Metrics
unconditionally.
*/
package metrics
