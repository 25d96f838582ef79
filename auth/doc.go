// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides ballot anonymization and admin key checks.

# Voter Keys

Voter keys are HMAC-SHA256 over the voter ID and election ID, keyed with a
system-wide secret that callers never see:

	anon, err := auth.NewAnonymizer(cfg.BallotSecret)
	key := anon.DeriveKey(voterID, electionID)

The key is deterministic: the same voter in the same election always maps to
the same 64 hex characters, which is what lets the ballot table's unique
index reject a second ballot. Without the secret the key cannot be traced
back to the voter ID. Rotating the secret breaks duplicate detection for
elections already in progress, so it is a deployment-level change.

# Configuration Errors

NewAnonymizer returns ErrMissingSecret or ErrWeakSecret. Both are fatal at
startup; DeriveKey itself cannot fail.

# IP Hashing

For privacy-preserving anomaly detection:

	hash := anon.HashOrigin(ipAddress)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.

# Admin Keys

Administrative routes compare the X-Admin-Key header against the configured
key in constant time:

	err := auth.ValidateAdminKey(provided, cfg.AdminKey)
*/
package auth
