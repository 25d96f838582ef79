// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strconv"
)

// MinSecretLen is the shortest ballot secret accepted at startup.
const MinSecretLen = 16

var (
	ErrMissingSecret   = errors.New("ballot secret is not configured")
	ErrWeakSecret      = errors.New("ballot secret is too short")
	ErrInvalidAdminKey = errors.New("invalid admin key")
)

// domain labels keep the two HMAC uses from ever producing comparable output
const (
	voterKeyLabel = "quickly-vote/voter-key/v1"
	originLabel   = "quickly-vote/origin/v1"
)

// Anonymizer derives the per-(voter, election) key used to deduplicate
// ballots without storing the voter's identity next to their choice.
type Anonymizer struct {
	secret []byte
}

// NewAnonymizer validates the system secret once. A missing or short secret
// is a configuration error and must stop the process.
func NewAnonymizer(secret string) (*Anonymizer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	return &Anonymizer{secret: []byte(secret)}, nil
}

// DeriveKey returns hex(HMAC-SHA256(secret, voterID, electionID)).
// It is deterministic so a repeat attempt maps to the same key, and carries
// no timestamp or nonce.
func (a *Anonymizer) DeriveKey(voterID string, electionID int64) string {
	h := hmac.New(sha256.New, a.secret)
	h.Write([]byte(voterKeyLabel))

	// Length-prefix the voter ID so ("1", 23) and ("12", 3) cannot collide
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(voterID)))
	h.Write(lenBuf[:])
	h.Write([]byte(voterID))
	h.Write([]byte(strconv.FormatInt(electionID, 10)))

	return hex.EncodeToString(h.Sum(nil))
}

// HashOrigin hashes a client IP for anomaly detection. The result is never
// used for tallying.
func (a *Anonymizer) HashOrigin(ip string) string {
	return HashIP(ip, originLabel+string(a.secret))
}

// ValidateAdminKey compares the provided key to the configured one in
// constant time.
func ValidateAdminKey(provided, expected string) error {
	if expected == "" || provided == "" {
		return ErrInvalidAdminKey
	}
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}
