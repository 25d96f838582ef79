// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package caster

import (
	"errors"
	"fmt"

	"github.com/danielhkuo/quickly-vote/models"
)

// CastError is the only error CastVote returns. Kind is drawn from a closed
// set; Message is safe to show the voter. Err keeps the underlying cause
// for logs and never reaches the voter.
type CastError struct {
	Kind    models.ErrorKind
	Message string
	Err     error
}

func (e *CastError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CastError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the whole cast from scratch can
// succeed. AlreadyVoted is terminal.
func (e *CastError) Retryable() bool {
	return e.Kind == models.KindCastFailed
}

// KindOf extracts the ErrorKind from err. Errors that are not a CastError
// count as CastFailed; nil has no kind.
func KindOf(err error) models.ErrorKind {
	if err == nil {
		return ""
	}
	var castErr *CastError
	if errors.As(err, &castErr) {
		return castErr.Kind
	}
	return models.KindCastFailed
}

func fail(kind models.ErrorKind, message string, cause error) *CastError {
	return &CastError{Kind: kind, Message: message, Err: cause}
}
