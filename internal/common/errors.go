// Package common defines shared constants and sentinel errors used across
// the signing workflow. Callers should use errors.Is to match these values
// and Kind to obtain the machine-readable error kind for responses.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken covers malformed, forged and expired client tokens.
	// The caller never learns which check failed.
	ErrInvalidToken = errors.New("invalid or expired access link")

	// Operator token lifecycle.
	ErrTokenExpired = errors.New("token expired")

	// Signing workflow.
	ErrTermsNotAccepted  = errors.New("terms have not been accepted")
	ErrTermsNotAgreed    = errors.New("you must agree to the terms and conditions")
	ErrEmptySignature    = errors.New("signature data is required")
	ErrAlreadySigned     = errors.New("contract has already been signed")
	ErrNotYetSigned      = errors.New("contract has not been signed yet")
	ErrInvalidTransition = errors.New("invalid contract state transition")
	ErrInvalidAction     = errors.New("invalid action")

	// ErrTemporaryFailure marks storage/network trouble. Safe to retry.
	ErrTemporaryFailure = errors.New("temporary failure, please retry")

	// Validation of operator input.
	ErrorValidation = errors.New("validation error")
)

// Machine-readable error kinds carried in client responses.
const (
	KindInvalid           = "invalid"
	KindTermsNotAccepted  = "terms_not_accepted"
	KindTermsNotAgreed    = "terms_not_agreed"
	KindEmptySignature    = "empty_signature"
	KindAlreadySigned     = "already_signed"
	KindNotYetSigned      = "not_yet_signed"
	KindInvalidTransition = "invalid_transition"
	KindInvalidAction     = "invalid_action"
	KindTemporaryFailure  = "temporary_failure"
	KindNotFound          = "not_found"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidToken, KindInvalid},
	{ErrTermsNotAccepted, KindTermsNotAccepted},
	{ErrTermsNotAgreed, KindTermsNotAgreed},
	{ErrEmptySignature, KindEmptySignature},
	{ErrAlreadySigned, KindAlreadySigned},
	{ErrNotYetSigned, KindNotYetSigned},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrInvalidAction, KindInvalidAction},
	{ErrorNotFound, KindNotFound},
	{ErrTemporaryFailure, KindTemporaryFailure},
}

// Kind classifies err into one of the Kind* constants. Errors outside the
// taxonomy are reported as temporary failures.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindTemporaryFailure
}

// IsTerminal reports whether err is a validation outcome that must not be
// retried by the client.
func IsTerminal(err error) bool {
	switch Kind(err) {
	case KindTemporaryFailure:
		return false
	default:
		return true
	}
}

// TransitionError describes a rejected lifecycle move. It matches
// ErrInvalidTransition with errors.Is.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Temporary wraps err as a retryable failure unless it already belongs to
// the client-facing taxonomy.
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrTemporaryFailure, err)
}
