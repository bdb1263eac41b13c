package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryUnreachable is returned when a domain's service directory cannot be fetched or parsed
	ErrDirectoryUnreachable = errors.New("service directory unreachable")

	// ErrEndpointNotAdvertised is returned when the directory lacks the endpoint a flow needs
	ErrEndpointNotAdvertised = errors.New("endpoint not advertised by directory")

	// ErrChallengeRequestFailed is returned when the challenge request cannot be completed
	ErrChallengeRequestFailed = errors.New("challenge request failed")

	// ErrChallengeExpired is returned when a challenge's validity window has closed
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrChallengeInvalid is returned when a challenge fails structural validation
	ErrChallengeInvalid = errors.New("challenge failed validation")

	// ErrSourceAccountMismatch is returned when a challenge was issued for a different account
	ErrSourceAccountMismatch = errors.New("challenge source account mismatch")

	// ErrMalformedEnvelope is returned when envelope bytes cannot be parsed
	ErrMalformedEnvelope = errors.New("malformed transaction envelope")

	// ErrEncodingFailed is returned when an envelope cannot be re-serialized
	ErrEncodingFailed = errors.New("envelope encoding failed")

	// ErrSigningKeyUnavailable is returned when a signer has no key configured
	ErrSigningKeyUnavailable = errors.New("signing key unavailable")

	// ErrSigningFailed is returned on any cryptographic signing failure
	ErrSigningFailed = errors.New("signing failed")

	// ErrDuplicateSignature is returned when the envelope already bears a signature for the same key
	ErrDuplicateSignature = errors.New("envelope already signed by this key")

	// ErrSubjectSignatureMissing is returned when co-signing an envelope the subject never signed
	ErrSubjectSignatureMissing = errors.New("subject signature missing from envelope")

	// ErrSubmissionRejected is returned when the verifier rejects a fully signed envelope
	ErrSubmissionRejected = errors.New("submission rejected by verifier")

	// ErrSubmissionTransport is returned when submission fails before the verifier could answer
	ErrSubmissionTransport = errors.New("submission transport failure")

	// ErrMissingField is returned when a transfer request lacks a required field
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidAmount is returned when a transfer amount is not a positive decimal
	ErrInvalidAmount = errors.New("invalid transfer amount")

	// ErrInitiationFailed is returned when the verifier rejects a transfer initiation
	ErrInitiationFailed = errors.New("transfer initiation failed")

	// ErrPollTransport is returned when a single status poll fails; the session stays pollable
	ErrPollTransport = errors.New("status poll transport failure")
)

// RejectionError carries a verifier rejection together with the raw response
// body. Callers depend on the verbatim payload for diagnosis, so it is never
// reworded or truncated.
type RejectionError struct {
	Kind   error  // the local sentinel this rejection maps to
	Status int    // HTTP status returned by the verifier
	Body   []byte // raw response body, verbatim
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("%v: verifier returned %d: %s", e.Kind, e.Status, e.Body)
}

// Unwrap lets errors.Is match the underlying sentinel.
func (e *RejectionError) Unwrap() error {
	return e.Kind
}
