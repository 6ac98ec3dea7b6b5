package gate

import "errors"

var (
	// ErrAccessDenied is returned when the server denied the feature; the
	// reason code on the Result carries the user-facing explanation.
	ErrAccessDenied = errors.New("feature access denied")

	// ErrVerificationFailed is returned when the authoritative check could
	// not complete (timeout, transport failure). The gate fails closed: the
	// action did not run.
	ErrVerificationFailed = errors.New("feature access verification failed")

	// ErrDecisionRequestFailed wraps transport-level failures of the
	// decision endpoint before they are normalized to ErrVerificationFailed.
	ErrDecisionRequestFailed = errors.New("decision request failed")

	ErrInvalidTransition = errors.New("invalid invocation state transition")
)
