package ai

import "errors"

var (
	// ErrUnavailable means no provider is configured or reachable, or the
	// call timed out before the provider answered.
	ErrUnavailable = errors.New("ai provider unavailable")

	// ErrRejected means the call reached the provider but it returned an
	// error or empty output.
	ErrRejected = errors.New("ai provider rejected request")

	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
)
