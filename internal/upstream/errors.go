package upstream

import (
	"errors"
	"fmt"
)

// Error kinds for upstream failures. Callers branch on these with errors.Is.
var (
	// ErrUnavailable marks transport-level failures: the upstream could not
	// be reached at all, or kept failing through the retry budget.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrBadStatus marks a non-retryable upstream HTTP error (4xx).
	ErrBadStatus = errors.New("upstream error")

	// ErrMalformed marks a response body that could not be decoded.
	ErrMalformed = errors.New("upstream malformed")
)

// StatusError carries the upstream HTTP status code alongside ErrBadStatus.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream error: status %d: %s", e.Code, e.Detail)
}

func (e *StatusError) Unwrap() error { return ErrBadStatus }
