package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when an operation does not finish within the engine's max wait.
	ErrTimeout = errors.New("analysis timed out")
	// ErrNoResult is wrapped in a BackendError when a succeeded operation carries no payload.
	ErrNoResult = errors.New("analysis returned no result")
)

// BackendError reports a failure of the analysis backend: unreachable, rejected the model, or returned nothing.
type BackendError struct {
	Op      string // "submit" or "poll"
	ModelID string
	Status  int // HTTP status when known
	Code    string
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("analysis backend %s %s", e.Op, e.ModelID)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsBackendError reports whether err is or wraps a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
