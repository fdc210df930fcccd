// Package analysis submits documents to an OCR and field-extraction backend, waits for the
// long-running operation to finish, and normalizes the payload into a models.AnalyzeResult.
package analysis

import (
	"context"
	"time"
)

// Status is the state of a backend operation.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// SubmitRequest is one document to analyze with one model.
type SubmitRequest struct {
	ModelID  string
	Content  []byte
	FileName string
	Pages    string // page range such as "1-3,5"; empty means all
	Locale   string
}

// Operation is the handle returned by Submit and passed back to Poll.
type Operation struct {
	ID       string
	ModelID  string
	Location string
}

// PollResult is one observation of an operation.
// Result is set when Status is succeeded; Error may be set when it is failed.
type PollResult struct {
	Status     Status
	RetryAfter time.Duration
	Result     *RawResult
	Error      *RawError
}

// Backend is the two-phase contract of a long-running analysis service.
// Implementations must be safe for concurrent use.
type Backend interface {
	Submit(ctx context.Context, req SubmitRequest) (Operation, error)
	Poll(ctx context.Context, op Operation) (PollResult, error)
}

// Clock abstracts time for the poll loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return systemClock{} }
