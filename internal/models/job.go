package models

import "time"

// JobStatus is the lifecycle state of a submitted document.
type JobStatus string

const (
	JobQueued      JobStatus = "queued"
	JobDetecting   JobStatus = "detecting"
	JobAnalyzing   JobStatus = "analyzing"
	JobValidating  JobStatus = "validating"
	JobIndexing    JobStatus = "indexing"
	JobIndexed     JobStatus = "indexed"
	JobNeedsReview JobStatus = "needs_review"
	JobFailed      JobStatus = "failed"
)

// Terminal reports whether no further transitions happen from s.
func (s JobStatus) Terminal() bool {
	return s == JobIndexed || s == JobNeedsReview || s == JobFailed
}

// Job tracks one submitted document through detect, analyze, validate, and index.
type Job struct {
	ID               string             `json:"id"`
	OrganizationID   string             `json:"organizationId"`
	ClientID         string             `json:"clientId,omitempty"`
	CategoryHint     string             `json:"categoryHint,omitempty"`
	FileName         string             `json:"fileName,omitempty"`
	DocumentID       string             `json:"documentId"`
	Force            bool               `json:"force,omitempty"`
	Status           JobStatus          `json:"status"`
	DetectedCategory string             `json:"detectedCategory,omitempty"`
	Result           *AnalyzeResult     `json:"result,omitempty"`
	Verdict          *ValidationVerdict `json:"verdict,omitempty"`
	Error            string             `json:"error,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}
