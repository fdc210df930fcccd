package models

import "time"

// TimeFormat is the canonical wire encoding for every date/time field written to the index.
const TimeFormat = time.RFC3339Nano

// SearchIndexEntry is the durable, searchable projection of a document.
// OrganizationID is mandatory; entries without it are rejected on every write path.
type SearchIndexEntry struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organizationId"`
	ClientID       string  `json:"clientId,omitempty"`
	Content        string  `json:"content"`
	Title          string  `json:"title"`
	Summary        string  `json:"summary"`
	Category       string  `json:"category"`
	Subcategory    *string `json:"subcategory,omitempty"`
	DocumentType   string  `json:"documentType"`
	FileType       string  `json:"fileType"`

	Tags     []string `json:"tags"`
	Keywords []string `json:"keywords"`
	Concepts []string `json:"concepts"`

	ConfidenceScore   float64  `json:"confidenceScore"`
	QualityScore      float64  `json:"qualityScore"`
	BusinessRelevance float64  `json:"businessRelevance"`
	TaxRelevance      float64  `json:"taxRelevance"`
	ComplianceFlags   []string `json:"complianceFlags"`
	IsConfidential    bool     `json:"isConfidential"`

	Year         *int      `json:"year,omitempty"`
	Quarter      *int      `json:"quarter,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
	LastModified time.Time `json:"lastModified"`

	ExtractedData map[string]any `json:"extractedData,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Canonicalize normalizes time fields to UTC so every write path encodes them identically.
func (e *SearchIndexEntry) Canonicalize() {
	e.UploadedAt = e.UploadedAt.UTC()
	e.LastModified = e.LastModified.UTC()
}

// PartialEntry is a merge update. Nil fields are left untouched; ID is required.
type PartialEntry struct {
	ID             string  `json:"id"`
	OrganizationID *string `json:"organizationId,omitempty"`
	ClientID       *string `json:"clientId,omitempty"`
	Content        *string `json:"content,omitempty"`
	Title          *string `json:"title,omitempty"`
	Summary        *string `json:"summary,omitempty"`
	Category       *string `json:"category,omitempty"`
	Subcategory    *string `json:"subcategory,omitempty"`
	DocumentType   *string `json:"documentType,omitempty"`
	FileType       *string `json:"fileType,omitempty"`

	Tags     []string `json:"tags,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Concepts []string `json:"concepts,omitempty"`

	ConfidenceScore   *float64 `json:"confidenceScore,omitempty"`
	QualityScore      *float64 `json:"qualityScore,omitempty"`
	BusinessRelevance *float64 `json:"businessRelevance,omitempty"`
	TaxRelevance      *float64 `json:"taxRelevance,omitempty"`
	ComplianceFlags   []string `json:"complianceFlags,omitempty"`
	IsConfidential    *bool    `json:"isConfidential,omitempty"`

	Year         *int       `json:"year,omitempty"`
	Quarter      *int       `json:"quarter,omitempty"`
	UploadedAt   *time.Time `json:"uploadedAt,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`

	ExtractedData map[string]any `json:"extractedData,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// BatchFailure reports one entry that could not be indexed.
type BatchFailure struct {
	ID           string `json:"id"`
	ErrorMessage string `json:"errorMessage"`
}

// BatchResult reports per-item outcomes of a batch write.
type BatchResult struct {
	SuccessfulIDs []string       `json:"successfulIds"`
	Failed        []BatchFailure `json:"failed"`
}

// IndexStatistics summarizes the index store.
type IndexStatistics struct {
	DocumentCount    uint64 `json:"documentCount"`
	StorageSizeBytes int64  `json:"storageSizeBytes"`
}
