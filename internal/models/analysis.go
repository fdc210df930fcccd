// Package models defines core data structures for analysis results, index entries, queries, and jobs.
package models

import "time"

// NeutralConfidence is the overall confidence reported when a result carries
// no document, field, or line confidence at all.
const NeutralConfidence = 0.5

// AnalyzeResult is the normalized output of one analysis invocation.
type AnalyzeResult struct {
	DocumentType  string                    `json:"documentType"`
	Confidence    float64                   `json:"confidence"`
	RawText       string                    `json:"rawText"`
	Pages         []Page                    `json:"pages"`
	Fields        []Field                   `json:"fields"`
	ExtractedData map[string]ExtractedValue `json:"extractedData"`
	Metadata      AnalysisMetadata          `json:"metadata"`
}

// Page is one page of analyzed content.
type Page struct {
	PageNumber int     `json:"pageNumber"`
	Text       string  `json:"text"`
	Lines      []Line  `json:"lines"`
	Tables     []Table `json:"tables"`
}

// Line is a recognized line of text. Confidence is nil when the backend does not report it.
type Line struct {
	Content         string    `json:"content"`
	BoundingPolygon []float64 `json:"boundingPolygon,omitempty"`
	Confidence      *float64  `json:"confidence,omitempty"`
}

// Table is a recognized table.
type Table struct {
	RowCount    int         `json:"rowCount"`
	ColumnCount int         `json:"columnCount"`
	Cells       []TableCell `json:"cells"`
}

// TableCell is a single cell of a Table.
type TableCell struct {
	Content         string    `json:"content"`
	RowIndex        int       `json:"rowIndex"`
	ColumnIndex     int       `json:"columnIndex"`
	BoundingPolygon []float64 `json:"boundingPolygon,omitempty"`
}

// Field is a named value extracted by a prebuilt model.
type Field struct {
	Name            string    `json:"name"`
	Value           any       `json:"value"`
	Confidence      float64   `json:"confidence"`
	BoundingPolygon []float64 `json:"boundingPolygon,omitempty"`
}

// ExtractedValue is the map form of a Field, keyed by field name in AnalyzeResult.ExtractedData.
type ExtractedValue struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Type       string  `json:"type"`
}

// AnalysisMetadata describes how a result was produced.
type AnalysisMetadata struct {
	ModelID          string    `json:"modelId"`
	APIVersion       string    `json:"apiVersion"`
	ProcessedAt      time.Time `json:"processedAt"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
}

// ValidationVerdict describes whether an extraction meets a category's completeness and confidence bar.
// A failing verdict is an expected outcome, not an error.
type ValidationVerdict struct {
	IsValid             bool     `json:"isValid"`
	MissingFields       []string `json:"missingFields"`
	LowConfidenceFields []string `json:"lowConfidenceFields"`
	ValidationScore     float64  `json:"validationScore"`
}

// Detection is the Type Detector's guess for a document's category.
type Detection struct {
	DetectedCategory string  `json:"detectedCategory"`
	Confidence       float64 `json:"confidence"`
	SuggestedModelID string  `json:"suggestedModelId"`
}
