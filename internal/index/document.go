package index

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/shorui/internal/models"
)

// toDocument flattens an entry into the indexed form. The full entry is kept as JSON
// in the stored-only source field so reads return exactly what was written.
func toDocument(e *models.SearchIndexEntry) (map[string]any, error) {
	src, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode entry %s: %w", e.ID, err)
	}
	doc := map[string]any{
		FieldID:                e.ID,
		FieldOrganizationID:    e.OrganizationID,
		FieldContent:           e.Content,
		FieldTitle:             e.Title,
		FieldTitleSort:         strings.ToLower(e.Title),
		FieldSummary:           e.Summary,
		FieldCategory:          e.Category,
		FieldDocumentType:      e.DocumentType,
		FieldFileType:          e.FileType,
		FieldTags:              e.Tags,
		FieldKeywords:          e.Keywords,
		FieldConcepts:          e.Concepts,
		FieldConfidenceScore:   e.ConfidenceScore,
		FieldQualityScore:      e.QualityScore,
		FieldBusinessRelevance: e.BusinessRelevance,
		FieldTaxRelevance:      e.TaxRelevance,
		FieldComplianceFlags:   e.ComplianceFlags,
		FieldIsConfidential:    e.IsConfidential,
		FieldConfidentialKey:   strconv.FormatBool(e.IsConfidential),
		FieldUploadedAt:        e.UploadedAt.UTC(),
		FieldLastModified:      e.LastModified.UTC(),
		FieldSuggest:           suggestText(e),
		FieldSource:            string(src),
	}
	if e.ClientID != "" {
		doc[FieldClientID] = e.ClientID
	}
	if e.Subcategory != nil {
		doc[FieldSubcategory] = *e.Subcategory
	}
	if e.Year != nil {
		doc[FieldYear] = float64(*e.Year)
		doc[FieldYearKey] = strconv.Itoa(*e.Year)
	}
	if e.Quarter != nil {
		doc[FieldQuarter] = float64(*e.Quarter)
		doc[FieldQuarterKey] = strconv.Itoa(*e.Quarter)
	}
	return doc, nil
}

// suggestText is the suggester source: title, tags, keywords, concepts, then content.
func suggestText(e *models.SearchIndexEntry) string {
	parts := make([]string, 0, 5)
	parts = append(parts, e.Title)
	parts = append(parts, e.Tags...)
	parts = append(parts, e.Keywords...)
	parts = append(parts, e.Concepts...)
	parts = append(parts, e.Content)
	return strings.Join(parts, "\n")
}

// DecodeSource parses a stored source field back into an entry.
func DecodeSource(v any) (*models.SearchIndexEntry, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("source field has type %T", v)
	}
	var e models.SearchIndexEntry
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	return &e, nil
}
