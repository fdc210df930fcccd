package indexer

import "github.com/hyperjump/shorui/internal/models"

// Merge returns a copy of base with every non-nil field of p applied.
// An empty organizationId in p is ignored.
func Merge(base *models.SearchIndexEntry, p *models.PartialEntry) *models.SearchIndexEntry {
	e := *base
	if p.OrganizationID != nil && *p.OrganizationID != "" {
		e.OrganizationID = *p.OrganizationID
	}
	setString(&e.ClientID, p.ClientID)
	setString(&e.Content, p.Content)
	setString(&e.Title, p.Title)
	setString(&e.Summary, p.Summary)
	setString(&e.Category, p.Category)
	setString(&e.DocumentType, p.DocumentType)
	setString(&e.FileType, p.FileType)
	if p.Subcategory != nil {
		v := *p.Subcategory
		e.Subcategory = &v
	}
	if p.Tags != nil {
		e.Tags = append([]string(nil), p.Tags...)
	}
	if p.Keywords != nil {
		e.Keywords = append([]string(nil), p.Keywords...)
	}
	if p.Concepts != nil {
		e.Concepts = append([]string(nil), p.Concepts...)
	}
	if p.ComplianceFlags != nil {
		e.ComplianceFlags = append([]string(nil), p.ComplianceFlags...)
	}
	setFloat(&e.ConfidenceScore, p.ConfidenceScore)
	setFloat(&e.QualityScore, p.QualityScore)
	setFloat(&e.BusinessRelevance, p.BusinessRelevance)
	setFloat(&e.TaxRelevance, p.TaxRelevance)
	if p.IsConfidential != nil {
		e.IsConfidential = *p.IsConfidential
	}
	if p.Year != nil {
		v := *p.Year
		e.Year = &v
	}
	if p.Quarter != nil {
		v := *p.Quarter
		e.Quarter = &v
	}
	if p.UploadedAt != nil {
		e.UploadedAt = *p.UploadedAt
	}
	if p.LastModified != nil {
		e.LastModified = *p.LastModified
	}
	if p.ExtractedData != nil {
		e.ExtractedData = mergeMap(e.ExtractedData, p.ExtractedData)
	}
	if p.Metadata != nil {
		e.Metadata = mergeMap(e.Metadata, p.Metadata)
	}
	return &e
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// mergeMap overlays keys of b onto a copy of a.
func mergeMap(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
