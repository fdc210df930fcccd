// Package validate checks analysis results against a category's expected fields.
package validate

import (
	"math"

	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/registry"
)

// ConfidenceFloor is the minimum confidence for an expected field to count as reliable.
const ConfidenceFloor = 0.7

// PassingScore is the minimum score of a valid verdict.
const PassingScore = 0.5

// Validator produces verdicts from a registry. It keeps no state between calls.
type Validator struct {
	registry *registry.Registry
}

// New returns a Validator backed by reg.
func New(reg *registry.Registry) *Validator {
	return &Validator{registry: reg}
}

// Validate scores result against the expected fields of categoryKey.
// Unknown categories, and categories without expected fields, are valid with score 1.
func (v *Validator) Validate(result *models.AnalyzeResult, categoryKey string) models.ValidationVerdict {
	verdict := models.ValidationVerdict{
		IsValid:             true,
		MissingFields:       []string{},
		LowConfidenceFields: []string{},
		ValidationScore:     1.0,
	}
	profile, ok := v.registry.Lookup(categoryKey)
	if !ok || len(profile.ExpectedFields) == 0 {
		return verdict
	}

	var data map[string]models.ExtractedValue
	if result != nil {
		data = result.ExtractedData
	}
	for _, name := range profile.ExpectedFields {
		ev, present := data[name]
		switch {
		case !present:
			verdict.MissingFields = append(verdict.MissingFields, name)
		case ev.Confidence < ConfidenceFloor:
			verdict.LowConfidenceFields = append(verdict.LowConfidenceFields, name)
		}
	}

	total := float64(len(profile.ExpectedFields))
	score := (total - float64(len(verdict.MissingFields)) - 0.5*float64(len(verdict.LowConfidenceFields))) / total
	verdict.ValidationScore = math.Max(0, score)
	verdict.IsValid = len(verdict.MissingFields) == 0 && verdict.ValidationScore >= PassingScore
	return verdict
}
