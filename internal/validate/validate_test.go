package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/registry"
)

func result(fields map[string]float64) *models.AnalyzeResult {
	data := make(map[string]models.ExtractedValue, len(fields))
	for name, conf := range fields {
		data[name] = models.ExtractedValue{Value: "v", Confidence: conf, Type: "string"}
	}
	return &models.AnalyzeResult{ExtractedData: data}
}

func TestValidate_InvoiceMissingDueDate(t *testing.T) {
	v := New(registry.Default())
	got := v.Validate(result(map[string]float64{"InvoiceId": 0.95, "InvoiceTotal": 0.95}), "invoice")

	assert.False(t, got.IsValid)
	assert.Equal(t, []string{"DueDate"}, got.MissingFields)
	assert.Empty(t, got.LowConfidenceFields)
	assert.InDelta(t, 2.0/3.0, got.ValidationScore, 1e-9)
}

func TestValidate(t *testing.T) {
	v := New(registry.Default())
	tests := []struct {
		name      string
		fields    map[string]float64
		category  string
		valid     bool
		score     float64
		missing   []string
		lowConfid []string
	}{
		{
			name:     "complete",
			fields:   map[string]float64{"InvoiceId": 0.9, "InvoiceTotal": 0.8, "DueDate": 0.7},
			category: "invoice", valid: true, score: 1,
			missing: []string{}, lowConfid: []string{},
		},
		{
			name:     "one low confidence",
			fields:   map[string]float64{"InvoiceId": 0.9, "InvoiceTotal": 0.69, "DueDate": 0.9},
			category: "invoice", valid: true, score: 2.5 / 3,
			missing: []string{}, lowConfid: []string{"InvoiceTotal"},
		},
		{
			name:     "all low confidence",
			fields:   map[string]float64{"InvoiceId": 0.1, "InvoiceTotal": 0.1, "DueDate": 0.1},
			category: "invoice", valid: true, score: 0.5,
			missing: []string{}, lowConfid: []string{"InvoiceId", "InvoiceTotal", "DueDate"},
		},
		{
			name:     "nothing extracted",
			fields:   nil,
			category: "INVOICE", valid: false, score: 0,
			missing: []string{"InvoiceId", "InvoiceTotal", "DueDate"}, lowConfid: []string{},
		},
		{
			name:     "unknown category",
			fields:   nil,
			category: "pay-stub", valid: true, score: 1,
			missing: []string{}, lowConfid: []string{},
		},
		{
			name:     "general has nothing to check",
			fields:   nil,
			category: registry.CategoryGeneral, valid: true, score: 1,
			missing: []string{}, lowConfid: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(result(tt.fields), tt.category)
			assert.Equal(t, tt.valid, got.IsValid)
			assert.InDelta(t, tt.score, got.ValidationScore, 1e-9)
			assert.Equal(t, tt.missing, got.MissingFields)
			assert.Equal(t, tt.lowConfid, got.LowConfidenceFields)
		})
	}
}

func TestValidate_Deterministic(t *testing.T) {
	v := New(registry.Default())
	r := result(map[string]float64{"Employee": 0.9, "TaxYear": 0.5})
	assert.Equal(t, v.Validate(r, "w2"), v.Validate(r, "w2"))
}

func TestValidate_NilResult(t *testing.T) {
	v := New(registry.Default())
	got := v.Validate(nil, "receipt")
	assert.False(t, got.IsValid)
	assert.Len(t, got.MissingFields, 3)
}
