package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/shorui/internal/analysis"
	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/registry"
)

type stubLayout struct {
	text    string
	err     error
	modelID string
}

func (s *stubLayout) AnalyzeWithModel(_ context.Context, _ []byte, modelID string, _ analysis.Options) (*models.AnalyzeResult, error) {
	s.modelID = modelID
	if s.err != nil {
		return nil, s.err
	}
	return &models.AnalyzeResult{RawText: s.text}, nil
}

func TestClassify(t *testing.T) {
	d := New(&stubLayout{}, registry.Default())
	tests := []struct {
		name     string
		text     string
		category string
		conf     float64
	}{
		{"w2 beats receipt vocabulary", "Form W-2 Wage and Tax Statement\nTotal 5,000 Date 2023-12-31", registry.CategoryW2, 0.9},
		{"1099-nec", "FORM 1099-NEC Nonemployee Compensation", registry.Category1099NEC, 0.9},
		{"1099-misc", "Form 1099-MISC", registry.Category1099MISC, 0.9},
		{"1099-int", "Form 1099-INT Interest Income", registry.Category1099INT, 0.9},
		{"1098", "Form 1098 Mortgage Interest Statement", registry.Category1098, 0.9},
		{"1040", "Form 1040 U.S. Individual Income Tax Return", registry.Category1040, 0.9},
		{"detailed invoice", "INVOICE\nBill To: Acme", registry.CategoryInvoice, 0.85},
		{"bare invoice", "Invoice", registry.CategoryInvoice, 0.7},
		{"bank statement", "First Bank\nStatement Period Jan 1 - Jan 31", registry.CategoryBankStatement, 0.75},
		{"balances", "Opening balance 10\nClosing balance 20", registry.CategoryBankStatement, 0.75},
		{"passport", "PASSPORT United States", registry.CategoryIDDocument, 0.7},
		{"receipt", "Thank you! Receipt #123", registry.CategoryReceipt, 0.75},
		{"totals", "Subtotal 4.00\nTotal 4.32", registry.CategoryReceipt, 0.6},
		{"no match", "Dear Sir, please find attached", registry.CategoryGeneral, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Classify(tt.text)
			assert.Equal(t, tt.category, got.DetectedCategory)
			assert.Equal(t, tt.conf, got.Confidence)
			assert.Equal(t, registry.Default().ModelFor(tt.category), got.SuggestedModelID)
		})
	}
}

func TestDetect_UsesLayoutModel(t *testing.T) {
	layout := &stubLayout{text: "Wage and Tax Statement"}
	d := New(layout, registry.Default())

	got := d.Detect(context.Background(), []byte("x"), "w2.pdf")
	assert.Equal(t, registry.LayoutModelID, layout.modelID)
	assert.Equal(t, registry.CategoryW2, got.DetectedCategory)
	assert.Equal(t, "prebuilt-tax.us.w2", got.SuggestedModelID)
}

func TestDetect_LayoutFailureIsSoft(t *testing.T) {
	d := New(&stubLayout{err: errors.New("backend down")}, registry.Default())
	got := d.Detect(context.Background(), []byte("x"), "")
	assert.Equal(t, models.Detection{DetectedCategory: registry.CategoryUnknown, Confidence: 0, SuggestedModelID: registry.GenericModelID}, got)

	d = New(&stubLayout{text: "  \n"}, registry.Default())
	assert.Equal(t, registry.CategoryUnknown, d.Detect(context.Background(), []byte("x"), "").DetectedCategory)
}

func TestWithRules_OrderIsRespected(t *testing.T) {
	rules := []Rule{
		{"generic-first", registry.CategoryReceipt, 0.1, anyOf("total")},
		{"w2", registry.CategoryW2, 0.9, anyOf("w-2")},
	}
	d := New(&stubLayout{}, registry.Default(), WithRules(rules))
	got := d.Classify("W-2 total")
	assert.Equal(t, registry.CategoryReceipt, got.DetectedCategory)
	assert.Equal(t, 0.1, got.Confidence)
}

func TestDefaultRules_ConfidencesInRange(t *testing.T) {
	for _, r := range DefaultRules() {
		assert.Truef(t, r.Confidence > 0 && r.Confidence <= 1, "rule %s", r.Name)
		_, ok := registry.Default().Lookup(r.Category)
		assert.Truef(t, ok, "rule %s targets unregistered category %s", r.Name, r.Category)
	}
}
