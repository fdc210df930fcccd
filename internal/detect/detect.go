// Package detect guesses a document's category from a layout pass and an ordered rule table.
package detect

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/analysis"
	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/registry"
)

const (
	// FallbackConfidence is reported for the generic category when no rule matches.
	FallbackConfidence = 0.5
)

// LayoutAnalyzer runs a model over document bytes. *analysis.Engine satisfies it.
type LayoutAnalyzer interface {
	AnalyzeWithModel(ctx context.Context, content []byte, modelID string, opts analysis.Options) (*models.AnalyzeResult, error)
}

// Detector classifies documents. It is safe for concurrent use.
type Detector struct {
	layout   LayoutAnalyzer
	registry *registry.Registry
	rules    []Rule
	logger   *zap.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithRules replaces the rule table.
func WithRules(rules []Rule) Option {
	return func(d *Detector) {
		d.rules = append([]Rule(nil), rules...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Detector that runs layout passes through layout.
func New(layout LayoutAnalyzer, reg *registry.Registry, opts ...Option) *Detector {
	d := &Detector{
		layout:   layout,
		registry: reg,
		rules:    DefaultRules(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect runs a layout-only pass over content and classifies the text.
// A failed or empty layout pass yields {unknown, 0} and never an error.
func (d *Detector) Detect(ctx context.Context, content []byte, fileName string) models.Detection {
	res, err := d.layout.AnalyzeWithModel(ctx, content, registry.LayoutModelID, analysis.Options{FileName: fileName})
	if err != nil {
		d.logger.Warn("layout pass failed", zap.String("file", fileName), zap.Error(err))
		return d.unknown()
	}
	if strings.TrimSpace(res.RawText) == "" {
		d.logger.Debug("layout pass returned no text", zap.String("file", fileName))
		return d.unknown()
	}
	return d.Classify(res.RawText)
}

// Classify applies the rule table to text. The first matching rule wins.
func (d *Detector) Classify(text string) models.Detection {
	lower := strings.ToLower(text)
	for _, r := range d.rules {
		if r.Match(lower) {
			d.logger.Debug("detected category", zap.String("rule", r.Name), zap.String("category", r.Category))
			return models.Detection{
				DetectedCategory: r.Category,
				Confidence:       r.Confidence,
				SuggestedModelID: d.registry.ModelFor(r.Category),
			}
		}
	}
	return models.Detection{
		DetectedCategory: registry.CategoryGeneral,
		Confidence:       FallbackConfidence,
		SuggestedModelID: d.registry.ModelFor(registry.CategoryGeneral),
	}
}

func (d *Detector) unknown() models.Detection {
	return models.Detection{
		DetectedCategory: registry.CategoryUnknown,
		Confidence:       0,
		SuggestedModelID: registry.GenericModelID,
	}
}
