// Package search runs tenant-scoped keyword, semantic, faceted, and suggestion queries
// against the index store.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/index"
	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/pkg/utils"
)

const (
	DefaultTop          = 10
	MaxTop              = 1000
	DefaultSuggestCount = 5
	semanticWindow      = 50
)

// fieldBoosts weights the text fields searched by simple and semantic queries.
var fieldBoosts = []struct {
	field string
	boost float64
}{
	{index.FieldTitle, 3},
	{index.FieldKeywords, 2},
	{index.FieldSummary, 1.5},
	{index.FieldConcepts, 1.5},
	{index.FieldContent, 1},
}

// Engine answers search, suggest, and autocomplete requests. Every request must carry an
// organizationId; it is compiled into the filter of every index query.
type Engine struct {
	store        index.Store
	defaultTop   int
	maxTop       int
	facetCount   int
	suggestCount int
	timeout      time.Duration
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLimits sets the default and maximum page size.
func WithLimits(defaultTop, maxTop int) Option {
	return func(e *Engine) {
		if defaultTop > 0 {
			e.defaultTop = defaultTop
		}
		if maxTop > 0 {
			e.maxTop = maxTop
		}
	}
}

func WithFacetCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.facetCount = n
		}
	}
}

func WithSuggestCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.suggestCount = n
		}
	}
}

// WithTimeout bounds each index round trip.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// NewEngine creates an Engine over store.
func NewEngine(store index.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		defaultTop:   DefaultTop,
		maxTop:       MaxTop,
		facetCount:   DefaultFacetCount,
		suggestCount: DefaultSuggestCount,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

// Search executes opts. It fails with ErrMissingTenant or a *QueryError before touching the index.
func (e *Engine) Search(ctx context.Context, opts models.SearchOptions) (*models.SearchResponse, error) {
	start := time.Now()
	filter, err := CompileFilters(opts.Filters)
	if err != nil {
		return nil, err
	}
	if err := opts.Normalize(e.defaultTop, e.maxTop); err != nil {
		return nil, &QueryError{Message: err.Error()}
	}
	if opts.PageToken != "" {
		skip, err := decodePageToken(opts.PageToken)
		if err != nil {
			return nil, err
		}
		opts.Skip = skip
	}
	facets, err := parseFacets(opts.Facets, e.facetCount)
	if err != nil {
		return nil, err
	}
	sortKeys, err := parseOrderBy(opts.OrderBy)
	if err != nil {
		return nil, err
	}
	semantic := opts.QueryType == models.QueryTypeSemantic
	highlights, err := highlightFields(opts, semantic)
	if err != nil {
		return nil, err
	}

	clauses := []query.Query{filter.Query()}
	if tq := textQuery(opts); tq != nil {
		clauses = append(clauses, tq)
	}
	q := bleve.NewConjunctionQuery(clauses...)

	size, from := opts.Top, opts.Skip
	if semantic {
		size = max(opts.Skip+opts.Top, semanticWindow)
		from = 0
	}
	req := bleve.NewSearchRequestOptions(q, size, from, false)
	req.Fields = []string{index.FieldSource}
	if len(sortKeys) > 0 && !semantic {
		req.SortBy(sortKeys)
	}
	for _, f := range facets {
		req.AddFacet(f.name, bleve.NewFacetRequest(f.field, f.count*2+10))
	}
	if len(highlights) > 0 {
		req.Highlight = bleve.NewHighlight()
		for _, f := range highlights {
			req.Highlight.AddField(f)
		}
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	res, err := e.store.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]*models.SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		entry, err := index.DecodeSource(h.Fields[index.FieldSource])
		if err != nil {
			e.logger.Warn("skipping undecodable hit", zap.String("id", h.ID), zap.Error(err))
			continue
		}
		hit := &models.SearchHit{Entry: entry, Score: h.Score}
		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string][]string, len(h.Fragments))
			for field, frags := range h.Fragments {
				hit.Highlights[field] = frags
			}
		}
		hits = append(hits, hit)
	}

	total := int(res.Total)
	resp := &models.SearchResponse{TotalCount: &total}

	if semantic {
		terms := utils.Tokenize(opts.Query)
		rerank(hits, terms)
		if opts.Semantic != nil && opts.Semantic.Answers {
			resp.Answers = extractAnswers(hits, terms, 3)
		}
		if opts.Skip >= len(hits) {
			hits = hits[:0]
		} else {
			hits = hits[opts.Skip:min(len(hits), opts.Skip+opts.Top)]
		}
		if opts.Semantic != nil && opts.Semantic.Captions {
			for _, h := range hits {
				h.Captions = captions(h, terms, 2)
			}
		}
		if !wantsHighlights(opts) {
			for _, h := range hits {
				h.Highlights = nil
			}
		}
	}
	resp.Documents = hits

	if len(facets) > 0 {
		resp.Facets = make(map[string][]models.FacetValue, len(facets))
		for _, f := range facets {
			values := []models.FacetValue{}
			if fr, ok := res.Facets[f.name]; ok && fr.Terms != nil {
				terms := make([]facetTerm, 0, len(fr.Terms.Terms()))
				for _, t := range fr.Terms.Terms() {
					terms = append(terms, facetTerm{term: t.Term, count: t.Count})
				}
				for _, t := range sortFacet(terms, f.count) {
					values = append(values, models.FacetValue{Value: t.term, Count: t.count})
				}
			}
			resp.Facets[f.name] = values
		}
	}

	if next := opts.Skip + len(hits); len(hits) > 0 && next < total {
		resp.NextPageToken = encodePageToken(next)
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	e.logger.Debug("search",
		zap.String("org", opts.Filters.OrganizationID),
		zap.String("filter", filter.String()),
		zap.String("query_type", opts.QueryType),
		zap.Int("hits", len(hits)),
		zap.Int("total", total),
		zap.Int64("elapsed_ms", resp.QueryTime))
	return resp, nil
}

// Get returns the entry with id if it belongs to organizationID.
func (e *Engine) Get(ctx context.Context, organizationID, id string) (*models.SearchIndexEntry, error) {
	filter, err := CompileFilters(&models.SearchFilters{OrganizationID: organizationID})
	if err != nil {
		return nil, err
	}
	q := bleve.NewConjunctionQuery(filter.Query(), bleve.NewDocIDQuery([]string{id}))
	req := bleve.NewSearchRequestOptions(q, 1, 0, false)
	req.Fields = []string{index.FieldSource}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	res, err := e.store.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if len(res.Hits) == 0 {
		return nil, index.ErrNotFound
	}
	return index.DecodeSource(res.Hits[0].Fields[index.FieldSource])
}

// textQuery builds the query-text part of a search, or nil to match everything.
func textQuery(opts models.SearchOptions) query.Query {
	text := strings.TrimSpace(opts.Query)
	if text == "" || text == "*" {
		return nil
	}
	if opts.QueryType == models.QueryTypeFull {
		return bleve.NewQueryStringQuery(text)
	}
	if opts.SearchMode == models.SearchModeAll {
		terms := index.IndexedWords(utils.Tokenize(text))
		if len(terms) == 0 {
			return acrossFields(text)
		}
		perTerm := make([]query.Query, 0, len(terms))
		for _, t := range terms {
			perTerm = append(perTerm, acrossFields(t))
		}
		return bleve.NewConjunctionQuery(perTerm...)
	}
	return acrossFields(text)
}

// acrossFields matches text in any boosted text field.
func acrossFields(text string) query.Query {
	qs := make([]query.Query, 0, len(fieldBoosts))
	for _, fb := range fieldBoosts {
		mq := bleve.NewMatchQuery(text)
		mq.SetField(fb.field)
		mq.SetBoost(fb.boost)
		qs = append(qs, mq)
	}
	return bleve.NewDisjunctionQuery(qs...)
}

func wantsHighlights(opts models.SearchOptions) bool {
	return len(opts.HighlightFields) > 0
}

func highlightFields(opts models.SearchOptions, semantic bool) ([]string, error) {
	allowed := make(map[string]bool)
	for _, f := range index.HighlightableFields() {
		allowed[f] = true
	}
	fields := make([]string, 0, len(opts.HighlightFields)+1)
	for _, f := range opts.HighlightFields {
		if !allowed[f] {
			return nil, &QueryError{Field: "highlightFields", Message: fmt.Sprintf("field %q cannot be highlighted", f)}
		}
		fields = append(fields, f)
	}
	if semantic && opts.Semantic != nil && opts.Semantic.Captions {
		fields = append(fields, index.FieldContent)
	}
	return utils.Dedupe(fields), nil
}
