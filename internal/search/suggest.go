package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/index"
	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/pkg/utils"
)

// autocompleteWindow is how many documents are scanned for completion terms.
const autocompleteWindow = 50

// prefixQuery matches documents whose suggest field contains the prefix words.
// The last word is a prefix (and fuzzy when asked); earlier words must match whole
// unless they are stop words, which the suggest field never holds.
func prefixQuery(words []string, fuzzy bool) query.Query {
	qs := make([]query.Query, 0, len(words))
	for _, w := range index.IndexedWords(words[:len(words)-1]) {
		mq := bleve.NewMatchQuery(w)
		mq.SetField(index.FieldSuggest)
		qs = append(qs, mq)
	}
	last := words[len(words)-1]
	pq := bleve.NewPrefixQuery(last)
	pq.SetField(index.FieldSuggest)
	var lastQ query.Query = pq
	if fuzzy && len([]rune(last)) >= 3 {
		fq := bleve.NewFuzzyQuery(last)
		fq.SetField(index.FieldSuggest)
		fq.SetFuzziness(fuzziness(last))
		lastQ = bleve.NewDisjunctionQuery(pq, fq)
	}
	qs = append(qs, lastQ)
	return bleve.NewConjunctionQuery(qs...)
}

func (e *Engine) prefixSearch(ctx context.Context, opts models.SuggestOptions, size int) ([]*models.SearchIndexEntry, []string, error) {
	filter, err := CompileFilters(opts.Filters)
	if err != nil {
		return nil, nil, err
	}
	words := utils.Tokenize(opts.Prefix)
	if len(words) == 0 {
		return nil, nil, &QueryError{Field: "prefix", Message: "must contain a letter or digit"}
	}
	q := bleve.NewConjunctionQuery(filter.Query(), prefixQuery(words, opts.Fuzzy))
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Fields = []string{index.FieldSource}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	res, err := e.store.Search(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("suggest: %w", err)
	}
	entries := make([]*models.SearchIndexEntry, 0, len(res.Hits))
	for _, h := range res.Hits {
		entry, err := index.DecodeSource(h.Fields[index.FieldSource])
		if err != nil {
			e.logger.Warn("skipping undecodable hit", zap.String("id", h.ID), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, words, nil
}

func (e *Engine) suggestTop(opts models.SuggestOptions) int {
	if opts.Top > 0 && opts.Top <= e.maxTop {
		return opts.Top
	}
	if opts.Top > e.maxTop {
		return e.maxTop
	}
	return e.suggestCount
}

// Suggest returns documents whose title, tags, keywords, concepts, or content start with the prefix.
func (e *Engine) Suggest(ctx context.Context, opts models.SuggestOptions) ([]models.Suggestion, error) {
	entries, words, err := e.prefixSearch(ctx, opts, e.suggestTop(opts))
	if err != nil {
		return nil, err
	}
	last := words[len(words)-1]
	out := make([]models.Suggestion, 0, len(entries))
	for _, entry := range entries {
		out = append(out, models.Suggestion{Text: suggestionText(entry, last, opts.Fuzzy), DocumentID: entry.ID})
	}
	return out, nil
}

// suggestionText picks the first suggester source value containing a word that matches prefix.
func suggestionText(e *models.SearchIndexEntry, prefix string, fuzzy bool) string {
	candidates := []string{e.Title}
	candidates = append(candidates, e.Tags...)
	candidates = append(candidates, e.Keywords...)
	candidates = append(candidates, e.Concepts...)
	for _, c := range candidates {
		for _, tok := range utils.Tokenize(c) {
			if prefixMatches(tok, prefix, fuzzy) {
				return c
			}
		}
	}
	for _, s := range sentences(e.Content) {
		for _, tok := range utils.Tokenize(s) {
			if prefixMatches(tok, prefix, fuzzy) {
				return utils.Truncate(s, 120)
			}
		}
	}
	return e.Title
}

// Autocomplete completes the last word of the prefix from terms in the tenant's documents.
// Mode oneTerm returns single words, twoTerms adds the following word, and
// oneTermWithContext only completes where the preceding prefix words appear right before.
func (e *Engine) Autocomplete(ctx context.Context, opts models.SuggestOptions) ([]models.Suggestion, error) {
	mode := opts.Mode
	switch mode {
	case "":
		mode = models.AutocompleteOneTerm
	case models.AutocompleteOneTerm, models.AutocompleteTwoTerms, models.AutocompleteOneTermWithContext:
	default:
		return nil, &QueryError{Field: "mode", Message: fmt.Sprintf("unknown autocomplete mode %q", mode)}
	}
	entries, words, err := e.prefixSearch(ctx, opts, autocompleteWindow)
	if err != nil {
		return nil, err
	}
	last := words[len(words)-1]
	lead := words[:len(words)-1]

	counts := make(map[string]int)
	for _, entry := range entries {
		seen := make(map[string]bool)
		for _, src := range suggestSources(entry) {
			tokens := utils.Tokenize(src)
			for i, tok := range tokens {
				if !prefixMatches(tok, last, opts.Fuzzy) {
					continue
				}
				completion := tok
				switch mode {
				case models.AutocompleteTwoTerms:
					if i+1 < len(tokens) {
						completion = tok + " " + tokens[i+1]
					}
				case models.AutocompleteOneTermWithContext:
					if !precededBy(tokens, i, lead) {
						continue
					}
				}
				if !seen[completion] {
					seen[completion] = true
					counts[completion]++
				}
			}
		}
	}

	type scored struct {
		text  string
		count int
	}
	ranked := make([]scored, 0, len(counts))
	for text, n := range counts {
		ranked = append(ranked, scored{text, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].text < ranked[j].text
	})
	top := e.suggestTop(opts)
	if len(ranked) > top {
		ranked = ranked[:top]
	}

	prefixWords := strings.Join(lead, " ")
	out := make([]models.Suggestion, 0, len(ranked))
	for _, r := range ranked {
		qpt := r.text
		if prefixWords != "" {
			qpt = prefixWords + " " + r.text
		}
		out = append(out, models.Suggestion{Text: r.text, QueryPlusText: qpt})
	}
	return out, nil
}

func suggestSources(e *models.SearchIndexEntry) []string {
	out := []string{e.Title}
	out = append(out, e.Tags...)
	out = append(out, e.Keywords...)
	out = append(out, e.Concepts...)
	return append(out, e.Content)
}

// precededBy reports whether the tokens right before position i equal lead.
func precededBy(tokens []string, i int, lead []string) bool {
	if len(lead) > i {
		return false
	}
	for k := range lead {
		if tokens[i-len(lead)+k] != lead[k] {
			return false
		}
	}
	return true
}
