package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shorui/internal/models"
)

func suggestCorpus() []*models.SearchIndexEntry {
	return []*models.SearchIndexEntry{
		doc("s1", "org-a", "invoice", 2023, "Invoice from Acme", "Quarterly consulting retainer.", "invoice"),
		doc("s2", "org-a", "receipt", 2023, "Coffee receipt", "Quarterly coffee budget review.", "receipt"),
		doc("s3", "org-a", "w2", 2023, "W-2 statement", "Wage and tax statement.", "tax"),
		doc("s4", "org-b", "invoice", 2023, "Quarantine supplies invoice", "Quarantine supplies.", "invoice"),
	}
}

func TestSuggest_PrefixWithinTenant(t *testing.T) {
	e, _ := newTestEngine(t, suggestCorpus()...)
	got, err := e.Suggest(context.Background(), models.SuggestOptions{
		Prefix:  "quar",
		Filters: &models.SearchFilters{OrganizationID: "org-a"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	docs := []string{got[0].DocumentID, got[1].DocumentID}
	assert.ElementsMatch(t, []string{"s1", "s2"}, docs)
	for _, s := range got {
		assert.Contains(t, s.Text, "Quarterly")
	}
}

func TestSuggest_TitleIsPreferredSource(t *testing.T) {
	e, _ := newTestEngine(t, suggestCorpus()...)
	got, err := e.Suggest(context.Background(), models.SuggestOptions{
		Prefix:  "acm",
		Filters: &models.SearchFilters{OrganizationID: "org-a"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.Suggestion{Text: "Invoice from Acme", DocumentID: "s1"}, got[0])
}

func TestSuggest_Fuzzy(t *testing.T) {
	e, _ := newTestEngine(t, suggestCorpus()...)
	filters := &models.SearchFilters{OrganizationID: "org-a"}

	got, err := e.Suggest(context.Background(), models.SuggestOptions{Prefix: "coffie", Filters: filters})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = e.Suggest(context.Background(), models.SuggestOptions{Prefix: "coffie", Filters: filters, Fuzzy: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s2", got[0].DocumentID)
}

func TestSuggest_Top(t *testing.T) {
	e, _ := newTestEngine(t, suggestCorpus()...)
	got, err := e.Suggest(context.Background(), models.SuggestOptions{
		Prefix:  "quar",
		Top:     1,
		Filters: &models.SearchFilters{OrganizationID: "org-a"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSuggest_RejectsEmptyPrefix(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Suggest(context.Background(), models.SuggestOptions{
		Prefix:  "  ",
		Filters: &models.SearchFilters{OrganizationID: "org-a"},
	})
	var qe *QueryError
	assert.ErrorAs(t, err, &qe)
}

func TestAutocomplete_Modes(t *testing.T) {
	e, _ := newTestEngine(t, suggestCorpus()...)
	filters := &models.SearchFilters{OrganizationID: "org-a"}

	tests := []struct {
		name   string
		prefix string
		mode   string
		want   []models.Suggestion
	}{
		{
			name:   "one term",
			prefix: "quar",
			mode:   "",
			want:   []models.Suggestion{{Text: "quarterly", QueryPlusText: "quarterly"}},
		},
		{
			name:   "two terms",
			prefix: "quar",
			mode:   models.AutocompleteTwoTerms,
			want: []models.Suggestion{
				{Text: "quarterly coffee", QueryPlusText: "quarterly coffee"},
				{Text: "quarterly consulting", QueryPlusText: "quarterly consulting"},
			},
		},
		{
			name:   "one term with context",
			prefix: "quarterly co",
			mode:   models.AutocompleteOneTermWithContext,
			want: []models.Suggestion{
				{Text: "coffee", QueryPlusText: "quarterly coffee"},
				{Text: "consulting", QueryPlusText: "quarterly consulting"},
			},
		},
		{
			name:   "context with stop words",
			prefix: "and tax st",
			mode:   models.AutocompleteOneTermWithContext,
			want:   []models.Suggestion{{Text: "statement", QueryPlusText: "and tax statement"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Autocomplete(context.Background(), models.SuggestOptions{
				Prefix:  tt.prefix,
				Mode:    tt.mode,
				Filters: filters,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAutocomplete_NeverLeaksOtherTenants(t *testing.T) {
	e, _ := newTestEngine(t, suggestCorpus()...)
	got, err := e.Autocomplete(context.Background(), models.SuggestOptions{
		Prefix:  "quarant",
		Filters: &models.SearchFilters{OrganizationID: "org-a"},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAutocomplete_UnknownMode(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Autocomplete(context.Background(), models.SuggestOptions{
		Prefix:  "a",
		Mode:    "threeTerms",
		Filters: &models.SearchFilters{OrganizationID: "org-a"},
	})
	var qe *QueryError
	assert.ErrorAs(t, err, &qe)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("tax", "tax"))
	assert.Equal(t, 1, levenshtein("coffie", "coffee"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.True(t, prefixMatches("coffee", "coffie", true))
	assert.False(t, prefixMatches("coffee", "coffie", false))
	assert.True(t, prefixMatches("quarterly", "quar", false))
}
