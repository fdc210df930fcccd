package models

import (
	"fmt"
	"time"
)

// Search modes control how query terms combine.
const (
	SearchModeAny = "any"
	SearchModeAll = "all"
)

// Query types select the query parser and ranking.
const (
	QueryTypeSimple   = "simple"
	QueryTypeFull     = "full"
	QueryTypeSemantic = "semantic"
)

// Autocomplete modes.
const (
	AutocompleteOneTerm            = "oneTerm"
	AutocompleteTwoTerms           = "twoTerms"
	AutocompleteOneTermWithContext = "oneTermWithContext"
)

// SearchFilters are the structured filters compiled into the index filter expression.
// OrganizationID is mandatory; every other field is optional and contributes no clause when unset.
type SearchFilters struct {
	OrganizationID string  `json:"organizationId"`
	ClientID       string  `json:"clientId,omitempty"`
	Category       string  `json:"category,omitempty"`
	Subcategory    string  `json:"subcategory,omitempty"`
	DocumentType   string  `json:"documentType,omitempty"`
	FileType       string  `json:"fileType,omitempty"`
	IsConfidential *bool   `json:"isConfidential,omitempty"`
	Year           *int    `json:"year,omitempty"`
	Quarter        *int    `json:"quarter,omitempty"`

	MinConfidenceScore   *float64 `json:"minConfidenceScore,omitempty"`
	MinQualityScore      *float64 `json:"minQualityScore,omitempty"`
	MinBusinessRelevance *float64 `json:"minBusinessRelevance,omitempty"`
	MinTaxRelevance      *float64 `json:"minTaxRelevance,omitempty"`

	UploadedFrom *time.Time `json:"uploadedFrom,omitempty"`
	UploadedTo   *time.Time `json:"uploadedTo,omitempty"`

	Tags            []string `json:"tags,omitempty"`
	ComplianceFlags []string `json:"complianceFlags,omitempty"`
}

// SemanticOptions requests extra semantic outputs.
type SemanticOptions struct {
	Captions bool `json:"captions,omitempty"`
	Answers  bool `json:"answers,omitempty"`
}

// SearchOptions is a search request.
type SearchOptions struct {
	Query           string           `json:"query,omitempty"`
	Filters         *SearchFilters   `json:"filters"`
	Facets          []string         `json:"facets,omitempty"`
	Top             int              `json:"top,omitempty"`
	Skip            int              `json:"skip,omitempty"`
	PageToken       string           `json:"pageToken,omitempty"`
	OrderBy         []string         `json:"orderBy,omitempty"`
	HighlightFields []string         `json:"highlightFields,omitempty"`
	SearchMode      string           `json:"searchMode,omitempty"`
	QueryType       string           `json:"queryType,omitempty"`
	Semantic        *SemanticOptions `json:"semantic,omitempty"`
}

// Normalize applies defaults and bounds. It does not check tenant scope; the engine does that.
func (o *SearchOptions) Normalize(defaultTop, maxTop int) error {
	if o.Top <= 0 {
		o.Top = defaultTop
	}
	if o.Top > maxTop {
		o.Top = maxTop
	}
	if o.Skip < 0 {
		return fmt.Errorf("skip cannot be negative")
	}
	switch o.SearchMode {
	case "":
		o.SearchMode = SearchModeAny
	case SearchModeAny, SearchModeAll:
	default:
		return fmt.Errorf("unknown search mode %q", o.SearchMode)
	}
	switch o.QueryType {
	case "":
		o.QueryType = QueryTypeSimple
	case QueryTypeSimple, QueryTypeFull, QueryTypeSemantic:
	default:
		return fmt.Errorf("unknown query type %q", o.QueryType)
	}
	return nil
}

// SearchHit is one returned document.
type SearchHit struct {
	Entry      *SearchIndexEntry   `json:"document"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
	Captions   []string            `json:"captions,omitempty"`
}

// FacetValue is one value/count pair of a facet.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Answer is an extracted passage that directly answers the query.
type Answer struct {
	DocumentID string  `json:"documentId"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Documents     []*SearchHit            `json:"documents"`
	Facets        map[string][]FacetValue `json:"facets,omitempty"`
	TotalCount    *int                    `json:"totalCount,omitempty"`
	NextPageToken string                  `json:"nextPageToken,omitempty"`
	Answers       []Answer                `json:"answers,omitempty"`
	QueryTime     int64                   `json:"queryTimeMs"`
}

// SuggestOptions is a suggest or autocomplete request.
type SuggestOptions struct {
	Prefix  string         `json:"prefix"`
	Filters *SearchFilters `json:"filters"`
	Top     int            `json:"top,omitempty"`
	Fuzzy   bool           `json:"fuzzy,omitempty"`
	Mode    string         `json:"mode,omitempty"`
}

// Suggestion is a suggest or autocomplete hit. DocumentID is empty for autocomplete.
type Suggestion struct {
	Text          string `json:"text"`
	QueryPlusText string `json:"queryPlusText,omitempty"`
	DocumentID    string `json:"documentId,omitempty"`
}
