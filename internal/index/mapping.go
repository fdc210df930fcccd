package index

import (
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Indexed field names. Keys mirror the JSON names of models.SearchIndexEntry;
// the *Key fields are keyword copies of numeric or boolean values for faceting.
const (
	FieldID                = "id"
	FieldOrganizationID    = "organizationId"
	FieldClientID          = "clientId"
	FieldContent           = "content"
	FieldTitle             = "title"
	FieldTitleSort         = "titleSort"
	FieldSummary           = "summary"
	FieldCategory          = "category"
	FieldSubcategory       = "subcategory"
	FieldDocumentType      = "documentType"
	FieldFileType          = "fileType"
	FieldTags              = "tags"
	FieldKeywords          = "keywords"
	FieldConcepts          = "concepts"
	FieldConfidenceScore   = "confidenceScore"
	FieldQualityScore      = "qualityScore"
	FieldBusinessRelevance = "businessRelevance"
	FieldTaxRelevance      = "taxRelevance"
	FieldComplianceFlags   = "complianceFlags"
	FieldIsConfidential    = "isConfidential"
	FieldConfidentialKey   = "isConfidentialKey"
	FieldYear              = "year"
	FieldYearKey           = "yearKey"
	FieldQuarter           = "quarter"
	FieldQuarterKey        = "quarterKey"
	FieldUploadedAt        = "uploadedAt"
	FieldLastModified      = "lastModified"
	FieldSuggest           = "suggest"
	FieldSource            = "source"
)

const docType = "entry"

// keywordFields are matched exactly and can be faceted.
var keywordFields = []string{
	FieldID, FieldOrganizationID, FieldClientID, FieldCategory, FieldSubcategory,
	FieldDocumentType, FieldFileType, FieldTags, FieldComplianceFlags,
	FieldConfidentialKey, FieldYearKey, FieldQuarterKey, FieldTitleSort,
}

// textFields are analyzed with the standard analyzer.
var textFields = []string{
	FieldContent, FieldTitle, FieldSummary, FieldKeywords, FieldConcepts, FieldSuggest,
}

var numericFields = []string{
	FieldConfidenceScore, FieldQualityScore, FieldBusinessRelevance, FieldTaxRelevance,
	FieldYear, FieldQuarter,
}

var dateFields = []string{FieldUploadedAt, FieldLastModified}

// facetFields maps public facet names to the indexed field that holds their terms.
var facetFields = map[string]string{
	FieldClientID:        FieldClientID,
	FieldCategory:        FieldCategory,
	FieldSubcategory:     FieldSubcategory,
	FieldDocumentType:    FieldDocumentType,
	FieldFileType:        FieldFileType,
	FieldTags:            FieldTags,
	FieldComplianceFlags: FieldComplianceFlags,
	FieldIsConfidential:  FieldConfidentialKey,
	FieldYear:            FieldYearKey,
	FieldQuarter:         FieldQuarterKey,
}

// sortFields maps public sort names to sortable indexed fields.
var sortFields = map[string]string{
	"score":                "_score",
	FieldID:                "_id",
	FieldTitle:             FieldTitleSort,
	FieldCategory:          FieldCategory,
	FieldDocumentType:      FieldDocumentType,
	FieldFileType:          FieldFileType,
	FieldConfidenceScore:   FieldConfidenceScore,
	FieldQualityScore:      FieldQualityScore,
	FieldBusinessRelevance: FieldBusinessRelevance,
	FieldTaxRelevance:      FieldTaxRelevance,
	FieldYear:              FieldYear,
	FieldQuarter:           FieldQuarter,
	FieldUploadedAt:        FieldUploadedAt,
	FieldLastModified:      FieldLastModified,
}

// FacetField resolves a facet name to its indexed field.
func FacetField(name string) (string, bool) {
	f, ok := facetFields[name]
	return f, ok
}

// SortField resolves a sort name to its indexed field.
func SortField(name string) (string, bool) {
	f, ok := sortFields[name]
	return f, ok
}

// HighlightableFields are stored text fields that can carry highlight fragments.
func HighlightableFields() []string {
	return []string{FieldContent, FieldTitle, FieldSummary}
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.StoreDynamic = false
	im.IndexDynamic = false
	im.DocValuesDynamic = false

	dm := bleve.NewDocumentMapping()
	dm.Dynamic = false

	for _, name := range keywordFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = false
		fm.IncludeInAll = false
		fm.IncludeTermVectors = false
		dm.AddFieldMappingsAt(name, fm)
	}
	for _, name := range textFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		fm.Store = name != FieldSuggest && name != FieldKeywords && name != FieldConcepts
		fm.IncludeTermVectors = true
		dm.AddFieldMappingsAt(name, fm)
	}
	for _, name := range numericFields {
		fm := bleve.NewNumericFieldMapping()
		fm.Store = false
		fm.IncludeInAll = false
		dm.AddFieldMappingsAt(name, fm)
	}
	for _, name := range dateFields {
		fm := bleve.NewDateTimeFieldMapping()
		fm.Store = false
		fm.IncludeInAll = false
		dm.AddFieldMappingsAt(name, fm)
	}
	conf := bleve.NewBooleanFieldMapping()
	conf.Store = false
	conf.IncludeInAll = false
	dm.AddFieldMappingsAt(FieldIsConfidential, conf)

	src := bleve.NewTextFieldMapping()
	src.Index = false
	src.Store = true
	src.IncludeInAll = false
	src.IncludeTermVectors = false
	src.DocValues = false
	dm.AddFieldMappingsAt(FieldSource, src)

	im.AddDocumentMapping(docType, dm)
	im.DefaultType = docType
	im.DefaultMapping = dm
	im.DefaultAnalyzer = standard.Name
	return im
}

var textAnalyzer = sync.OnceValue(func() analysis.Analyzer {
	return buildMapping().AnalyzerNamed(standard.Name)
})

// IndexedWords returns the words that produce at least one term in the text fields.
// Stop words are dropped by the analyzer and could never match.
func IndexedWords(words []string) []string {
	a := textAnalyzer()
	out := make([]string, 0, len(words))
	for _, w := range words {
		if a == nil || len(a.Analyze([]byte(w))) > 0 {
			out = append(out, w)
		}
	}
	return out
}
