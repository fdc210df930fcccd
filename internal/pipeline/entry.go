package pipeline

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hyperjump/shorui/internal/extract"
	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/registry"
	"github.com/hyperjump/shorui/internal/validate"
	"github.com/hyperjump/shorui/pkg/utils"
)

const (
	summaryLength = 300
	maxKeywords   = 10
)

// Compliance flags attached to index entries.
const (
	FlagLowConfidence = "low_confidence"
	FlagMissingFields = "missing_fields"
	FlagContainsSSN   = "contains_ssn"
)

var (
	ssnPattern = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	tinPattern = regexp.MustCompile(`\b\d{2}-\d{7}\b`)
)

type relevance struct{ tax, business float64 }

var categoryRelevance = map[string]relevance{
	registry.CategoryW2:            {1.0, 0.4},
	registry.Category1099NEC:       {1.0, 0.6},
	registry.Category1099MISC:      {1.0, 0.6},
	registry.Category1099INT:       {1.0, 0.3},
	registry.Category1098:          {0.9, 0.2},
	registry.Category1040:          {1.0, 0.3},
	registry.CategoryInvoice:       {0.6, 0.9},
	registry.CategoryReceipt:       {0.6, 0.8},
	registry.CategoryBankStatement: {0.5, 0.8},
	registry.CategoryIDDocument:    {0.2, 0.2},
	registry.CategoryBusinessCard:  {0.0, 0.6},
}

var defaultRelevance = relevance{0.1, 0.3}

// EntryInput is everything BuildEntry projects into an index entry.
type EntryInput struct {
	DocumentID     string
	OrganizationID string
	ClientID       string
	FileName       string
	Category       string
	Content        []byte
	Result         *models.AnalyzeResult
	Verdict        models.ValidationVerdict
	UploadedAt     time.Time
}

// BuildEntry derives the searchable projection of an analyzed document.
func BuildEntry(in EntryInput) *models.SearchIndexEntry {
	res := in.Result
	content := utils.CollapseWhitespace(res.RawText)
	category := in.Category
	if category == "" || category == registry.CategoryUnknown {
		category = registry.CategoryGeneral
	}
	rel, ok := categoryRelevance[category]
	if !ok {
		rel = defaultRelevance
	}

	e := &models.SearchIndexEntry{
		ID:                in.DocumentID,
		OrganizationID:    in.OrganizationID,
		ClientID:          in.ClientID,
		Content:           content,
		Title:             title(in.FileName, res.DocumentType),
		Summary:           summary(content),
		Category:          category,
		DocumentType:      res.DocumentType,
		FileType:          fileType(in.FileName, in.Content),
		Tags:              tags(category, res.Fields),
		Keywords:          keywords(content, maxKeywords),
		Concepts:          utils.Dedupe([]string{res.DocumentType}),
		ConfidenceScore:   res.Confidence,
		QualityScore:      in.Verdict.ValidationScore,
		BusinessRelevance: rel.business,
		TaxRelevance:      rel.tax,
		ComplianceFlags:   complianceFlags(res, in.Verdict),
		IsConfidential:    containsTaxpayerID(res.RawText),
		UploadedAt:        in.UploadedAt.UTC(),
		LastModified:      in.UploadedAt.UTC(),
		Metadata: map[string]any{
			"modelId":          res.Metadata.ModelID,
			"apiVersion":       res.Metadata.APIVersion,
			"processingTimeMs": res.Metadata.ProcessingTimeMs,
			"pageCount":        len(res.Pages),
		},
	}
	if in.FileName != "" {
		e.Metadata["fileName"] = filepath.Base(in.FileName)
	}
	if len(res.ExtractedData) > 0 {
		e.ExtractedData = make(map[string]any, len(res.ExtractedData))
		for name, v := range res.ExtractedData {
			e.ExtractedData[name] = v.Value
		}
	}
	if year, quarter, ok := documentPeriod(res.ExtractedData); ok {
		e.Year = &year
		if quarter > 0 {
			e.Quarter = &quarter
		}
	}
	return e
}

func title(fileName, documentType string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	base = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, base)
	if t := utils.CollapseWhitespace(base); t != "" && t != "." {
		return t
	}
	if documentType != "" {
		return documentType
	}
	return "Untitled document"
}

// summary is the first summaryLength characters of content.
func summary(content string) string {
	r := []rune(content)
	if len(r) > summaryLength {
		return string(r[:summaryLength])
	}
	return content
}

func fileType(fileName string, content []byte) string {
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")); ext != "" {
		return ext
	}
	if len(content) > 0 {
		return string(extract.Sniff(content))
	}
	return ""
}

func tags(category string, fields []models.Field) []string {
	out := []string{category}
	for _, f := range fields {
		out = append(out, strings.ToLower(f.Name))
	}
	return utils.Dedupe(out)
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "this": true,
	"that": true, "are": true, "was": true, "you": true, "your": true, "not": true,
	"all": true, "any": true, "per": true, "has": true, "have": true, "but": true,
}

// keywords returns the n most frequent content terms, ties broken alphabetically.
func keywords(content string, n int) []string {
	counts := make(map[string]int)
	for _, tok := range utils.Tokenize(content) {
		if len([]rune(tok)) < 3 || stopwords[tok] || isNumber(tok) {
			continue
		}
		counts[tok]++
	}
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func complianceFlags(res *models.AnalyzeResult, v models.ValidationVerdict) []string {
	flags := []string{}
	if res.Confidence < validate.ConfidenceFloor || len(v.LowConfidenceFields) > 0 {
		flags = append(flags, FlagLowConfidence)
	}
	if len(v.MissingFields) > 0 {
		flags = append(flags, FlagMissingFields)
	}
	if ssnPattern.MatchString(res.RawText) {
		flags = append(flags, FlagContainsSSN)
	}
	return flags
}

func containsTaxpayerID(text string) bool {
	return ssnPattern.MatchString(text) || tinPattern.MatchString(text)
}

// dateFields are consulted in order for the document's period.
var dateFields = []string{
	"TransactionDate", "InvoiceDate", "StatementEndDate", "DueDate", "Date",
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// documentPeriod finds the year and quarter a document belongs to. A TaxYear field
// gives the year with no quarter.
func documentPeriod(data map[string]models.ExtractedValue) (year, quarter int, ok bool) {
	for _, name := range dateFields {
		v, found := data[name]
		if !found {
			continue
		}
		s, isString := v.Value.(string)
		if !isString {
			continue
		}
		if t, parsed := parseDate(s); parsed {
			return t.Year(), (int(t.Month())-1)/3 + 1, true
		}
	}
	if v, found := data["TaxYear"]; found {
		n := -1
		switch y := v.Value.(type) {
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(y)); err == nil {
				n = parsed
			}
		case int:
			n = y
		case int64:
			n = int(y)
		case float64:
			n = int(y)
		}
		if n > 1900 {
			return n, 0, true
		}
	}
	return 0, 0, false
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
