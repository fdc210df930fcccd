package search

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/shorui/internal/index"
	"github.com/hyperjump/shorui/internal/models"
)

// ErrMissingTenant is returned before any index access when no organizationId is bound.
var ErrMissingTenant = errors.New("organizationId filter is required")

// QueryError reports a malformed search request.
type QueryError struct {
	Field   string
	Message string
}

func (e *QueryError) Error() string {
	if e.Field == "" {
		return "invalid query: " + e.Message
	}
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Message)
}

// Clause is one condition of a filter: its textual form and the equivalent index query.
type Clause struct {
	Expr  string
	Query query.Query
}

// Expression is a conjunction of clauses in compile order.
type Expression struct {
	Clauses []Clause
}

// String renders the filter in OData syntax, for example
// "organizationId eq 'org1' and category eq 'invoice' and year eq 2023".
func (x *Expression) String() string {
	parts := make([]string, len(x.Clauses))
	for i, c := range x.Clauses {
		parts[i] = c.Expr
	}
	return strings.Join(parts, " and ")
}

// Query returns the executable form. Values are passed as typed query terms, never parsed.
func (x *Expression) Query() query.Query {
	qs := make([]query.Query, len(x.Clauses))
	for i, c := range x.Clauses {
		qs[i] = c.Query
	}
	return bleve.NewConjunctionQuery(qs...)
}

// Quote renders s as a single-quoted literal, doubling embedded quotes.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func termClause(field, value string) Clause {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return Clause{Expr: fmt.Sprintf("%s eq %s", field, Quote(value)), Query: q}
}

func numericEq(field string, v int) Clause {
	f := float64(v)
	inc := true
	q := bleve.NewNumericRangeInclusiveQuery(&f, &f, &inc, &inc)
	q.SetField(field)
	return Clause{Expr: fmt.Sprintf("%s eq %d", field, v), Query: q}
}

func numericFloor(field string, v float64) Clause {
	inc := true
	q := bleve.NewNumericRangeInclusiveQuery(&v, nil, &inc, nil)
	q.SetField(field)
	return Clause{Expr: fmt.Sprintf("%s ge %s", field, formatNumber(v)), Query: q}
}

func dateBound(field string, t time.Time, lower bool) Clause {
	inc := true
	var q *query.DateRangeQuery
	op := "ge"
	if lower {
		q = bleve.NewDateRangeInclusiveQuery(t, time.Time{}, &inc, nil)
	} else {
		q = bleve.NewDateRangeInclusiveQuery(time.Time{}, t, nil, &inc)
		op = "le"
	}
	q.SetField(field)
	return Clause{Expr: fmt.Sprintf("%s %s %s", field, op, t.UTC().Format(models.TimeFormat)), Query: q}
}

// anyOf matches entries whose array field holds at least one of values.
func anyOf(field string, values []string) Clause {
	exprs := make([]string, len(values))
	qs := make([]query.Query, len(values))
	for i, v := range values {
		exprs[i] = fmt.Sprintf("%s/any(t: t eq %s)", field, Quote(v))
		tq := bleve.NewTermQuery(v)
		tq.SetField(field)
		qs[i] = tq
	}
	expr := exprs[0]
	if len(exprs) > 1 {
		expr = "(" + strings.Join(exprs, " or ") + ")"
	}
	return Clause{Expr: expr, Query: bleve.NewDisjunctionQuery(qs...)}
}

// CompileFilters builds the filter expression for f. Clauses are ANDed in a fixed order:
// tenant, equality filters, score floors, upload date range, then array membership.
// Unset fields add nothing.
func CompileFilters(f *models.SearchFilters) (*Expression, error) {
	if f == nil || strings.TrimSpace(f.OrganizationID) == "" {
		return nil, ErrMissingTenant
	}
	x := &Expression{}
	add := func(c Clause) { x.Clauses = append(x.Clauses, c) }

	add(termClause(index.FieldOrganizationID, f.OrganizationID))

	for _, eq := range []struct{ field, value string }{
		{index.FieldClientID, f.ClientID},
		{index.FieldCategory, f.Category},
		{index.FieldSubcategory, f.Subcategory},
		{index.FieldDocumentType, f.DocumentType},
		{index.FieldFileType, f.FileType},
	} {
		if eq.value != "" {
			add(termClause(eq.field, eq.value))
		}
	}
	if f.IsConfidential != nil {
		q := bleve.NewBoolFieldQuery(*f.IsConfidential)
		q.SetField(index.FieldIsConfidential)
		add(Clause{Expr: fmt.Sprintf("%s eq %t", index.FieldIsConfidential, *f.IsConfidential), Query: q})
	}
	if f.Year != nil {
		if *f.Year <= 0 {
			return nil, &QueryError{Field: "year", Message: fmt.Sprintf("must be positive, got %d", *f.Year)}
		}
		add(numericEq(index.FieldYear, *f.Year))
	}
	if f.Quarter != nil {
		if *f.Quarter < 1 || *f.Quarter > 4 {
			return nil, &QueryError{Field: "quarter", Message: fmt.Sprintf("must be 1-4, got %d", *f.Quarter)}
		}
		add(numericEq(index.FieldQuarter, *f.Quarter))
	}

	for _, fl := range []struct {
		field string
		value *float64
	}{
		{index.FieldConfidenceScore, f.MinConfidenceScore},
		{index.FieldQualityScore, f.MinQualityScore},
		{index.FieldBusinessRelevance, f.MinBusinessRelevance},
		{index.FieldTaxRelevance, f.MinTaxRelevance},
	} {
		if fl.value == nil {
			continue
		}
		v := *fl.value
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, &QueryError{Field: fl.field, Message: "floor must be within [0, 1]"}
		}
		add(numericFloor(fl.field, v))
	}

	if f.UploadedFrom != nil && f.UploadedTo != nil && f.UploadedFrom.After(*f.UploadedTo) {
		return nil, &QueryError{Field: index.FieldUploadedAt, Message: "from is after to"}
	}
	if f.UploadedFrom != nil {
		add(dateBound(index.FieldUploadedAt, *f.UploadedFrom, true))
	}
	if f.UploadedTo != nil {
		add(dateBound(index.FieldUploadedAt, *f.UploadedTo, false))
	}

	for _, arr := range []struct {
		field  string
		values []string
	}{
		{index.FieldTags, f.Tags},
		{index.FieldComplianceFlags, f.ComplianceFlags},
	} {
		if len(arr.values) == 0 {
			continue
		}
		for _, v := range arr.values {
			if v == "" {
				return nil, &QueryError{Field: arr.field, Message: "empty value"}
			}
		}
		add(anyOf(arr.field, arr.values))
	}
	return x, nil
}
