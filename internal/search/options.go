package search

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/shorui/internal/index"
)

// DefaultFacetCount is the number of values returned per facet when the request does not say.
const DefaultFacetCount = 10

type facetSpec struct {
	name  string
	field string
	count int
}

// parseFacets reads facet specs of the form "name" or "name,count:N".
func parseFacets(specs []string, defaultCount int) ([]facetSpec, error) {
	out := make([]facetSpec, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ",")
		name := strings.TrimSpace(parts[0])
		field, ok := index.FacetField(name)
		if !ok {
			return nil, &QueryError{Field: "facets", Message: fmt.Sprintf("field %q is not facetable", name)}
		}
		fs := facetSpec{name: name, field: field, count: defaultCount}
		for _, p := range parts[1:] {
			k, v, found := strings.Cut(strings.TrimSpace(p), ":")
			if !found || k != "count" {
				return nil, &QueryError{Field: "facets", Message: fmt.Sprintf("unknown facet parameter %q", p)}
			}
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return nil, &QueryError{Field: "facets", Message: fmt.Sprintf("bad count %q", v)}
			}
			fs.count = n
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, fs)
	}
	return out, nil
}

// parseOrderBy turns "field [asc|desc]" clauses into bleve sort keys.
func parseOrderBy(clauses []string) ([]string, error) {
	keys := make([]string, 0, len(clauses))
	for _, c := range clauses {
		fields := strings.Fields(c)
		if len(fields) == 0 || len(fields) > 2 {
			return nil, &QueryError{Field: "orderBy", Message: fmt.Sprintf("bad clause %q", c)}
		}
		field, ok := index.SortField(fields[0])
		if !ok {
			return nil, &QueryError{Field: "orderBy", Message: fmt.Sprintf("field %q is not sortable", fields[0])}
		}
		desc := field == "_score"
		if len(fields) == 2 {
			switch strings.ToLower(fields[1]) {
			case "asc":
				desc = false
			case "desc":
				desc = true
			default:
				return nil, &QueryError{Field: "orderBy", Message: fmt.Sprintf("bad direction %q", fields[1])}
			}
		}
		if desc {
			field = "-" + field
		}
		keys = append(keys, field)
	}
	return keys, nil
}

// encodePageToken and decodePageToken carry the next skip offset between requests.
func encodePageToken(skip int) string {
	return base64.RawURLEncoding.EncodeToString([]byte("skip:" + strconv.Itoa(skip)))
}

func decodePageToken(token string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, &QueryError{Field: "pageToken", Message: "malformed token"}
	}
	v, ok := strings.CutPrefix(string(raw), "skip:")
	if !ok {
		return 0, &QueryError{Field: "pageToken", Message: "malformed token"}
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &QueryError{Field: "pageToken", Message: "malformed token"}
	}
	return n, nil
}

type facetTerm struct {
	term  string
	count int
}

// sortFacet orders by count descending, then value ascending, and keeps n.
func sortFacet(terms []facetTerm, n int) []facetTerm {
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].term < terms[j].term
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}
