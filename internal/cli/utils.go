// Package cli renders shorui results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/pipeline"
	"github.com/hyperjump/shorui/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// ParseFormat returns the output format named by s.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	writeSearchResultsText(w, response)
	return nil
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	total := len(response.Documents)
	if response.TotalCount != nil {
		total = *response.TotalCount
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (showing %d)\n\n", total, response.QueryTime, len(response.Documents))
	for i, a := range response.Answers {
		fmt.Fprintf(w, "Answer %d [%s, %.2f]: %s\n", i+1, a.DocumentID, a.Score, a.Text)
	}
	if len(response.Answers) > 0 {
		fmt.Fprintln(w)
	}
	for i, hit := range response.Documents {
		writeOneHit(w, i+1, hit)
	}
	writeFacets(w, response.Facets)
	if response.NextPageToken != "" {
		fmt.Fprintf(w, "Next page: --page-token %s\n", response.NextPageToken)
	}
}

func writeOneHit(w io.Writer, rank int, hit *models.SearchHit) {
	e := hit.Entry
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Rank: %d | Score: %.4f | %s", rank, hit.Score, e.Category)
	if e.Year != nil {
		fmt.Fprintf(w, " | %d", *e.Year)
		if e.Quarter != nil {
			fmt.Fprintf(w, " Q%d", *e.Quarter)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "ID: %s\n", e.ID)
	if e.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", e.Title)
	}
	if len(e.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(e.Tags, ", "))
	}
	switch {
	case len(hit.Captions) > 0:
		for _, c := range hit.Captions {
			fmt.Fprintf(w, "  … %s\n", c)
		}
	case len(hit.Highlights) > 0:
		fields := make([]string, 0, len(hit.Highlights))
		for f := range hit.Highlights {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(w, "  %s: %s\n", f, strings.Join(hit.Highlights[f], " … "))
		}
	default:
		text := e.Summary
		if text == "" {
			text = e.Content
		}
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(text, 200))
	}
	fmt.Fprintln(w)
}

func writeFacets(w io.Writer, facets map[string][]models.FacetValue) {
	if len(facets) == 0 {
		return
	}
	names := make([]string, 0, len(facets))
	for name := range facets {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "--- Facets ---")
	for _, name := range names {
		parts := make([]string, 0, len(facets[name]))
		for _, v := range facets[name] {
			parts = append(parts, fmt.Sprintf("%s (%d)", v.Value, v.Count))
		}
		fmt.Fprintf(w, "%s: %s\n", name, strings.Join(parts, ", "))
	}
	fmt.Fprintln(w)
}

// WriteAnalysis writes the outcome of analyzing a single document.
func WriteAnalysis(w io.Writer, a *pipeline.Analysis, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, a)
	}
	res := a.Result
	fmt.Fprintf(w, "Category:   %s\n", a.Category)
	if a.Detection != nil {
		fmt.Fprintf(w, "Detected:   %s (%.2f)\n", a.Detection.DetectedCategory, a.Detection.Confidence)
	}
	if res != nil {
		fmt.Fprintf(w, "Type:       %s\n", res.DocumentType)
		fmt.Fprintf(w, "Model:      %s\n", res.Metadata.ModelID)
		fmt.Fprintf(w, "Confidence: %.2f\n", res.Confidence)
		fmt.Fprintf(w, "Pages:      %d\n", len(res.Pages))
	}
	valid := "yes"
	if !a.Verdict.IsValid {
		valid = "no"
	}
	fmt.Fprintf(w, "Valid:      %s (score %.2f)\n", valid, a.Verdict.ValidationScore)
	if len(a.Verdict.MissingFields) > 0 {
		fmt.Fprintf(w, "Missing:    %s\n", strings.Join(a.Verdict.MissingFields, ", "))
	}
	if len(a.Verdict.LowConfidenceFields) > 0 {
		fmt.Fprintf(w, "Low conf.:  %s\n", strings.Join(a.Verdict.LowConfidenceFields, ", "))
	}
	if res != nil && len(res.Fields) > 0 {
		fmt.Fprintln(w, rule)
		for _, f := range res.Fields {
			fmt.Fprintf(w, "%-24s %-32s %.2f\n", f.Name, TruncateWords(fmt.Sprint(f.Value), 6), f.Confidence)
		}
	}
	return nil
}

// WriteJobs writes a job listing.
func WriteJobs(w io.Writer, jobs []*models.Job, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, jobs)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs.")
		return nil
	}
	for _, j := range jobs {
		fmt.Fprintf(w, "%s  %-12s  %-14s  %s", j.ID, j.Status, j.DetectedCategory, j.FileName)
		if j.Error != "" {
			fmt.Fprintf(w, "  (%s)", j.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
