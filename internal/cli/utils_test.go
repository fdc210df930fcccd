package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/pipeline"
)

func intPtr(v int) *int { return &v }

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		QueryTime:  42,
		TotalCount: intPtr(3),
		Documents: []*models.SearchHit{
			{
				Score: 0.9,
				Entry: &models.SearchIndexEntry{
					ID:       "doc-1",
					Title:    "Acme invoice",
					Summary:  "Consulting services rendered",
					Category: "invoice",
					Tags:     []string{"invoice", "consulting"},
					Year:     intPtr(2023),
					Quarter:  intPtr(4),
				},
			},
		},
		Facets: map[string][]models.FacetValue{
			"category": {{Value: "invoice", Count: 2}, {Value: "w2", Count: 1}},
		},
		NextPageToken: "MQ",
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.QueryTime != 42 || decoded.TotalCount == nil || *decoded.TotalCount != 3 {
		t.Errorf("decoded query time/total = %d/%v", decoded.QueryTime, decoded.TotalCount)
	}
	if len(decoded.Documents) != 1 || decoded.Documents[0].Entry.ID != "doc-1" {
		t.Errorf("decoded documents: want doc-1, got %+v", decoded.Documents)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{
		"Found 3 results", "42ms", "showing 1", "Rank: 1", "2023 Q4", "ID: doc-1",
		"Acme invoice", "Tags: invoice, consulting", "Consulting services rendered",
		"category: invoice (2), w2 (1)", "--page-token MQ",
	} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSearchResults_textCaptionsAndAnswers(t *testing.T) {
	response := &models.SearchResponse{
		Documents: []*models.SearchHit{{
			Score:    1.2,
			Entry:    &models.SearchIndexEntry{ID: "w2-1", Category: "w2", Content: "Wages 85000"},
			Captions: []string{"Federal income tax withheld 5000"},
		}},
		Answers: []models.Answer{{DocumentID: "w2-1", Text: "Federal income tax withheld 5000.", Score: 0.8}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Answer 1 [w2-1, 0.80]") {
		t.Errorf("missing answer:\n%s", out)
	}
	if !strings.Contains(out, "… Federal income tax withheld 5000") {
		t.Errorf("missing caption:\n%s", out)
	}
	if strings.Contains(out, "Wages 85000") {
		t.Errorf("content should be replaced by captions:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWriteAnalysis_text(t *testing.T) {
	a := &pipeline.Analysis{
		Category:  "invoice",
		Detection: &models.Detection{DetectedCategory: "invoice", Confidence: 0.85},
		Result: &models.AnalyzeResult{
			DocumentType: "Invoice",
			Confidence:   0.91,
			Metadata:     models.AnalysisMetadata{ModelID: "prebuilt-invoice"},
			Fields:       []models.Field{{Name: "InvoiceTotal", Value: "250.00", Confidence: 0.95}},
		},
		Verdict: models.ValidationVerdict{IsValid: false, MissingFields: []string{"DueDate"}, ValidationScore: 0.8},
	}
	var buf bytes.Buffer
	if err := WriteAnalysis(&buf, a, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Category:   invoice", "invoice (0.85)", "prebuilt-invoice", "Valid:      no (score 0.80)", "Missing:    DueDate", "InvoiceTotal"} {
		if !strings.Contains(out, sub) {
			t.Errorf("analysis output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteJobs(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJobs(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No jobs.") {
		t.Errorf("got %q", buf.String())
	}
	buf.Reset()
	jobs := []*models.Job{{ID: "j1", Status: models.JobFailed, FileName: "a.pdf", Error: "boom"}}
	if err := WriteJobs(&buf, jobs, OutputText); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.Contains(out, "j1") || !strings.Contains(out, "failed") || !strings.Contains(out, "(boom)") {
		t.Errorf("got %q", out)
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"single long", "word", 1, "word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}

func TestPrintSearchResults(t *testing.T) {
	response := &models.SearchResponse{QueryTime: 1}
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = oldStdout
		_ = w.Close()
	}()
	PrintSearchResults(response)
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	if !strings.Contains(buf.String(), "Found 0 results") {
		t.Errorf("PrintSearchResults should write to stdout; got %q", buf.String())
	}
}
