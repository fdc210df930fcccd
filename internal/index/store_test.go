package index

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/hyperjump/shorui/internal/models"
)

func openTemp(t *testing.T) *BleveStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.bleve"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustPut(t *testing.T, s *BleveStore, e *models.SearchIndexEntry) {
	t.Helper()
	if err := s.Put(context.Background(), e); err != nil {
		t.Fatalf("Put %s: %v", e.ID, err)
	}
}

func sampleEntry(id, org string) *models.SearchIndexEntry {
	year, quarter := 2023, 4
	sub := "services"
	return &models.SearchIndexEntry{
		ID:                id,
		OrganizationID:    org,
		ClientID:          "client-1",
		Content:           "Invoice for consulting services rendered in December",
		Title:             "Invoice 42",
		Summary:           "Consulting invoice",
		Category:          "invoice",
		Subcategory:       &sub,
		DocumentType:      "Invoice",
		FileType:          "pdf",
		Tags:              []string{"invoice", "consulting"},
		Keywords:          []string{"consulting"},
		Concepts:          []string{"accounts payable"},
		ConfidenceScore:   0.93,
		QualityScore:      1,
		BusinessRelevance: 0.8,
		TaxRelevance:      0.4,
		ComplianceFlags:   []string{},
		Year:              &year,
		Quarter:           &quarter,
		UploadedAt:        time.Date(2023, 12, 5, 10, 30, 0, 123456789, time.UTC),
		LastModified:      time.Date(2023, 12, 6, 8, 0, 0, 0, time.UTC),
		ExtractedData:     map[string]any{"InvoiceId": "42"},
	}
}

func TestBleveStore_PutGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	e := sampleEntry("doc-1", "org-1")
	mustPut(t, s, e)

	got, err := s.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(e, got) {
		t.Errorf("Get returned %+v, want %+v", got, e)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
}

func TestBleveStore_KeywordFieldsMatchExactly(t *testing.T) {
	s := openTemp(t)
	mustPut(t, s, sampleEntry("doc-1", "Org One"))
	mustPut(t, s, sampleEntry("doc-2", "org"))

	q := bleve.NewTermQuery("Org One")
	q.SetField(FieldOrganizationID)
	res, err := s.Search(context.Background(), bleve.NewSearchRequest(q))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != "doc-1" {
		t.Errorf("expected only doc-1, got %v", res.Hits)
	}
}

func TestBleveStore_NumericAndFacetAliases(t *testing.T) {
	s := openTemp(t)
	mustPut(t, s, sampleEntry("doc-1", "org-1"))

	lo, hi := 2023.0, 2023.0
	inc := true
	q := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &inc, &inc)
	q.SetField(FieldYear)
	req := bleve.NewSearchRequest(q)
	req.AddFacet("year", bleve.NewFacetRequest(FieldYearKey, 5))
	res, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(res.Hits))
	}
	terms := res.Facets["year"].Terms.Terms()
	if len(terms) != 1 || terms[0].Term != "2023" {
		t.Errorf("year facet = %v, want [2023]", terms)
	}
}

func TestBleveStore_BatchAndDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.PutBatch(ctx, []*models.SearchIndexEntry{sampleEntry("a", "o"), sampleEntry("b", "o")}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}
	if n, err := s.DocCount(); err != nil || n != 2 {
		t.Fatalf("DocCount = %d, %v; want 2", n, err)
	}

	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete #%d: %v", i+1, err)
		}
	}
	if n, _ := s.DocCount(); n != 1 {
		t.Errorf("DocCount after delete = %d, want 1", n)
	}

	size, err := s.SizeBytes()
	if err != nil {
		t.Fatalf("SizeBytes: %v", err)
	}
	if size <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", size)
	}
}

func TestOpen_ReopensExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bleve")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustPut(t, s, sampleEntry("a", "o"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if n, err := s.DocCount(); err != nil || n != 1 {
		t.Errorf("DocCount = %d, %v; want 1", n, err)
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if size, err := s.SizeBytes(); err != nil || size != 0 {
		t.Errorf("SizeBytes = %d, %v; want 0", size, err)
	}
}

func TestFacetAndSortFieldNames(t *testing.T) {
	if f, ok := FacetField("year"); !ok || f != FieldYearKey {
		t.Errorf("FacetField(year) = %q, %v", f, ok)
	}
	if _, ok := FacetField("content"); ok {
		t.Error("content should not be facetable")
	}
	if f, ok := SortField("title"); !ok || f != FieldTitleSort {
		t.Errorf("SortField(title) = %q, %v", f, ok)
	}
}

func TestIndexedWords(t *testing.T) {
	got := IndexedWords([]string{"consulting", "for", "the", "audit"})
	if want := []string{"consulting", "audit"}; !reflect.DeepEqual(got, want) {
		t.Errorf("IndexedWords = %q, want %q", got, want)
	}
	if got := IndexedWords([]string{"and", "the"}); len(got) != 0 {
		t.Errorf("IndexedWords(and, the) = %q, want none", got)
	}
}
