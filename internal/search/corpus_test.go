package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/shorui/internal/models"
)

// corpusTopic is a document shape repeated for every tenant. Signature phrases are unique
// per topic so a query can assert which document it should find.
type corpusTopic struct {
	category  string
	title     string
	signature string
	content   string
}

var corpusTopics = []corpusTopic{
	{"invoice", "Consulting invoice", "strategy consulting retainer", "Invoice for strategy consulting retainer covering October."},
	{"invoice", "Hardware invoice", "ergonomic standing desks", "Invoice for twelve ergonomic standing desks delivered to the office."},
	{"receipt", "Fuel receipt", "diesel fuel station", "Receipt from the diesel fuel station on highway nine."},
	{"receipt", "Catering receipt", "quarterly offsite catering", "Receipt for quarterly offsite catering and beverages."},
	{"w2", "Wage statement", "wage and tax statement", "Form W-2 wage and tax statement. Federal income tax withheld."},
	{"1099-nec", "Contractor income", "nonemployee compensation", "Form 1099-NEC reporting nonemployee compensation for design work."},
	{"1099-int", "Savings interest", "interest income savings", "Form 1099-INT reporting interest income savings account."},
	{"1098", "Mortgage statement", "mortgage interest statement", "Form 1098 mortgage interest statement for the primary residence."},
	{"bank_statement", "Checking statement", "checking account statement", "Monthly checking account statement with opening and closing balance."},
	{"contract", "Lease agreement", "commercial lease agreement", "Commercial lease agreement for the warehouse on Pier Street."},
	{"contract", "Service agreement", "managed hosting agreement", "Managed hosting agreement with uptime commitments."},
	{"id_document", "Driver license", "driver license renewal", "Scan of the driver license renewal for the account holder."},
	{"invoice", "Software invoice", "annual software subscription", "Invoice for the annual software subscription of the accounting suite."},
	{"receipt", "Travel receipt", "airport parking garage", "Receipt from the airport parking garage for the conference trip."},
	{"invoice", "Freight invoice", "ocean freight container", "Invoice for ocean freight container shipping from Rotterdam."},
}

var corpusOrgs = []string{"org-north", "org-south", "org-east"}

type corpusCase struct {
	org      string
	query    string
	expected string
}

func buildSearchCorpus() ([]*models.SearchIndexEntry, []corpusCase) {
	var entries []*models.SearchIndexEntry
	var cases []corpusCase
	for oi, org := range corpusOrgs {
		for ti, topic := range corpusTopics {
			id := fmt.Sprintf("%s-%02d", org, ti)
			year := 2021 + (oi+ti)%3
			entries = append(entries, doc(id, org, topic.category, year, topic.title, topic.content, topic.category))
			cases = append(cases, corpusCase{org: org, query: topic.signature, expected: id})
		}
	}
	return entries, cases
}

func TestCorpus_signatureQueriesStayInTenant(t *testing.T) {
	entries, cases := buildSearchCorpus()
	engine, _ := newTestEngine(t, entries...)
	ctx := context.Background()
	t.Logf("indexed %d entries; running %d queries", len(entries), len(cases))

	for _, tc := range cases {
		t.Run(tc.org+"/"+tc.query, func(t *testing.T) {
			resp, err := engine.Search(ctx, models.SearchOptions{
				Query:   tc.query,
				Filters: &models.SearchFilters{OrganizationID: tc.org},
				Top:     5,
			})
			if err != nil {
				t.Fatalf("search %q: %v", tc.query, err)
			}
			if len(resp.Documents) == 0 {
				t.Fatalf("query %q returned nothing", tc.query)
			}
			if got := resp.Documents[0].Entry.ID; got != tc.expected {
				t.Errorf("query %q: top hit %s, want %s (ids: %v)", tc.query, got, tc.expected, ids(resp))
			}
			for _, h := range resp.Documents {
				if h.Entry.OrganizationID != tc.org {
					t.Errorf("query %q for %s returned %s of %s", tc.query, tc.org, h.Entry.ID, h.Entry.OrganizationID)
				}
			}
		})
	}
}

func TestCorpus_facetsCountOnlyTenant(t *testing.T) {
	entries, _ := buildSearchCorpus()
	engine, _ := newTestEngine(t, entries...)

	resp, err := engine.Search(context.Background(), models.SearchOptions{
		Filters: &models.SearchFilters{OrganizationID: "org-south"},
		Facets:  []string{"category"},
		Top:     1,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.TotalCount == nil || *resp.TotalCount != len(corpusTopics) {
		t.Fatalf("total count = %v, want %d", resp.TotalCount, len(corpusTopics))
	}

	facets := resp.Facets["category"]
	total := 0
	for _, fv := range facets {
		total += fv.Count
	}
	if total != len(corpusTopics) {
		t.Errorf("category facet counts sum to %d, want %d", total, len(corpusTopics))
	}
	if len(facets) == 0 || facets[0].Value != "invoice" || facets[0].Count != 4 {
		t.Errorf("top category facet = %v, want invoice with 4", facets)
	}
}
