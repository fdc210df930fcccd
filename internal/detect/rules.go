package detect

import (
	"strings"

	"github.com/hyperjump/shorui/internal/registry"
)

// Predicate tests lower-cased document text.
type Predicate func(text string) bool

// Rule ties a predicate to a category and the confidence reported when it matches.
type Rule struct {
	Name       string
	Category   string
	Confidence float64
	Match      Predicate
}

func anyOf(phrases ...string) Predicate {
	return func(text string) bool {
		for _, p := range phrases {
			if strings.Contains(text, p) {
				return true
			}
		}
		return false
	}
}

func allOf(preds ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range preds {
			if !p(text) {
				return false
			}
		}
		return true
	}
}

func either(preds ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range preds {
			if p(text) {
				return true
			}
		}
		return false
	}
}

// DefaultRules is the built-in rule table. Order matters: form titles come before
// generic vocabulary so that, say, a W-2 mentioning a total and a date is not a receipt.
func DefaultRules() []Rule {
	return []Rule{
		{"w2-title", registry.CategoryW2, 0.9,
			anyOf("form w-2", "w-2 wage", "wage and tax statement")},
		{"1099-nec-title", registry.Category1099NEC, 0.9,
			anyOf("1099-nec", "nonemployee compensation")},
		{"1099-misc-title", registry.Category1099MISC, 0.9,
			anyOf("1099-misc", "miscellaneous information", "miscellaneous income")},
		{"1099-int-title", registry.Category1099INT, 0.9,
			anyOf("1099-int", "interest income")},
		{"1098-title", registry.Category1098, 0.9,
			anyOf("form 1098", "mortgage interest statement")},
		{"1040-title", registry.Category1040, 0.9,
			anyOf("form 1040", "individual income tax return")},
		{"invoice-detailed", registry.CategoryInvoice, 0.85,
			allOf(anyOf("invoice"), anyOf("bill to", "invoice number", "invoice #", "invoice no", "amount due"))},
		{"invoice", registry.CategoryInvoice, 0.7,
			anyOf("invoice")},
		{"bank-statement", registry.CategoryBankStatement, 0.75,
			either(
				anyOf("bank statement", "account statement", "statement period"),
				allOf(anyOf("beginning balance", "opening balance"), anyOf("ending balance", "closing balance")),
			)},
		{"id-document", registry.CategoryIDDocument, 0.7,
			anyOf("driver license", "driver's license", "passport", "identification card")},
		{"receipt", registry.CategoryReceipt, 0.75,
			anyOf("receipt")},
		{"receipt-totals", registry.CategoryReceipt, 0.6,
			allOf(anyOf("total"), anyOf("date", "subtotal", "tax"))},
	}
}
