package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/pkg/utils"
)

const (
	proximityWindow = 8
	proximityBoost  = 1.2
	// answerCoverage is the share of query terms a sentence must contain to be an answer.
	answerCoverage = 0.5
)

var sentenceEnd = regexp.MustCompile(`[.!?]+\s+|\n+`)

func docText(e *models.SearchIndexEntry) string {
	return strings.Join([]string{e.Title, e.Summary, e.Content}, "\n")
}

// coverage is the fraction of distinct terms present in tokens.
func coverage(tokens, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		have[t] = struct{}{}
	}
	distinct := utils.Dedupe(terms)
	n := 0
	for _, t := range distinct {
		if _, ok := have[t]; ok {
			n++
		}
	}
	return float64(n) / float64(len(distinct))
}

// withinWindow reports whether every distinct term occurs inside some run of window tokens.
func withinWindow(tokens, terms []string, window int) bool {
	distinct := utils.Dedupe(terms)
	if len(distinct) < 2 {
		return false
	}
	need := make(map[string]int, len(distinct))
	for _, t := range distinct {
		need[t] = 0
	}
	matched := 0
	for i, tok := range tokens {
		if c, ok := need[tok]; ok {
			if c == 0 {
				matched++
			}
			need[tok] = c + 1
		}
		if i >= window {
			old := tokens[i-window]
			if c, ok := need[old]; ok {
				need[old] = c - 1
				if c == 1 {
					matched--
				}
			}
		}
		if matched == len(distinct) {
			return true
		}
	}
	return false
}

// rerank rescales keyword scores by query term coverage and proximity, then sorts.
func rerank(hits []*models.SearchHit, terms []string) {
	if len(terms) == 0 {
		return
	}
	for _, h := range hits {
		tokens := utils.Tokenize(docText(h.Entry))
		c := coverage(tokens, terms)
		score := h.Score * (0.5 + c*c)
		if withinWindow(tokens, terms, proximityWindow) {
			score *= proximityBoost
		}
		h.Score = score
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}

func sentences(text string) []string {
	parts := sentenceEnd.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// bestSentence returns the sentence of text covering the most terms, preferring shorter ones.
func bestSentence(text string, terms []string) (string, float64) {
	var best string
	bestCov := 0.0
	for _, s := range sentences(text) {
		c := coverage(utils.Tokenize(s), terms)
		if c > bestCov || (c == bestCov && c > 0 && len(s) < len(best)) {
			best, bestCov = s, c
		}
	}
	return best, bestCov
}

// captions prefers highlight fragments of content and falls back to the best sentence.
func captions(h *models.SearchHit, terms []string, n int) []string {
	if frags := h.Highlights["content"]; len(frags) > 0 {
		if len(frags) > n {
			frags = frags[:n]
		}
		return append([]string(nil), frags...)
	}
	if s, c := bestSentence(h.Entry.Content, terms); c > 0 {
		return []string{utils.Truncate(s, 300)}
	}
	return nil
}

// extractAnswers picks the best sentence of each of the first topDocs hits and keeps
// those covering at least half of the query terms, best first.
func extractAnswers(hits []*models.SearchHit, terms []string, topDocs int) []models.Answer {
	if len(terms) == 0 {
		return nil
	}
	var answers []models.Answer
	for i, h := range hits {
		if i >= topDocs {
			break
		}
		s, c := bestSentence(h.Entry.Content, terms)
		if c < answerCoverage {
			continue
		}
		answers = append(answers, models.Answer{DocumentID: h.Entry.ID, Text: s, Score: c})
	}
	sort.SliceStable(answers, func(i, j int) bool { return answers[i].Score > answers[j].Score })
	return answers
}
