package search

import (
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

// SubsequenceScorer accepts candidates that contain the query runes in order.
// Relevance is the share of the matched span taken by query runes, so
// scattered matches score low and are dropped once the share falls under
// 1 - Threshold.
type SubsequenceScorer struct {
	Threshold float64
}

func (s SubsequenceScorer) Score(query, candidate string) (float64, bool) {
	if query == "" {
		return 0, false
	}
	matches := fuzzy.Find(query, []string{candidate})
	if len(matches) == 0 || len(matches[0].MatchedIndexes) == 0 {
		return 0, false
	}
	idx := matches[0].MatchedIndexes
	first, last := idx[0], idx[len(idx)-1]
	if last < first || last >= len(candidate) {
		return 0, false
	}
	// MatchedIndexes are byte offsets.
	span := utf8.RuneCountInString(candidate[first:last]) + 1
	relevance := float64(utf8.RuneCountInString(query)) / float64(span)
	if relevance > 1 {
		relevance = 1
	}
	if relevance < 1-s.Threshold {
		return 0, false
	}
	return relevance, true
}
