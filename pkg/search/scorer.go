package search

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultThreshold is the mismatch tolerance used when none is configured.
const DefaultThreshold = 0.3

// Field weights of the relevance score. Content dominates, tags follow and
// category contributes least.
const (
	ContentWeight  = 0.7
	TagsWeight     = 0.2
	CategoryWeight = 0.1
)

// Scorer names accepted by NewScorer.
const (
	ScorerApproximate = "approximate"
	ScorerSubsequence = "subsequence"
)

var ErrUnknownScorer = errors.New("unknown scorer")

// Scorer rates how well query matches candidate. Both arguments are already
// case folded. A match reports a relevance in (0, 1], 1 being an exact hit.
// Implementations must be safe for concurrent use.
type Scorer interface {
	Score(query, candidate string) (float64, bool)
}

// NewScorer returns the scorer registered under name. An empty name selects
// the approximate scorer.
func NewScorer(name string, threshold float64) (Scorer, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %v outside [0, 1]", threshold)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ScorerApproximate:
		return ApproximateScorer{Threshold: threshold}, nil
	case ScorerSubsequence:
		return SubsequenceScorer{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScorer, name)
	}
}

// ValidScorer reports whether name is accepted by NewScorer.
func ValidScorer(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ScorerApproximate, ScorerSubsequence:
		return true
	}
	return false
}
