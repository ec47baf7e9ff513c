package search

import "slices"

// ApproximateScorer matches the query against the closest substring of the
// candidate. Up to Threshold edits per query rune are tolerated, and where the
// substring sits in the candidate does not matter.
type ApproximateScorer struct {
	Threshold float64
}

func (s ApproximateScorer) Score(query, candidate string) (float64, bool) {
	q := []rune(query)
	if len(q) == 0 {
		return 0, false
	}
	ratio := float64(substringDistance(q, []rune(candidate))) / float64(len(q))
	if ratio > s.Threshold || ratio >= 1 {
		return 0, false
	}
	return 1 - ratio, true
}

// substringDistance returns the smallest edit distance between q and any
// substring of c. The first row is all zeros so a match may start anywhere.
func substringDistance(q, c []rune) int {
	prev := make([]int, len(c)+1)
	cur := make([]int, len(c)+1)
	for i := 1; i <= len(q); i++ {
		cur[0] = i
		for j := 1; j <= len(c); j++ {
			cost := 1
			if q[i-1] == c[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j-1]+cost, prev[j]+1, cur[j-1]+1)
		}
		prev, cur = cur, prev
	}
	return slices.Min(prev)
}
