package search

import (
	"strings"

	"golang.org/x/text/cases"
)

// fold returns s in Unicode case-folded form. A Caser holds state, so each
// call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

func normalizeQuery(q string) string {
	return fold(strings.TrimSpace(q))
}
