package search

import (
	"slices"
	"time"

	"github.com/unowned-ai/nikki/pkg/journal"
)

// DateRange bounds createdAt, both ends inclusive.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies in [Start, End].
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// FilterOptions are structural predicates. Each one set must hold; unset ones
// impose nothing.
type FilterOptions struct {
	// Tags matches entries carrying at least one of the listed tags.
	Tags []string `json:"tags,omitempty"`
	// Category matches exactly. Empty means unset.
	Category  journal.Category `json:"category,omitempty"`
	DateRange *DateRange       `json:"date_range,omitempty"`
}

// IsEmpty reports whether no predicate is set.
func (o FilterOptions) IsEmpty() bool {
	return len(o.Tags) == 0 && o.Category == "" && o.DateRange == nil
}

// Match reports whether entry satisfies every set predicate.
func (o FilterOptions) Match(entry journal.Entry) bool {
	if len(o.Tags) > 0 && !slices.ContainsFunc(o.Tags, entry.HasTag) {
		return false
	}
	if o.Category != "" && entry.Category != o.Category {
		return false
	}
	if o.DateRange != nil && !o.DateRange.Contains(entry.CreatedAt) {
		return false
	}
	return true
}

// Filter returns the entries matching opts in their input order. A start
// after the end of the date range matches nothing.
func Filter(entries []journal.Entry, opts FilterOptions) []journal.Entry {
	out := make([]journal.Entry, 0, len(entries))
	for _, e := range entries {
		if opts.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
