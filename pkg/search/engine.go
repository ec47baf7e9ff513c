package search

import (
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/unowned-ai/nikki/pkg/journal"
)

// Result is an entry together with its relevance score.
type Result struct {
	Entry journal.Entry `json:"entry"`
	Score float64       `json:"score"`
}

// Engine ranks and filters entry collections in memory. It never touches
// storage. The only state it keeps is the index of the last searched
// collection, which is replaced wholesale on rebuild.
type Engine struct {
	scorer Scorer
	logger *zap.Logger
	cache  atomic.Pointer[index]
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer replaces the default approximate scorer.
func WithScorer(s Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		scorer: ApproximateScorer{Threshold: DefaultThreshold},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Search returns the entries matching query, most relevant first. Entries of
// equal relevance keep their input order. A blank query returns entries
// unchanged.
func (e *Engine) Search(entries []journal.Entry, query string) []journal.Entry {
	q := normalizeQuery(query)
	if q == "" {
		return entries
	}
	results := e.rank(entries, q)
	out := make([]journal.Entry, len(results))
	for i, r := range results {
		out[i] = r.Entry
	}
	return out
}

// Rank is Search with the relevance of each entry. A blank query scores every
// entry 1 and keeps the input order.
func (e *Engine) Rank(entries []journal.Entry, query string) []Result {
	q := normalizeQuery(query)
	if q == "" {
		results := make([]Result, len(entries))
		for i, entry := range entries {
			results[i] = Result{Entry: entry, Score: 1}
		}
		return results
	}
	return e.rank(entries, q)
}

// Combine searches first and filters the ranked subset, keeping its order.
func (e *Engine) Combine(entries []journal.Entry, query string, opts FilterOptions) []journal.Entry {
	return Filter(e.Search(entries, query), opts)
}

// ClearCache drops the cached index. Callers that change stored entries
// without changing the size of the collection they search should call it.
func (e *Engine) ClearCache() {
	e.cache.Store(nil)
}

func (e *Engine) rank(entries []journal.Entry, q string) []Result {
	idx := e.indexFor(entries)

	results := []Result{}
	for i, doc := range idx.docs {
		score := e.score(q, doc)
		if score > 0 {
			results = append(results, Result{Entry: entries[i], Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func (e *Engine) score(q string, doc document) float64 {
	var total float64
	if r, ok := e.scorer.Score(q, doc.content); ok {
		total += ContentWeight * r
	}
	var best float64
	for _, tag := range doc.tags {
		if r, ok := e.scorer.Score(q, tag); ok && r > best {
			best = r
		}
	}
	total += TagsWeight * best
	if r, ok := e.scorer.Score(q, doc.category); ok {
		total += CategoryWeight * r
	}
	return total
}

func (e *Engine) indexFor(entries []journal.Entry) *index {
	fp := fingerprintEntries(entries)
	if idx := e.cache.Load(); idx.matches(len(entries), fp) {
		return idx
	}
	idx := buildIndex(entries, fp)
	e.cache.Store(idx)
	e.logger.Debug("search index rebuilt", zap.Int("entries", len(entries)))
	return idx
}
