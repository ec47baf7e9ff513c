package search

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/unowned-ai/nikki/pkg/journal"
)

// document is the case-folded searchable form of one entry.
type document struct {
	content  string
	tags     []string
	category string
}

// index holds the documents of one candidate collection, position for
// position. It is immutable once built.
type index struct {
	size        int
	fingerprint uint64
	docs        []document
}

func buildIndex(entries []journal.Entry, fingerprint uint64) *index {
	docs := make([]document, len(entries))
	for i, e := range entries {
		tags := make([]string, len(e.Tags))
		for j, t := range e.Tags {
			tags[j] = fold(t)
		}
		docs[i] = document{
			content:  fold(e.Content),
			tags:     tags,
			category: fold(string(e.Category)),
		}
	}
	return &index{size: len(entries), fingerprint: fingerprint, docs: docs}
}

// matches reports whether idx was built from a collection of this size and
// fingerprint.
func (idx *index) matches(size int, fingerprint uint64) bool {
	return idx != nil && idx.size == size && idx.fingerprint == fingerprint
}

// fingerprintEntries hashes the searchable fields of entries in order. Any
// change to a searched field, to the order or to updatedAt changes the result.
func fingerprintEntries(entries []journal.Entry) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	sep := []byte{0}
	for _, e := range entries {
		h.Write([]byte(e.ID))
		h.Write(sep)
		binary.LittleEndian.PutUint64(buf[:], uint64(e.UpdatedAt.UnixMicro()))
		h.Write(buf[:])
		h.Write([]byte(e.Category))
		h.Write(sep)
		for _, t := range e.Tags {
			h.Write([]byte(t))
			h.Write(sep)
		}
		h.Write(sep)
		h.Write([]byte(e.Content))
		h.Write(sep)
	}
	return h.Sum64()
}
