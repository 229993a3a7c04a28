package dtm

import (
	"context"
	"fmt"
	"sync"

	"github.com/eborbath/corpustat/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Entry is one (document, term) occurrence handed to the Builder.
// Part-of-speech filtering happens before this stage, by the caller.
type Entry struct {
	Doc  string
	Term string
}

// Builder accumulates (document, term) occurrences into a sparse matrix.
// It is not safe for concurrent use; parallel accumulation goes through
// independent builders merged with Merge.
type Builder struct {
	docs      []string
	terms     []string
	docIndex  map[string]int
	termIndex map[string]int
	rows      []map[int]int
	pairs     int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		docIndex:  make(map[string]int),
		termIndex: make(map[string]int),
	}
}

// Add records one occurrence of term in docID.
func (b *Builder) Add(docID, term string) {
	b.AddCount(docID, term, 1)
}

// AddCount records count occurrences of term in docID. Counts <= 0 are
// ignored so zero cells are never materialised.
func (b *Builder) AddCount(docID, term string, count int) {
	if count <= 0 {
		return
	}
	d, ok := b.docIndex[docID]
	if !ok {
		d = len(b.docs)
		b.docIndex[docID] = d
		b.docs = append(b.docs, docID)
		b.rows = append(b.rows, make(map[int]int))
	}
	t, ok := b.termIndex[term]
	if !ok {
		t = len(b.terms)
		b.termIndex[term] = t
		b.terms = append(b.terms, term)
	}
	b.rows[d][t] += count
	b.pairs += count
}

// AddDoc registers a document row without any occurrences. Used when
// restoring matrices whose projection left zero-occupancy rows in place.
func (b *Builder) AddDoc(docID string) {
	if _, ok := b.docIndex[docID]; ok {
		return
	}
	b.docIndex[docID] = len(b.docs)
	b.docs = append(b.docs, docID)
	b.rows = append(b.rows, make(map[int]int))
}

// Pairs returns the number of occurrences accumulated so far.
func (b *Builder) Pairs() int { return b.pairs }

// NumDocs returns the number of distinct documents accumulated so far.
func (b *Builder) NumDocs() int { return len(b.docs) }

// NumTerms returns the number of distinct terms accumulated so far.
func (b *Builder) NumTerms() int { return len(b.terms) }

// Merge folds the contents of other into b, summing overlapping cells.
// Aggregation is commutative and associative, so merge order does not
// affect the resulting cell values.
func (b *Builder) Merge(other *Builder) {
	for d, row := range other.rows {
		docID := other.docs[d]
		for t, count := range row {
			b.AddCount(docID, other.terms[t], count)
		}
	}
}

// Build freezes the accumulated counts into an immutable DTM. An empty
// accumulation is an error: callers must handle the empty-corpus case
// explicitly rather than receive a degenerate matrix.
func (b *Builder) Build() (*DTM, error) {
	if b.pairs == 0 {
		return nil, errors.New(errors.ErrInvalidInput, 400, "empty token sequence")
	}
	m := &DTM{
		docs:      make([]string, len(b.docs)),
		terms:     make([]string, len(b.terms)),
		docIndex:  make(map[string]int, len(b.docs)),
		termIndex: make(map[string]int, len(b.terms)),
		rows:      make([]map[int]int, len(b.rows)),
		colSums:   make([]int, len(b.terms)),
		docFreqs:  make([]int, len(b.terms)),
	}
	copy(m.docs, b.docs)
	copy(m.terms, b.terms)
	for docID, d := range b.docIndex {
		m.docIndex[docID] = d
	}
	for term, t := range b.termIndex {
		m.termIndex[term] = t
	}
	for d, row := range b.rows {
		m.rows[d] = make(map[int]int, len(row))
		for t, count := range row {
			m.rows[d][t] = count
			m.colSums[t] += count
			m.docFreqs[t]++
			m.total += count
		}
	}
	return m, nil
}

// Build constructs a DTM from a materialised entry sequence.
func Build(entries []Entry) (*DTM, error) {
	b := NewBuilder()
	for _, e := range entries {
		b.Add(e.Doc, e.Term)
	}
	return b.Build()
}

// BuildParallel partitions the entry sequence across parallelism workers,
// each accumulating an independent partial builder, and merges the partials
// by summing overlapping cells. Cell values are identical to a sequential
// build; only internal index order may differ.
func BuildParallel(ctx context.Context, entries []Entry, parallelism int) (*DTM, error) {
	if parallelism <= 1 || len(entries) < parallelism*2 {
		return Build(entries)
	}
	partials := make([]*Builder, parallelism)
	chunk := (len(entries) + parallelism - 1) / parallelism

	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for w := 0; w < parallelism; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(entries) {
			hi = len(entries)
		}
		if lo >= hi {
			break
		}
		w := w
		part := entries[lo:hi]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := NewBuilder()
			for _, e := range part {
				b.Add(e.Doc, e.Term)
			}
			mu.Lock()
			partials[w] = b
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parallel build: %w", err)
	}

	merged := NewBuilder()
	for _, p := range partials {
		if p != nil {
			merged.Merge(p)
		}
	}
	return merged.Build()
}
