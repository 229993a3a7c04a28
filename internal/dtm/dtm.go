// Package dtm implements a sparse document-term matrix: non-negative term
// counts keyed by (document, term), with dense zero-based internal indices
// assigned in first-seen order. A DTM is immutable once built; filtering and
// projection produce new matrices.
package dtm

import "sort"

// DTM is a sparse count matrix over documents and terms. Zero counts are
// never materialised: every stored cell is >= 1. Each DTM owns its index
// maps and shares no mutable state with any other matrix.
type DTM struct {
	docs      []string
	terms     []string
	docIndex  map[string]int
	termIndex map[string]int
	rows      []map[int]int
	colSums   []int
	docFreqs  []int
	total     int
}

// NumDocs returns the number of documents, including zero-occupancy rows
// kept after projection.
func (m *DTM) NumDocs() int { return len(m.docs) }

// NumTerms returns the vocabulary size.
func (m *DTM) NumTerms() int { return len(m.terms) }

// Total returns the grand total of all cell values.
func (m *DTM) Total() int { return m.total }

// Docs returns the document identifiers in internal index order.
func (m *DTM) Docs() []string {
	out := make([]string, len(m.docs))
	copy(out, m.docs)
	return out
}

// Terms returns the term strings in internal index order.
func (m *DTM) Terms() []string {
	out := make([]string, len(m.terms))
	copy(out, m.terms)
	return out
}

// HasDoc reports whether the matrix holds a row for docID.
func (m *DTM) HasDoc(docID string) bool {
	_, ok := m.docIndex[docID]
	return ok
}

// HasTerm reports whether term is part of the matrix vocabulary.
func (m *DTM) HasTerm(term string) bool {
	_, ok := m.termIndex[term]
	return ok
}

// Count returns the number of occurrences of term in docID, or 0 if the
// cell is absent.
func (m *DTM) Count(docID, term string) int {
	d, ok := m.docIndex[docID]
	if !ok {
		return 0
	}
	t, ok := m.termIndex[term]
	if !ok {
		return 0
	}
	return m.rows[d][t]
}

// TermFrequency returns the column sum for term across all documents.
func (m *DTM) TermFrequency(term string) int {
	t, ok := m.termIndex[term]
	if !ok {
		return 0
	}
	return m.colSums[t]
}

// DocFrequency returns the number of documents containing term at least
// once.
func (m *DTM) DocFrequency(term string) int {
	t, ok := m.termIndex[term]
	if !ok {
		return 0
	}
	return m.docFreqs[t]
}

// Row returns the term counts of a single document keyed by term string.
// The returned map is a copy; mutating it does not affect the matrix.
func (m *DTM) Row(docID string) map[string]int {
	d, ok := m.docIndex[docID]
	if !ok {
		return nil
	}
	out := make(map[string]int, len(m.rows[d]))
	for t, count := range m.rows[d] {
		out[m.terms[t]] = count
	}
	return out
}

// Column returns the per-document counts of a single term keyed by document
// identifier. The returned map is a copy.
func (m *DTM) Column(term string) map[string]int {
	t, ok := m.termIndex[term]
	if !ok {
		return nil
	}
	out := make(map[string]int)
	for d, row := range m.rows {
		if count, present := row[t]; present {
			out[m.docs[d]] = count
		}
	}
	return out
}

// EachCell visits every stored cell in deterministic order: documents in
// internal index order, and terms in internal index order within each row.
func (m *DTM) EachCell(fn func(docID, term string, count int)) {
	for d, row := range m.rows {
		idxs := make([]int, 0, len(row))
		for t := range row {
			idxs = append(idxs, t)
		}
		sort.Ints(idxs)
		for _, t := range idxs {
			fn(m.docs[d], m.terms[t], row[t])
		}
	}
}

// Project returns a new DTM restricted to the retained terms. Documents keep
// their identity and order even when their row becomes empty, so rows stay
// aligned with any per-document metadata the caller holds. Retained terms
// absent from this matrix are ignored.
func (m *DTM) Project(retained []string) *DTM {
	keep := make(map[int]struct{}, len(retained))
	for _, term := range retained {
		if t, ok := m.termIndex[term]; ok {
			keep[t] = struct{}{}
		}
	}

	out := &DTM{
		docs:      make([]string, len(m.docs)),
		docIndex:  make(map[string]int, len(m.docs)),
		terms:     make([]string, 0, len(keep)),
		termIndex: make(map[string]int, len(keep)),
		rows:      make([]map[int]int, len(m.docs)),
	}
	copy(out.docs, m.docs)
	for d, docID := range out.docs {
		out.docIndex[docID] = d
		out.rows[d] = make(map[int]int)
	}

	// Preserve the original first-seen term order within the retained set.
	remap := make(map[int]int, len(keep))
	for t, term := range m.terms {
		if _, ok := keep[t]; ok {
			remap[t] = len(out.terms)
			out.termIndex[term] = len(out.terms)
			out.terms = append(out.terms, term)
		}
	}

	out.colSums = make([]int, len(out.terms))
	out.docFreqs = make([]int, len(out.terms))
	for d, row := range m.rows {
		for t, count := range row {
			nt, ok := remap[t]
			if !ok {
				continue
			}
			out.rows[d][nt] = count
			out.colSums[nt] += count
			out.docFreqs[nt]++
			out.total += count
		}
	}
	return out
}

// Equal reports whether the two matrices contain identical cell values for
// identical (document, term) keys. Internal index order is not compared:
// matrices built from reordered input are equal.
func (m *DTM) Equal(other *DTM) bool {
	if other == nil {
		return false
	}
	if len(m.docs) != len(other.docs) || len(m.terms) != len(other.terms) || m.total != other.total {
		return false
	}
	for _, docID := range m.docs {
		if !other.HasDoc(docID) {
			return false
		}
	}
	for _, term := range m.terms {
		if !other.HasTerm(term) {
			return false
		}
	}
	for d, row := range m.rows {
		docID := m.docs[d]
		for t, count := range row {
			if other.Count(docID, m.terms[t]) != count {
				return false
			}
		}
	}
	return true
}
