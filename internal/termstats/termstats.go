// Package termstats computes per-term aggregate statistics over a
// document-term matrix: total frequency, document frequency, and lexical
// shape flags used for vocabulary filtering.
package termstats

import (
	"sort"
	"unicode"

	"github.com/eborbath/corpustat/internal/dtm"
)

// Stats is one row of the term statistics table.
type Stats struct {
	Term       string  `json:"term"`
	Frequency  int     `json:"frequency"`
	DocFreq    int     `json:"doc_freq"`
	RelDocFreq float64 `json:"rel_doc_freq"`
	Length     int     `json:"length"`
	HasDigit   bool    `json:"has_digit"`
	HasSymbol  bool    `json:"has_symbol"`
}

// Compute derives one Stats row per term of the matrix, in the matrix's
// internal term order. It is a pure function of its input: the matrix is
// not modified and repeated calls yield identical output.
func Compute(m *dtm.DTM) []Stats {
	terms := m.Terms()
	numDocs := m.NumDocs()
	out := make([]Stats, 0, len(terms))
	for _, term := range terms {
		hasDigit, hasSymbol := shapeFlags(term)
		s := Stats{
			Term:      term,
			Frequency: m.TermFrequency(term),
			DocFreq:   m.DocFrequency(term),
			Length:    len([]rune(term)),
			HasDigit:  hasDigit,
			HasSymbol: hasSymbol,
		}
		if numDocs > 0 {
			s.RelDocFreq = float64(s.DocFreq) / float64(numDocs)
		}
		out = append(out, s)
	}
	return out
}

// SortByFrequency orders rows by frequency descending, with ties broken on
// the term string ascending so equal-frequency output is stable.
func SortByFrequency(stats []Stats) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Term < stats[j].Term
	})
}

// shapeFlags inspects the raw surface string, before any normalisation, so
// the flags reflect the literal token text rather than a stemmed or cased
// variant.
func shapeFlags(term string) (hasDigit, hasSymbol bool) {
	for _, r := range term {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
		if hasDigit && hasSymbol {
			return
		}
	}
	return
}
