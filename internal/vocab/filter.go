// Package vocab derives a retained-term subset from term statistics
// thresholds and projects document-term matrices onto it.
package vocab

import (
	"github.com/eborbath/corpustat/internal/dtm"
	"github.com/eborbath/corpustat/internal/termstats"
)

// Config holds the threshold predicates. Each predicate is independently
// enabled; a term is retained only when it satisfies every enabled predicate.
type Config struct {
	// MinTermLength drops terms shorter than this many runes. Disabled
	// when <= 0.
	MinTermLength int `json:"min_term_length"`
	// MinTermFreq drops terms whose total frequency is below this value.
	// Disabled when <= 0.
	MinTermFreq int `json:"min_term_freq"`
	// MaxRelDocFreq drops terms occurring in more than this fraction of
	// documents. Disabled when <= 0.
	MaxRelDocFreq float64 `json:"max_rel_doc_freq"`
	// DropDigits drops terms whose raw surface form contains a decimal
	// digit.
	DropDigits bool `json:"drop_digits"`
	// DropSymbols drops terms whose raw surface form contains a character
	// that is neither a letter nor a digit.
	DropSymbols bool `json:"drop_symbols"`
}

// Keep reports whether a single term statistics row passes every enabled
// predicate.
func (c Config) Keep(s termstats.Stats) bool {
	if c.MinTermLength > 0 && s.Length < c.MinTermLength {
		return false
	}
	if c.MinTermFreq > 0 && s.Frequency < c.MinTermFreq {
		return false
	}
	if c.MaxRelDocFreq > 0 && s.RelDocFreq > c.MaxRelDocFreq {
		return false
	}
	if c.DropDigits && s.HasDigit {
		return false
	}
	if c.DropSymbols && s.HasSymbol {
		return false
	}
	return true
}

// Retain returns the subset of terms passing every enabled predicate, in
// the order the statistics table lists them.
func Retain(stats []termstats.Stats, cfg Config) []string {
	retained := make([]string, 0, len(stats))
	for _, s := range stats {
		if cfg.Keep(s) {
			retained = append(retained, s.Term)
		}
	}
	return retained
}

// Apply computes the statistics of m, derives the retained set under cfg,
// and returns the projection of m onto it. Documents whose rows become
// empty stay in the matrix so external per-document metadata keeps its
// alignment. Filtering is idempotent: applying the same thresholds to an
// already-filtered matrix returns an equal matrix.
func Apply(m *dtm.DTM, cfg Config) *dtm.DTM {
	return m.Project(Retain(termstats.Compute(m), cfg))
}
