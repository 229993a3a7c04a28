// Package compare computes relative-overrepresentation and chi-square
// significance statistics for terms across two document-term matrices.
package compare

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/eborbath/corpustat/internal/dtm"
)

// Row is the comparison record for one term present in at least one corpus.
type Row struct {
	Term      string  `json:"term"`
	FreqX     int     `json:"freq_x"`
	FreqY     int     `json:"freq_y"`
	RelX      float64 `json:"rel_x"`
	RelY      float64 `json:"rel_y"`
	Over      float64 `json:"over"`
	ChiSquare float64 `json:"chi_square"`
}

// rowJSON is the wire form of Row. An overrepresentation ratio of +Inf,
// produced whenever a term is absent from Y, has no JSON number
// representation, so "over" travels as a nullable field: null means
// infinite, matching the NULL the result store writes.
type rowJSON struct {
	Term      string   `json:"term"`
	FreqX     int      `json:"freq_x"`
	FreqY     int      `json:"freq_y"`
	RelX      float64  `json:"rel_x"`
	RelY      float64  `json:"rel_y"`
	Over      *float64 `json:"over"`
	ChiSquare float64  `json:"chi_square"`
}

func (r Row) MarshalJSON() ([]byte, error) {
	wire := rowJSON{
		Term:      r.Term,
		FreqX:     r.FreqX,
		FreqY:     r.FreqY,
		RelX:      r.RelX,
		RelY:      r.RelY,
		ChiSquare: r.ChiSquare,
	}
	if !math.IsInf(r.Over, 0) {
		wire.Over = &r.Over
	}
	return json.Marshal(wire)
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var wire rowJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = Row{
		Term:      wire.Term,
		FreqX:     wire.FreqX,
		FreqY:     wire.FreqY,
		RelX:      wire.RelX,
		RelY:      wire.RelY,
		ChiSquare: wire.ChiSquare,
	}
	if wire.Over != nil {
		r.Over = *wire.Over
	} else {
		r.Over = math.Inf(1)
	}
	return nil
}

// Result is the full comparison table for a (X, Y) matrix pair.
type Result struct {
	TotalX int   `json:"total_x"`
	TotalY int   `json:"total_y"`
	Rows   []Row `json:"rows"`
	// NoOverlap distinguishes an empty table caused by disjoint
	// vocabularies from a genuine zero-overlap finding in the data.
	NoOverlap bool `json:"no_overlap"`
}

// Corpora computes the comparison table over the union of terms appearing
// in either matrix. Both matrices are expected to be filtered already. When
// the two vocabularies share no term at all, the table is empty and
// NoOverlap is set; callers that prefer an error can test the flag against
// errors.ErrVocabularyMismatch themselves.
func Corpora(x, y *dtm.DTM) *Result {
	res := &Result{
		TotalX: x.Total(),
		TotalY: y.Total(),
	}

	shared := 0
	union := make([]string, 0, x.NumTerms()+y.NumTerms())
	for _, term := range x.Terms() {
		union = append(union, term)
		if y.HasTerm(term) {
			shared++
		}
	}
	for _, term := range y.Terms() {
		if !x.HasTerm(term) {
			union = append(union, term)
		}
	}
	if shared == 0 {
		res.NoOverlap = true
		res.Rows = []Row{}
		return res
	}

	totalX := float64(res.TotalX)
	totalY := float64(res.TotalY)
	res.Rows = make([]Row, 0, len(union))
	for _, term := range union {
		freqX := x.TermFrequency(term)
		freqY := y.TermFrequency(term)
		if freqX == 0 && freqY == 0 {
			// Carries no comparative signal; never reported.
			continue
		}
		row := Row{
			Term:  term,
			FreqX: freqX,
			FreqY: freqY,
		}
		if totalX > 0 {
			row.RelX = float64(freqX) / totalX
		}
		if totalY > 0 {
			row.RelY = float64(freqY) / totalY
		}
		row.Over = overrepresentation(row.RelX, row.RelY)
		row.ChiSquare = chiSquare(
			float64(freqX), totalX-float64(freqX),
			float64(freqY), totalY-float64(freqY),
		)
		res.Rows = append(res.Rows, row)
	}

	SortByOver(res.Rows, true)
	return res
}

// overrepresentation is relX/relY, defined as +Inf when the term is absent
// from Y but present in X, and 0 when absent from both.
func overrepresentation(relX, relY float64) float64 {
	if relY == 0 {
		if relX > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return relX / relY
}

// chiSquare computes the unsigned chi-square statistic for the 2x2
// contingency table {a, b; c, d} = {freqX, totalX-freqX, freqY,
// totalY-freqY}. The skew direction comes from the overrepresentation
// ratio, not from this statistic.
func chiSquare(a, b, c, d float64) float64 {
	n := a + b + c + d
	if n == 0 {
		return 0
	}
	denom := (a + b) * (c + d) * (a + c) * (b + d)
	if denom == 0 {
		return 0
	}
	diff := a*d - b*c
	return n * diff * diff / denom
}

// SortByOver orders rows by overrepresentation: descending puts terms
// skewed toward X first, ascending terms skewed toward Y. Ties break on
// the term string ascending so output is fully deterministic.
func SortByOver(rows []Row, descending bool) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Over != rows[j].Over {
			if descending {
				return rows[i].Over > rows[j].Over
			}
			return rows[i].Over < rows[j].Over
		}
		return rows[i].Term < rows[j].Term
	})
}
