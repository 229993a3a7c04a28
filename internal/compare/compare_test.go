package compare_test

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eborbath/corpustat/internal/compare"
	"github.com/eborbath/corpustat/internal/dtm"
)

// corpusWith builds a single-document matrix with the given term counts plus
// filler occurrences of "pad" so the grand total comes out as requested.
func corpusWith(t *testing.T, counts map[string]int, total int) *dtm.DTM {
	t.Helper()
	b := dtm.NewBuilder()
	sum := 0
	for term, count := range counts {
		b.AddCount("doc", term, count)
		sum += count
	}
	require.LessOrEqual(t, sum, total)
	if total > sum {
		b.AddCount("doc", "pad", total-sum)
	}
	m, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, total, m.Total())
	return m
}

func rowFor(t *testing.T, rows []compare.Row, term string) compare.Row {
	t.Helper()
	for _, row := range rows {
		if row.Term == term {
			return row
		}
	}
	t.Fatalf("term %q not in comparison table", term)
	return compare.Row{}
}

func TestOverrepresentationRatio(t *testing.T) {
	x := corpusWith(t, map[string]int{"apple": 10}, 100)
	y := corpusWith(t, map[string]int{"apple": 1}, 50)

	result := compare.Corpora(x, y)
	require.False(t, result.NoOverlap)

	apple := rowFor(t, result.Rows, "apple")
	assert.Equal(t, 10, apple.FreqX)
	assert.Equal(t, 1, apple.FreqY)
	assert.InDelta(t, 0.10, apple.RelX, 1e-12)
	assert.InDelta(t, 0.02, apple.RelY, 1e-12)
	assert.InDelta(t, 5.0, apple.Over, 1e-12)
}

func TestOneSidedTermIsInfinite(t *testing.T) {
	x := corpusWith(t, map[string]int{"apple": 5, "quince": 3}, 20)
	y := corpusWith(t, map[string]int{"apple": 5}, 20)

	result := compare.Corpora(x, y)
	quince := rowFor(t, result.Rows, "quince")
	assert.True(t, math.IsInf(quince.Over, 1))
	assert.Equal(t, 0, quince.FreqY)
}

func TestUnionIncludesTermsFromBothSides(t *testing.T) {
	x := corpusWith(t, map[string]int{"shared": 2, "onlyx": 1}, 10)
	y := corpusWith(t, map[string]int{"shared": 3, "onlyy": 4}, 10)

	result := compare.Corpora(x, y)
	terms := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		terms = append(terms, row.Term)
	}
	assert.Contains(t, terms, "shared")
	assert.Contains(t, terms, "onlyx")
	assert.Contains(t, terms, "onlyy")
}

func TestNoOverlapProducesEmptyFlaggedTable(t *testing.T) {
	x := corpusWith(t, map[string]int{"alpha": 2}, 2)
	y := corpusWith(t, map[string]int{"beta": 3}, 3)

	result := compare.Corpora(x, y)
	assert.True(t, result.NoOverlap)
	assert.Empty(t, result.Rows)
	assert.Equal(t, 2, result.TotalX)
	assert.Equal(t, 3, result.TotalY)
}

func TestAntiSymmetryUnderSwap(t *testing.T) {
	x := corpusWith(t, map[string]int{"apple": 10, "pear": 4}, 100)
	y := corpusWith(t, map[string]int{"apple": 1, "pear": 6}, 50)

	forward := compare.Corpora(x, y)
	backward := compare.Corpora(y, x)

	for _, term := range []string{"apple", "pear", "pad"} {
		fwd := rowFor(t, forward.Rows, term)
		bwd := rowFor(t, backward.Rows, term)
		assert.InDelta(t, fwd.Over, 1/bwd.Over, 1e-9, "over(%s) must invert under swap", term)
		assert.InDelta(t, fwd.ChiSquare, bwd.ChiSquare, 1e-9, "chi-square(%s) must not change under swap", term)
	}
}

func TestChiSquareContingency(t *testing.T) {
	x := corpusWith(t, map[string]int{"apple": 10}, 100)
	y := corpusWith(t, map[string]int{"apple": 1}, 50)

	apple := rowFor(t, compare.Corpora(x, y).Rows, "apple")

	// N(ad-bc)^2 / ((a+b)(c+d)(a+c)(b+d)) over {10, 90, 1, 49}.
	a, b, c, d := 10.0, 90.0, 1.0, 49.0
	n := a + b + c + d
	want := n * (a*d - b*c) * (a*d - b*c) / ((a + b) * (c + d) * (a + c) * (b + d))
	assert.InDelta(t, want, apple.ChiSquare, 1e-9)
	assert.GreaterOrEqual(t, apple.ChiSquare, 0.0, "statistic is unsigned")
}

func TestSortByOverDeterministicTies(t *testing.T) {
	rows := []compare.Row{
		{Term: "b", Over: 2.0},
		{Term: "a", Over: 2.0},
		{Term: "c", Over: 5.0},
		{Term: "d", Over: 0.5},
	}

	compare.SortByOver(rows, true)
	assert.Equal(t, "c", rows[0].Term)
	assert.Equal(t, "a", rows[1].Term, "ties break on term ascending")
	assert.Equal(t, "b", rows[2].Term)
	assert.Equal(t, "d", rows[3].Term)

	compare.SortByOver(rows, false)
	assert.Equal(t, "d", rows[0].Term)
	assert.Equal(t, "c", rows[3].Term)
}

func TestResultIsSortedDescendingByDefault(t *testing.T) {
	x := corpusWith(t, map[string]int{"hot": 9, "cold": 1}, 20)
	y := corpusWith(t, map[string]int{"hot": 1, "cold": 9}, 20)

	result := compare.Corpora(x, y)
	for i := 1; i < len(result.Rows); i++ {
		prev, cur := result.Rows[i-1], result.Rows[i]
		ok := prev.Over > cur.Over || (prev.Over == cur.Over && prev.Term < cur.Term)
		assert.True(t, ok, "rows %d and %d out of order", i-1, i)
	}
}

func TestTopByChiSquare(t *testing.T) {
	var rows []compare.Row
	for i := 0; i < 100; i++ {
		rows = append(rows, compare.Row{
			Term:      fmt.Sprintf("term-%03d", i),
			ChiSquare: float64(i),
		})
	}

	top := compare.TopByChiSquare(rows, 5)
	require.Len(t, top, 5)
	assert.Equal(t, "term-099", top[0].Term)
	assert.Equal(t, "term-095", top[4].Term)
}

func TestInfiniteRatioMarshalsAsNull(t *testing.T) {
	x := corpusWith(t, map[string]int{"apple": 5, "quince": 3}, 20)
	y := corpusWith(t, map[string]int{"apple": 5}, 20)

	result := compare.Corpora(x, y)
	data, err := json.Marshal(result)
	require.NoError(t, err, "a one-sided term must not break serialization")

	var decoded struct {
		Rows []struct {
			Term string   `json:"term"`
			Over *float64 `json:"over"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, row := range decoded.Rows {
		switch row.Term {
		case "quince":
			assert.Nil(t, row.Over, "infinite ratio travels as null")
		case "apple":
			require.NotNil(t, row.Over)
			assert.InDelta(t, 1.0, *row.Over, 1e-12)
		}
	}
}

func TestRowJSONRoundTripRestoresInfinity(t *testing.T) {
	x := corpusWith(t, map[string]int{"apple": 5, "quince": 3}, 20)
	y := corpusWith(t, map[string]int{"apple": 5}, 20)

	original := compare.Corpora(x, y)
	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored compare.Result
	require.NoError(t, json.Unmarshal(data, &restored))
	require.Len(t, restored.Rows, len(original.Rows))

	quince := rowFor(t, restored.Rows, "quince")
	assert.True(t, math.IsInf(quince.Over, 1), "null decodes back to +Inf")
	apple := rowFor(t, restored.Rows, "apple")
	assert.InDelta(t, 1.0, apple.Over, 1e-12)
	assert.Equal(t, original.TotalX, restored.TotalX)
	assert.Equal(t, original.TotalY, restored.TotalY)
}

func TestTopByChiSquareTies(t *testing.T) {
	rows := []compare.Row{
		{Term: "z", ChiSquare: 1},
		{Term: "a", ChiSquare: 1},
		{Term: "m", ChiSquare: 1},
	}
	top := compare.TopByChiSquare(rows, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].Term)
	assert.Equal(t, "m", top[1].Term)
}
