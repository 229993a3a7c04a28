// Package benchmark contains Go benchmarks for the matrix builder, the term
// statistics engine, and the corpus comparator, measuring throughput and
// allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/eborbath/corpustat/internal/compare"
	"github.com/eborbath/corpustat/internal/dtm"
	"github.com/eborbath/corpustat/internal/termstats"
	"github.com/eborbath/corpustat/internal/vocab"
)

// syntheticEntries produces numDocs documents of docLen tokens over a
// vocabulary of vocabSize terms, cycling deterministically.
func syntheticEntries(numDocs, docLen, vocabSize int) []dtm.Entry {
	entries := make([]dtm.Entry, 0, numDocs*docLen)
	for d := 0; d < numDocs; d++ {
		docID := fmt.Sprintf("doc-%d", d)
		for i := 0; i < docLen; i++ {
			entries = append(entries, dtm.Entry{
				Doc:  docID,
				Term: fmt.Sprintf("term-%d", (d*31+i)%vocabSize),
			})
		}
	}
	return entries
}

func buildCorpus(b *testing.B, numDocs, docLen, vocabSize int) *dtm.DTM {
	b.Helper()
	m, err := dtm.Build(syntheticEntries(numDocs, docLen, vocabSize))
	if err != nil {
		b.Fatal(err)
	}
	return m
}

// BenchmarkBuild measures accumulation throughput for a 1000-document
// corpus.
func BenchmarkBuild(b *testing.B) {
	entries := syntheticEntries(1000, 100, 5000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dtm.Build(entries); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBuildParallel compares worker counts on the same input.
func BenchmarkBuildParallel(b *testing.B) {
	entries := syntheticEntries(1000, 100, 5000)
	for _, parallelism := range []int{2, 4, 8} {
		b.Run(fmt.Sprintf("workers-%d", parallelism), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := dtm.BuildParallel(context.Background(), entries, parallelism); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkTermStats measures the statistics pass over a built matrix.
func BenchmarkTermStats(b *testing.B) {
	m := buildCorpus(b, 1000, 100, 5000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = termstats.Compute(m)
	}
}

// BenchmarkVocabApply measures filter-and-project over a built matrix.
func BenchmarkVocabApply(b *testing.B) {
	m := buildCorpus(b, 1000, 100, 5000)
	cfg := vocab.Config{MinTermLength: 2, MinTermFreq: 5, MaxRelDocFreq: 0.5}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = vocab.Apply(m, cfg)
	}
}

// BenchmarkCompare measures the full two-corpus comparison.
func BenchmarkCompare(b *testing.B) {
	x := buildCorpus(b, 500, 100, 5000)
	y := buildCorpus(b, 500, 120, 4000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = compare.Corpora(x, y)
	}
}

// BenchmarkTopByChiSquare measures bounded top-N selection over a large
// comparison table.
func BenchmarkTopByChiSquare(b *testing.B) {
	x := buildCorpus(b, 500, 100, 5000)
	y := buildCorpus(b, 500, 120, 4000)
	rows := compare.Corpora(x, y).Rows
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = compare.TopByChiSquare(rows, 50)
	}
}
