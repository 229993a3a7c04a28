package topics

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/eborbath/corpustat/internal/dtm"
	"github.com/eborbath/corpustat/pkg/errors"
)

// LDA fits latent Dirichlet allocation by collapsed Gibbs sampling. The
// sampler is fully determined by Seed, so repeated fits over the same
// matrix reproduce identical assignments.
type LDA struct {
	K          int
	Iterations int
	Alpha      float64
	Beta       float64
	Seed       int64
	TopTerms   int

	logger *slog.Logger
}

// NewLDA creates an LDA sampler with k topics and the given seed. Alpha and
// Beta default to 50/k and 0.01, the usual symmetric priors.
func NewLDA(k int, iterations int, seed int64) *LDA {
	return &LDA{
		K:          k,
		Iterations: iterations,
		Alpha:      50.0 / float64(k),
		Beta:       0.01,
		Seed:       seed,
		TopTerms:   10,
		logger:     slog.Default().With("component", "lda"),
	}
}

// Fit runs the sampler over the matrix and returns the topic distributions
// mapped back to document identifiers and term strings.
func (l *LDA) Fit(ctx context.Context, m *dtm.DTM) (*Result, error) {
	if l.K < 2 {
		return nil, errors.Newf(errors.ErrInvalidInput, 400, "topic count must be at least 2, got %d", l.K)
	}
	if m.Total() == 0 || m.NumTerms() == 0 {
		return nil, errors.New(errors.ErrInvalidInput, 400, "cannot fit a topic model on an empty matrix")
	}

	docs := m.Docs()
	terms := m.Terms()
	numTerms := len(terms)
	rng := rand.New(rand.NewSource(l.Seed))

	// Expand cells into individual token slots, one per occurrence. The
	// deterministic cell order plus the seeded RNG makes the whole fit
	// reproducible.
	docIdx := make(map[string]int, len(docs))
	for d, docID := range docs {
		docIdx[docID] = d
	}
	termIdx := make(map[string]int, numTerms)
	for t, term := range terms {
		termIdx[term] = t
	}
	type slot struct{ doc, term int }
	slots := make([]slot, 0, m.Total())
	m.EachCell(func(docID, term string, count int) {
		for i := 0; i < count; i++ {
			slots = append(slots, slot{doc: docIdx[docID], term: termIdx[term]})
		}
	})

	assignments := make([]int, len(slots))
	docTopic := make([][]int, len(docs))
	for d := range docTopic {
		docTopic[d] = make([]int, l.K)
	}
	topicTerm := make([][]int, l.K)
	topicTotal := make([]int, l.K)
	for k := 0; k < l.K; k++ {
		topicTerm[k] = make([]int, numTerms)
	}
	for i, s := range slots {
		k := rng.Intn(l.K)
		assignments[i] = k
		docTopic[s.doc][k]++
		topicTerm[k][s.term]++
		topicTotal[k]++
	}

	weights := make([]float64, l.K)
	vBeta := float64(numTerms) * l.Beta
	for iter := 0; iter < l.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, s := range slots {
			k := assignments[i]
			docTopic[s.doc][k]--
			topicTerm[k][s.term]--
			topicTotal[k]--

			var sum float64
			for j := 0; j < l.K; j++ {
				w := (float64(docTopic[s.doc][j]) + l.Alpha) *
					(float64(topicTerm[j][s.term]) + l.Beta) /
					(float64(topicTotal[j]) + vBeta)
				sum += w
				weights[j] = sum
			}
			target := rng.Float64() * sum
			next := sort.SearchFloat64s(weights, target)
			if next >= l.K {
				next = l.K - 1
			}

			assignments[i] = next
			docTopic[s.doc][next]++
			topicTerm[next][s.term]++
			topicTotal[next]++
		}
	}
	l.logger.Debug("sampling finished",
		"topics", l.K,
		"iterations", l.Iterations,
		"tokens", len(slots),
	)

	return l.buildResult(docs, terms, docTopic, topicTerm, topicTotal), nil
}

func (l *LDA) buildResult(docs, terms []string, docTopic, topicTerm [][]int, topicTotal []int) *Result {
	res := &Result{
		NumTopics:  l.K,
		DocTopics:  make(map[string][]float64, len(docs)),
		TopicTerms: make([][]TermWeight, l.K),
		Seed:       l.Seed,
	}
	kAlpha := float64(l.K) * l.Alpha
	for d, docID := range docs {
		total := 0
		for _, c := range docTopic[d] {
			total += c
		}
		theta := make([]float64, l.K)
		for k, c := range docTopic[d] {
			theta[k] = (float64(c) + l.Alpha) / (float64(total) + kAlpha)
		}
		res.DocTopics[docID] = theta
	}

	vBeta := float64(len(terms)) * l.Beta
	for k := 0; k < l.K; k++ {
		ranked := make([]TermWeight, 0, len(terms))
		for t, c := range topicTerm[k] {
			if c == 0 {
				continue
			}
			ranked = append(ranked, TermWeight{
				Term:   terms[t],
				Weight: (float64(c) + l.Beta) / (float64(topicTotal[k]) + vBeta),
			})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].Weight != ranked[j].Weight {
				return ranked[i].Weight > ranked[j].Weight
			}
			return ranked[i].Term < ranked[j].Term
		})
		if len(ranked) > l.TopTerms {
			ranked = ranked[:l.TopTerms]
		}
		res.TopicTerms[k] = ranked
	}
	return res
}
