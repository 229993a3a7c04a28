// Package topics fits topic models over filtered document-term matrices and
// maps the fitted assignments back to document identifiers and term strings
// so callers can join them with externally held metadata.
package topics

import (
	"context"

	"github.com/eborbath/corpustat/internal/dtm"
)

// Model is the contract a topic-model implementation fulfils. The pipeline
// only prepares and filters the matrix handed in; everything about the
// fitting procedure belongs to the implementation.
type Model interface {
	Fit(ctx context.Context, m *dtm.DTM) (*Result, error)
}

// TermWeight is one term of a topic with its within-topic probability.
type TermWeight struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Result carries the fitted model mapped back onto the matrix's document
// and term identifiers.
type Result struct {
	NumTopics int `json:"num_topics"`
	// DocTopics holds the per-document topic distribution, keyed by
	// document identifier in the source matrix.
	DocTopics map[string][]float64 `json:"doc_topics"`
	// TopicTerms lists the highest-weight terms of each topic.
	TopicTerms [][]TermWeight `json:"topic_terms"`
	Seed       int64          `json:"seed"`
}

// DominantTopic returns the most probable topic for a document, or -1 when
// the document is unknown or carries no tokens.
func (r *Result) DominantTopic(docID string) int {
	theta, ok := r.DocTopics[docID]
	if !ok {
		return -1
	}
	best, bestWeight := -1, 0.0
	for k, w := range theta {
		if w > bestWeight {
			best, bestWeight = k, w
		}
	}
	return best
}
