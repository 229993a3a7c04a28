// Package ingest accumulates annotated token batches from Kafka into
// per-corpus matrix builders. Each corpus owns an independent builder;
// sealing a corpus freezes it into an immutable matrix and optionally
// writes a snapshot to disk.
package ingest

import (
	"log/slog"
	"sync"

	"github.com/eborbath/corpustat/internal/dtm"
	"github.com/eborbath/corpustat/internal/snapshot"
	"github.com/eborbath/corpustat/internal/tokens"
	"github.com/eborbath/corpustat/pkg/config"
	"github.com/eborbath/corpustat/pkg/errors"
	"github.com/eborbath/corpustat/pkg/metrics"
)

// CorpusInfo summarises one registered corpus.
type CorpusInfo struct {
	ID        string `json:"id"`
	Documents int    `json:"documents"`
	Terms     int    `json:"terms"`
	Tokens    int    `json:"tokens"`
	Sealed    bool   `json:"sealed"`
}

type corpusState struct {
	builder *dtm.Builder
	matrix  *dtm.DTM
	sealed  bool
}

// Registry maps corpus identifiers to their accumulating builders and
// frozen matrices.
type Registry struct {
	mu      sync.RWMutex
	corpora map[string]*corpusState
	cfg     config.AnalyzerConfig
	posKeep []string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRegistry creates an empty Registry. posKeep is the part-of-speech tag
// set retained before accumulation; empty keeps every token. m may be nil
// when metrics are disabled.
func NewRegistry(cfg config.AnalyzerConfig, posKeep []string, m *metrics.Metrics) *Registry {
	return &Registry{
		corpora: make(map[string]*corpusState),
		cfg:     cfg,
		posKeep: posKeep,
		metrics: m,
		logger:  slog.Default().With("component", "corpus-registry"),
	}
}

// AddBatch folds one document's tokens into the corpus builder. Sealed
// corpora reject further batches.
func (r *Registry) AddBatch(ev *tokens.BatchEvent) error {
	kept := tokens.FilterPOS(ev.Tokens, r.posKeep)

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.corpora[ev.CorpusID]
	if !ok {
		if r.cfg.MaxCorpora > 0 && len(r.corpora) >= r.cfg.MaxCorpora {
			return errors.Newf(errors.ErrInvalidInput, 400, "corpus limit reached (%d)", r.cfg.MaxCorpora)
		}
		state = &corpusState{builder: dtm.NewBuilder()}
		r.corpora[ev.CorpusID] = state
		r.logger.Info("corpus registered", "corpus_id", ev.CorpusID)
	}
	if state.sealed {
		return errors.Newf(errors.ErrCorpusSealed, 409, "corpus %s no longer accepts batches", ev.CorpusID)
	}

	state.builder.AddDoc(ev.DocID)
	for _, tok := range kept {
		state.builder.Add(ev.DocID, tok.Lemma)
	}
	if r.metrics != nil {
		r.metrics.TokensConsumedTotal.WithLabelValues(ev.CorpusID).Add(float64(len(kept)))
		r.metrics.DocumentsTotal.WithLabelValues(ev.CorpusID).Set(float64(state.builder.NumDocs()))
	}
	r.logger.Debug("batch accumulated",
		"corpus_id", ev.CorpusID,
		"doc_id", ev.DocID,
		"tokens_kept", len(kept),
		"tokens_dropped", len(ev.Tokens)-len(kept),
	)
	return nil
}

// Seal freezes the corpus into an immutable matrix. Subsequent batches are
// rejected; repeated seals return the already-built matrix.
func (r *Registry) Seal(corpusID string) (*dtm.DTM, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.corpora[corpusID]
	if !ok {
		return nil, errors.Newf(errors.ErrCorpusNotFound, 404, "unknown corpus %s", corpusID)
	}
	if state.sealed {
		return state.matrix, nil
	}
	m, err := state.builder.Build()
	if err != nil {
		if r.metrics != nil {
			r.metrics.CorpusBuildsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	state.matrix = m
	state.sealed = true
	if r.metrics != nil {
		r.metrics.CorpusBuildsTotal.WithLabelValues("ok").Inc()
		r.metrics.VocabularySize.WithLabelValues(corpusID).Set(float64(m.NumTerms()))
	}
	r.logger.Info("corpus sealed",
		"corpus_id", corpusID,
		"documents", m.NumDocs(),
		"terms", m.NumTerms(),
		"tokens", m.Total(),
	)

	if r.cfg.SnapshotOnSeal {
		name, err := snapshot.Write(r.cfg.DataDir, corpusID, m)
		if err != nil {
			if r.metrics != nil {
				r.metrics.SnapshotsTotal.WithLabelValues("error").Inc()
			}
			r.logger.Error("snapshot write failed", "corpus_id", corpusID, "error", err)
		} else {
			if r.metrics != nil {
				r.metrics.SnapshotsTotal.WithLabelValues("ok").Inc()
			}
			r.logger.Info("snapshot written", "corpus_id", corpusID, "file", name)
		}
	}
	return m, nil
}

// Matrix returns the corpus matrix. Sealed corpora return the frozen
// matrix; unsealed corpora build a point-in-time matrix from the current
// accumulation without sealing.
func (r *Registry) Matrix(corpusID string) (*dtm.DTM, error) {
	r.mu.RLock()
	state, ok := r.corpora[corpusID]
	if !ok {
		r.mu.RUnlock()
		return nil, errors.Newf(errors.ErrCorpusNotFound, 404, "unknown corpus %s", corpusID)
	}
	if state.sealed {
		m := state.matrix
		r.mu.RUnlock()
		return m, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok = r.corpora[corpusID]
	if !ok {
		return nil, errors.Newf(errors.ErrCorpusNotFound, 404, "unknown corpus %s", corpusID)
	}
	if state.sealed {
		return state.matrix, nil
	}
	return state.builder.Build()
}

// List returns a summary of every registered corpus.
func (r *Registry) List() []CorpusInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CorpusInfo, 0, len(r.corpora))
	for id, state := range r.corpora {
		info := CorpusInfo{
			ID:     id,
			Sealed: state.sealed,
		}
		if state.sealed {
			info.Documents = state.matrix.NumDocs()
			info.Terms = state.matrix.NumTerms()
			info.Tokens = state.matrix.Total()
		} else {
			info.Documents = state.builder.NumDocs()
			info.Terms = state.builder.NumTerms()
			info.Tokens = state.builder.Pairs()
		}
		out = append(out, info)
	}
	return out
}

// Restore registers an already-built matrix under corpusID as a sealed
// corpus, typically loaded from a snapshot at startup.
func (r *Registry) Restore(corpusID string, m *dtm.DTM) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.corpora[corpusID]; ok {
		return errors.Newf(errors.ErrCorpusExists, 409, "corpus %s already registered", corpusID)
	}
	r.corpora[corpusID] = &corpusState{matrix: m, sealed: true}
	if r.metrics != nil {
		r.metrics.DocumentsTotal.WithLabelValues(corpusID).Set(float64(m.NumDocs()))
		r.metrics.VocabularySize.WithLabelValues(corpusID).Set(float64(m.NumTerms()))
	}
	r.logger.Info("corpus restored", "corpus_id", corpusID, "documents", m.NumDocs())
	return nil
}
