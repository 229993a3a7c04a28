// Package server exposes the analyzer HTTP API: corpus listing and sealing,
// term statistics with vocabulary filtering, corpus comparison, and topic
// model fitting over sealed matrices.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/eborbath/corpustat/internal/cache"
	"github.com/eborbath/corpustat/internal/compare"
	"github.com/eborbath/corpustat/internal/ingest"
	"github.com/eborbath/corpustat/internal/store"
	"github.com/eborbath/corpustat/internal/termstats"
	"github.com/eborbath/corpustat/internal/topics"
	"github.com/eborbath/corpustat/internal/vocab"
	"github.com/eborbath/corpustat/pkg/config"
	pkgerrors "github.com/eborbath/corpustat/pkg/errors"
	"github.com/eborbath/corpustat/pkg/logger"
	"github.com/eborbath/corpustat/pkg/metrics"
)

type Handler struct {
	registry *ingest.Registry
	cache    *cache.ComparisonCache
	store    *store.Store
	metrics  *metrics.Metrics
	cfg      config.CompareConfig
	logger   *slog.Logger
}

func New(registry *ingest.Registry, comparisonCache *cache.ComparisonCache, st *store.Store, m *metrics.Metrics, cfg config.CompareConfig) *Handler {
	return &Handler{
		registry: registry,
		cache:    comparisonCache,
		store:    st,
		metrics:  m,
		cfg:      cfg,
		logger:   slog.Default().With("component", "analyzer-handler"),
	}
}

// ListCorpora returns the summary of every registered corpus.
func (h *Handler) ListCorpora(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"corpora": h.registry.List(),
	})
}

// GetCorpus returns the summary of a single corpus.
func (h *Handler) GetCorpus(w http.ResponseWriter, r *http.Request) {
	corpusID := r.PathValue("id")
	for _, info := range h.registry.List() {
		if info.ID == corpusID {
			h.writeJSON(w, http.StatusOK, info)
			return
		}
	}
	h.writeAppError(w, pkgerrors.Newf(pkgerrors.ErrCorpusNotFound, http.StatusNotFound,
		"corpus %s not found", corpusID))
}

// SealCorpus freezes a corpus, builds its final matrix, and persists the
// summary and term statistics when a store is configured.
func (h *Handler) SealCorpus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	corpusID := r.PathValue("id")

	m, err := h.registry.Seal(corpusID)
	if err != nil {
		log.Warn("seal failed", "corpus", corpusID, "error", err)
		h.writeAppError(w, err)
		return
	}

	if h.store != nil {
		stats := termstats.Compute(m)
		for _, info := range h.registry.List() {
			if info.ID != corpusID {
				continue
			}
			if err := h.store.SaveCorpus(ctx, info); err != nil {
				log.Error("persisting corpus summary failed", "corpus", corpusID, "error", err)
			}
		}
		if err := h.store.SaveTermStats(ctx, corpusID, stats); err != nil {
			log.Error("persisting term stats failed", "corpus", corpusID, "error", err)
		}
	}

	log.Info("corpus sealed",
		"corpus", corpusID,
		"documents", m.NumDocs(),
		"terms", m.NumTerms(),
		"tokens", m.Total(),
	)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"corpus":    corpusID,
		"documents": m.NumDocs(),
		"terms":     m.NumTerms(),
		"tokens":    m.Total(),
		"sealed":    true,
	})
}

// TermStats returns the statistics table of a corpus. Filter thresholds are
// taken from the query string; absent parameters leave the matching
// predicate disabled.
func (h *Handler) TermStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	corpusID := r.PathValue("id")

	filter, err := parseFilter(r.URL.Query(), vocab.Config{})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r.URL.Query(), 0, h.cfg.MaxResults)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.registry.Matrix(corpusID)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	stats := termstats.Compute(m)
	total := len(stats)
	filtered := stats[:0:0]
	for _, s := range stats {
		if filter.Keep(s) {
			filtered = append(filtered, s)
		}
	}
	termstats.SortByFrequency(filtered)
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	if filtered == nil {
		filtered = []termstats.Stats{}
	}

	log.Debug("term stats served",
		"corpus", corpusID,
		"total_terms", total,
		"returned", len(filtered),
	)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"corpus":      corpusID,
		"total_terms": total,
		"returned":    len(filtered),
		"terms":       filtered,
	})
}

// Compare computes the overrepresentation table of corpus x against corpus y.
// Both matrices are vocabulary-filtered with the configured defaults before
// comparison; query parameters override individual thresholds.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	q := r.URL.Query()

	corpusX := q.Get("x")
	corpusY := q.Get("y")
	if corpusX == "" || corpusY == "" {
		h.writeError(w, http.StatusBadRequest, "query parameters 'x' and 'y' are required")
		return
	}

	filter, err := parseFilter(q, h.defaultFilter())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(q, h.cfg.DefaultLimit, h.cfg.MaxResults)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ascending := q.Get("order") == "asc"
	byChi := q.Get("rank") == "chi_square"

	compute := func() (*compare.Result, error) {
		mx, err := h.registry.Matrix(corpusX)
		if err != nil {
			return nil, err
		}
		my, err := h.registry.Matrix(corpusY)
		if err != nil {
			return nil, err
		}
		return compare.Corpora(vocab.Apply(mx, filter), vocab.Apply(my, filter)), nil
	}

	var result *compare.Result
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, corpusX, corpusY, filter, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("comparison failed", "corpus_x", corpusX, "corpus_y", corpusY, "error", err)
		h.writeAppError(w, err)
		return
	}

	rows := result.Rows
	if byChi {
		rows = compare.TopByChiSquare(rows, limit)
	} else {
		rows = append([]compare.Row(nil), rows...)
		compare.SortByOver(rows, !ascending)
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
	}
	if rows == nil {
		rows = []compare.Row{}
	}

	if h.metrics != nil {
		resultType := "ok"
		if result.NoOverlap {
			resultType = "no_overlap"
		}
		h.metrics.ComparisonsTotal.WithLabelValues(resultType).Inc()
		h.metrics.ComparisonLatency.Observe(time.Since(start).Seconds())
	}
	if h.store != nil && !cacheHit && !result.NoOverlap {
		if err := h.store.SaveComparison(ctx, corpusX, corpusY, result); err != nil {
			log.Error("persisting comparison failed", "corpus_x", corpusX, "corpus_y", corpusY, "error", err)
		}
	}

	log.Info("comparison completed",
		"corpus_x", corpusX,
		"corpus_y", corpusY,
		"shared_terms", len(result.Rows),
		"returned", len(rows),
		"no_overlap", result.NoOverlap,
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"corpus_x":   corpusX,
		"corpus_y":   corpusY,
		"total_x":    result.TotalX,
		"total_y":    result.TotalY,
		"no_overlap": result.NoOverlap,
		"returned":   len(rows),
		"rows":       rows,
	})
}

type topicsRequest struct {
	Topics     int   `json:"topics"`
	Iterations int   `json:"iterations"`
	Seed       int64 `json:"seed"`
}

// FitTopics runs the seeded topic model over a corpus matrix after applying
// the configured vocabulary filter.
func (h *Handler) FitTopics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	corpusID := r.PathValue("id")

	req := topicsRequest{Topics: 10, Iterations: 200, Seed: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Topics < 2 {
		h.writeError(w, http.StatusBadRequest, "topics must be at least 2")
		return
	}
	if req.Iterations < 1 {
		h.writeError(w, http.StatusBadRequest, "iterations must be positive")
		return
	}

	m, err := h.registry.Matrix(corpusID)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	m = vocab.Apply(m, h.defaultFilter())

	model := topics.NewLDA(req.Topics, req.Iterations, req.Seed)
	result, err := model.Fit(ctx, m)
	if err != nil {
		log.Error("topic fit failed", "corpus", corpusID, "topics", req.Topics, "error", err)
		h.writeAppError(w, err)
		return
	}

	log.Info("topic model fitted",
		"corpus", corpusID,
		"topics", req.Topics,
		"iterations", req.Iterations,
		"seed", req.Seed,
	)
	h.writeJSON(w, http.StatusOK, result)
}

// CacheStats reports comparison cache hit statistics.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate flushes all cached comparison tables.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) defaultFilter() vocab.Config {
	return vocab.Config{
		MinTermLength: h.cfg.MinTermLength,
		MinTermFreq:   h.cfg.MinTermFreq,
		MaxRelDocFreq: h.cfg.MaxRelDocFreq,
		DropDigits:    h.cfg.DropDigits,
		DropSymbols:   h.cfg.DropSymbols,
	}
}

func parseFilter(q url.Values, base vocab.Config) (vocab.Config, error) {
	cfg := base
	if v := q.Get("min_length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("min_length must be a non-negative integer")
		}
		cfg.MinTermLength = n
	}
	if v := q.Get("min_freq"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("min_freq must be a non-negative integer")
		}
		cfg.MinTermFreq = n
	}
	if v := q.Get("max_rel_docfreq"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return cfg, fmt.Errorf("max_rel_docfreq must be a number between 0 and 1")
		}
		cfg.MaxRelDocFreq = f
	}
	if v := q.Get("drop_digits"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("drop_digits must be a boolean")
		}
		cfg.DropDigits = b
	}
	if v := q.Get("drop_symbols"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("drop_symbols must be a boolean")
		}
		cfg.DropSymbols = b
	}
	return cfg, nil
}

func parseLimit(q url.Values, def, max int) (int, error) {
	limit := def
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, fmt.Errorf("limit must be a positive integer")
		}
		limit = n
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := pkgerrors.HTTPStatusCode(err)
	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		h.writeError(w, status, appErr.Message)
		return
	}
	h.writeError(w, status, err.Error())
}
