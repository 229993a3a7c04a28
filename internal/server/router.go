package server

import (
	"net/http"
	"time"

	"github.com/eborbath/corpustat/pkg/health"
	"github.com/eborbath/corpustat/pkg/metrics"
	"github.com/eborbath/corpustat/pkg/middleware"
)

// NewRouter builds the analyzer HTTP handler with all routes and middleware.
//
// Route table:
//
//	GET    /api/v1/corpora               → list corpora
//	GET    /api/v1/corpora/{id}          → corpus summary
//	POST   /api/v1/corpora/{id}/seal     → seal corpus, build final matrix
//	GET    /api/v1/corpora/{id}/terms    → term statistics (filterable)
//	POST   /api/v1/corpora/{id}/topics   → fit seeded topic model
//	GET    /api/v1/compare               → overrepresentation table for x vs y
//	GET    /api/v1/cache/stats           → comparison cache statistics
//	POST   /api/v1/cache/invalidate      → flush comparison cache
//	GET    /health/live                  → liveness
//	GET    /health/ready                 → readiness (dependency checks)
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → handler
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/corpora", h.ListCorpora)
	mux.HandleFunc("GET /api/v1/corpora/{id}", h.GetCorpus)
	mux.HandleFunc("POST /api/v1/corpora/{id}/seal", h.SealCorpus)
	mux.HandleFunc("GET /api/v1/corpora/{id}/terms", h.TermStats)
	mux.HandleFunc("POST /api/v1/corpora/{id}/topics", h.FitTopics)

	mux.HandleFunc("GET /api/v1/compare", h.Compare)

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(requestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	return chain
}
