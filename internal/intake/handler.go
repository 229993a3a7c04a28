package intake

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/eborbath/corpustat/internal/tokens"
	apperrors "github.com/eborbath/corpustat/pkg/errors"
	"github.com/eborbath/corpustat/pkg/logger"
)

type Handler struct {
	publisher *Publisher
	logger    *slog.Logger
}

func NewHandler(pub *Publisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "intake-handler"),
	}
}

// IngestBatch accepts one document's annotated tokens for a corpus.
func (h *Handler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	corpusID := r.PathValue("id")

	var ev tokens.BatchEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev.CorpusID = corpusID

	if err := tokens.ValidateBatch(&ev); err != nil {
		var validationErr *tokens.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.publisher.PublishBatch(ctx, &ev); err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("batch intake failed",
			"corpus", corpusID,
			"doc", ev.DocID,
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "intake failed")
		return
	}

	log.Info("batch accepted",
		"corpus", corpusID,
		"doc", ev.DocID,
		"tokens", len(ev.Tokens),
	)
	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"corpus": corpusID,
		"doc":    ev.DocID,
		"tokens": len(ev.Tokens),
		"status": "accepted",
	})
}

// SealCorpus publishes the seal marker that freezes a corpus downstream.
func (h *Handler) SealCorpus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	corpusID := r.PathValue("id")
	if corpusID == "" {
		h.writeError(w, http.StatusBadRequest, "corpus id is required")
		return
	}

	if err := h.publisher.PublishSeal(ctx, corpusID); err != nil {
		log.Error("seal intake failed", "corpus", corpusID, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "seal failed")
		return
	}

	log.Info("seal published", "corpus", corpusID)
	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"corpus": corpusID,
		"status": "sealing",
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
