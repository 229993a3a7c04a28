package intake_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eborbath/corpustat/internal/intake"
	"github.com/eborbath/corpustat/internal/tokens"
	"github.com/eborbath/corpustat/pkg/kafka"
)

// sink collects published events in memory, standing in for a broker.
type sink struct {
	events []kafka.Event
	err    error
}

func (s *sink) Publish(_ context.Context, events ...kafka.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, events...)
	return nil
}

func batchEvent() *tokens.BatchEvent {
	return &tokens.BatchEvent{
		CorpusID: "press",
		DocID:    "d1",
		Tokens: []tokens.Token{
			{DocID: "d1", Lemma: "chicken", POS: tokens.POSNoun},
			{DocID: "d1", Lemma: "bird", POS: tokens.POSNoun},
		},
	}
}

func TestPublishBatchKeysByCorpus(t *testing.T) {
	batches := &sink{}
	pub := intake.NewPublisher(batches, &sink{}, nil)

	require.NoError(t, pub.PublishBatch(context.Background(), batchEvent()))
	require.Len(t, batches.events, 1)

	ev := batches.events[0]
	assert.Equal(t, "press", ev.Key, "batches of a corpus share a partition key")

	// The producer owns the JSON encoding, so the published value must
	// decode as the event object on the consumer side.
	value, err := json.Marshal(ev.Value)
	require.NoError(t, err)
	decoded, err := kafka.DecodeJSON[tokens.BatchEvent](value)
	require.NoError(t, err)
	assert.Equal(t, "press", decoded.CorpusID)
	assert.Equal(t, "d1", decoded.DocID)
	require.Len(t, decoded.Tokens, 2)
	assert.Equal(t, "chicken", decoded.Tokens[0].Lemma)
	assert.False(t, decoded.ReceivedAt.IsZero(), "publish stamps the receipt time")
}

func TestPublishBatchStampsReceivedAt(t *testing.T) {
	pub := intake.NewPublisher(&sink{}, &sink{}, nil)
	ev := batchEvent()

	before := time.Now().UTC()
	require.NoError(t, pub.PublishBatch(context.Background(), ev))
	assert.False(t, ev.ReceivedAt.Before(before))
}

func TestPublishBatchPropagatesProducerError(t *testing.T) {
	broken := &sink{err: errors.New("broker unreachable")}
	pub := intake.NewPublisher(broken, &sink{}, nil)

	err := pub.PublishBatch(context.Background(), batchEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
}

func TestPublishSeal(t *testing.T) {
	seals := &sink{}
	pub := intake.NewPublisher(&sink{}, seals, nil)

	require.NoError(t, pub.PublishSeal(context.Background(), "press"))
	require.Len(t, seals.events, 1)
	assert.Equal(t, "press", seals.events[0].Key)

	value, err := json.Marshal(seals.events[0].Value)
	require.NoError(t, err)
	decoded, err := kafka.DecodeJSON[tokens.SealEvent](value)
	require.NoError(t, err)
	assert.Equal(t, "press", decoded.CorpusID)
	assert.False(t, decoded.SealedAt.IsZero())
}

func newTestHandler(batches, seals *sink) *intake.Handler {
	return intake.NewHandler(intake.NewPublisher(batches, seals, nil))
}

func ingestRequest(corpusID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpora/"+corpusID+"/documents", strings.NewReader(body))
	req.SetPathValue("id", corpusID)
	return req
}

func TestIngestBatchAccepted(t *testing.T) {
	batches := &sink{}
	h := newTestHandler(batches, &sink{})

	body := `{"doc_id":"d2","tokens":[{"doc_id":"d2","lemma":"bird","pos":"NOUN"},{"doc_id":"d2","lemma":"eat","pos":"VERB"}]}`
	rec := httptest.NewRecorder()
	h.IngestBatch(rec, ingestRequest("press", body))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.Equal(t, "press", resp["corpus"])
	assert.EqualValues(t, 2, resp["tokens"])

	require.Len(t, batches.events, 1)
	published, ok := batches.events[0].Value.(*tokens.BatchEvent)
	require.True(t, ok)
	assert.Equal(t, "press", published.CorpusID, "path corpus overrides any body value")
	assert.Equal(t, "d2", published.DocID)
}

func TestIngestBatchRejectsMalformedJSON(t *testing.T) {
	batches := &sink{}
	h := newTestHandler(batches, &sink{})

	rec := httptest.NewRecorder()
	h.IngestBatch(rec, ingestRequest("press", "{not json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, batches.events, "nothing reaches the broker")
}

func TestIngestBatchReportsValidationFields(t *testing.T) {
	batches := &sink{}
	h := newTestHandler(batches, &sink{})

	rec := httptest.NewRecorder()
	h.IngestBatch(rec, ingestRequest("press", `{"doc_id":"","tokens":[]}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "validation failed", resp.Error)
	assert.Contains(t, resp.Fields, "doc_id")
	assert.Contains(t, resp.Fields, "tokens")
	assert.Empty(t, batches.events)
}

func TestSealCorpusAccepted(t *testing.T) {
	seals := &sink{}
	h := newTestHandler(&sink{}, seals)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpora/press/seal", nil)
	req.SetPathValue("id", "press")
	rec := httptest.NewRecorder()
	h.SealCorpus(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "sealing", resp["status"])
	require.Len(t, seals.events, 1)
	assert.Equal(t, "press", seals.events[0].Key)
}

func TestSealCorpusRequiresID(t *testing.T) {
	h := newTestHandler(&sink{}, &sink{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpora//seal", nil)
	rec := httptest.NewRecorder()
	h.SealCorpus(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
