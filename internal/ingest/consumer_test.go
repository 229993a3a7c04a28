package ingest_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eborbath/corpustat/internal/ingest"
	"github.com/eborbath/corpustat/internal/tokens"
	"github.com/eborbath/corpustat/pkg/config"
)

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHandleBatchAccumulatesValidEvents(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})
	handle := ingest.HandleBatch(r)

	ev := tokens.BatchEvent{
		CorpusID:   "press",
		DocID:      "d1",
		Tokens:     []tokens.Token{{DocID: "d1", Lemma: "bird"}},
		ReceivedAt: time.Now().UTC(),
	}
	require.NoError(t, handle(context.Background(), []byte("press"), encode(t, ev)))

	m, err := r.Matrix("press")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count("d1", "bird"))
}

func TestHandleBatchSkipsMalformedPayloads(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})
	handle := ingest.HandleBatch(r)

	// Poison messages are dropped, not redelivered forever.
	assert.NoError(t, handle(context.Background(), nil, []byte("{not json")))
	assert.Empty(t, r.List())
}

func TestHandleBatchSkipsInvalidBatches(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})
	handle := ingest.HandleBatch(r)

	ev := tokens.BatchEvent{CorpusID: "", DocID: "d1"}
	assert.NoError(t, handle(context.Background(), nil, encode(t, ev)))
	assert.Empty(t, r.List())
}

func TestHandleSealSealsCorpus(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})
	require.NoError(t, r.AddBatch(batch("press", "d1", "bird")))

	handle := ingest.HandleSeal(r)
	ev := tokens.SealEvent{CorpusID: "press", SealedAt: time.Now().UTC()}
	require.NoError(t, handle(context.Background(), []byte("press"), encode(t, ev)))

	infos := r.List()
	require.Len(t, infos, 1)
	assert.True(t, infos[0].Sealed)
}

func TestHandleSealUnknownCorpusIsSkipped(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})
	handle := ingest.HandleSeal(r)

	ev := tokens.SealEvent{CorpusID: "ghost"}
	assert.NoError(t, handle(context.Background(), nil, encode(t, ev)))
}
