package ingest_test

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eborbath/corpustat/internal/dtm"
	"github.com/eborbath/corpustat/internal/ingest"
	"github.com/eborbath/corpustat/internal/tokens"
	"github.com/eborbath/corpustat/pkg/config"
	apperrors "github.com/eborbath/corpustat/pkg/errors"
)

func newRegistry(t *testing.T, cfg config.AnalyzerConfig) *ingest.Registry {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	return ingest.NewRegistry(cfg, nil, nil)
}

func batch(corpus, doc string, lemmas ...string) *tokens.BatchEvent {
	ev := &tokens.BatchEvent{CorpusID: corpus, DocID: doc}
	for _, lemma := range lemmas {
		ev.Tokens = append(ev.Tokens, tokens.Token{DocID: doc, Lemma: lemma})
	}
	return ev
}

func TestAddBatchAccumulates(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})

	require.NoError(t, r.AddBatch(batch("press", "d1", "chicken", "bird")))
	require.NoError(t, r.AddBatch(batch("press", "d2", "bird", "eat", "eat")))

	m, err := r.Matrix("press")
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumDocs())
	assert.Equal(t, 5, m.Total())
	assert.Equal(t, 2, m.Count("d2", "eat"))
}

func TestAddBatchAppliesPOSFilter(t *testing.T) {
	r := ingest.NewRegistry(config.AnalyzerConfig{DataDir: t.TempDir()}, tokens.ContentPOS, nil)

	ev := &tokens.BatchEvent{
		CorpusID: "press",
		DocID:    "d1",
		Tokens: []tokens.Token{
			{DocID: "d1", Lemma: "government", POS: tokens.POSNoun},
			{DocID: "d1", Lemma: "the", POS: "DET"},
		},
	}
	require.NoError(t, r.AddBatch(ev))

	m, err := r.Matrix("press")
	require.NoError(t, err)
	assert.True(t, m.HasTerm("government"))
	assert.False(t, m.HasTerm("the"))
}

func TestSealFreezesCorpus(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})
	require.NoError(t, r.AddBatch(batch("press", "d1", "bird")))

	m, err := r.Seal("press")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Total())

	err = r.AddBatch(batch("press", "d2", "eat"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCorpusSealed))

	again, err := r.Seal("press")
	require.NoError(t, err)
	assert.Same(t, m, again, "repeated seals return the frozen matrix")
}

func TestSealUnknownCorpus(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})
	_, err := r.Seal("ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCorpusNotFound))
}

func TestMatrixOnUnsealedCorpusIsPointInTime(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})
	require.NoError(t, r.AddBatch(batch("press", "d1", "bird")))

	before, err := r.Matrix("press")
	require.NoError(t, err)

	require.NoError(t, r.AddBatch(batch("press", "d2", "eat")))
	after, err := r.Matrix("press")
	require.NoError(t, err)

	assert.Equal(t, 1, before.Total())
	assert.Equal(t, 2, after.Total())
}

func TestMaxCorporaLimit(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{MaxCorpora: 1})
	require.NoError(t, r.AddBatch(batch("first", "d1", "x")))

	err := r.AddBatch(batch("second", "d1", "x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestListSummaries(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})
	require.NoError(t, r.AddBatch(batch("press", "d1", "bird", "bird")))
	_, err := r.Seal("press")
	require.NoError(t, err)
	require.NoError(t, r.AddBatch(batch("tv", "d1", "eat")))

	infos := r.List()
	require.Len(t, infos, 2)
	byID := make(map[string]ingest.CorpusInfo, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}

	assert.True(t, byID["press"].Sealed)
	assert.Equal(t, 2, byID["press"].Tokens)
	assert.Equal(t, 1, byID["press"].Terms)
	assert.False(t, byID["tv"].Sealed)
	assert.Equal(t, 1, byID["tv"].Tokens)
}

func TestRestore(t *testing.T) {
	r := newRegistry(t, config.AnalyzerConfig{})
	m, err := dtm.Build([]dtm.Entry{{Doc: "d1", Term: "bird"}})
	require.NoError(t, err)

	require.NoError(t, r.Restore("press", m))

	got, err := r.Matrix("press")
	require.NoError(t, err)
	assert.Same(t, m, got)

	err = r.Restore("press", m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCorpusExists))

	err = r.AddBatch(batch("press", "d2", "eat"))
	assert.True(t, errors.Is(err, apperrors.ErrCorpusSealed))
}

func TestSealWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	r := newRegistry(t, config.AnalyzerConfig{DataDir: dir, SnapshotOnSeal: true})
	require.NoError(t, r.AddBatch(batch("press", "d1", "bird")))

	_, err := r.Seal("press")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "press_")
}
