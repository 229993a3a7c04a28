package tokens_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eborbath/corpustat/internal/dtm"
	"github.com/eborbath/corpustat/internal/tokens"
)

func TestFilterPOS(t *testing.T) {
	toks := []tokens.Token{
		{DocID: "d1", Lemma: "government", POS: tokens.POSNoun},
		{DocID: "d1", Lemma: "quickly", POS: tokens.POSAdverb},
		{DocID: "d1", Lemma: "decide", POS: tokens.POSVerb},
		{DocID: "d1", Lemma: "the", POS: "DET"},
	}

	kept := tokens.FilterPOS(toks, tokens.ContentPOS)
	require.Len(t, kept, 2)
	assert.Equal(t, "government", kept[0].Lemma)
	assert.Equal(t, "decide", kept[1].Lemma)
}

func TestFilterPOSEmptyKeepSetRetainsAll(t *testing.T) {
	toks := []tokens.Token{
		{DocID: "d1", Lemma: "a", POS: "DET"},
		{DocID: "d1", Lemma: "b"},
	}
	assert.Len(t, tokens.FilterPOS(toks, nil), 2)
}

func TestEntriesDropTags(t *testing.T) {
	toks := []tokens.Token{
		{DocID: "d1", Lemma: "bird", POS: tokens.POSNoun},
		{DocID: "d2", Lemma: "eat", POS: tokens.POSVerb},
	}
	entries := tokens.Entries(toks)
	assert.Equal(t, []dtm.Entry{
		{Doc: "d1", Term: "bird"},
		{Doc: "d2", Term: "eat"},
	}, entries)
}

func TestValidateBatchOK(t *testing.T) {
	ev := &tokens.BatchEvent{
		CorpusID: "press-2020",
		DocID:    "article-1",
		Tokens:   []tokens.Token{{DocID: "article-1", Lemma: "bird"}},
	}
	assert.NoError(t, tokens.ValidateBatch(ev))
}

func TestValidateBatchCollectsFieldErrors(t *testing.T) {
	ev := &tokens.BatchEvent{CorpusID: "  ", DocID: ""}
	err := tokens.ValidateBatch(ev)
	require.Error(t, err)

	var validationErr *tokens.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "corpus_id")
	assert.Contains(t, validationErr.Fields, "doc_id")
	assert.Contains(t, validationErr.Fields, "tokens")
}

func TestValidateBatchRejectsEmptyLemma(t *testing.T) {
	ev := &tokens.BatchEvent{
		CorpusID: "c",
		DocID:    "d",
		Tokens:   []tokens.Token{{DocID: "d", Lemma: ""}},
	}
	err := tokens.ValidateBatch(ev)
	require.Error(t, err)

	var validationErr *tokens.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "tokens[0].lemma")
}

func TestValidateBatchRejectsOverlongIdentifiers(t *testing.T) {
	ev := &tokens.BatchEvent{
		CorpusID: strings.Repeat("c", 256),
		DocID:    "d",
		Tokens:   []tokens.Token{{DocID: "d", Lemma: "x"}},
	}
	err := tokens.ValidateBatch(ev)
	require.Error(t, err)

	var validationErr *tokens.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "corpus_id")
}
