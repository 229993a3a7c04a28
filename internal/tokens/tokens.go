// Package tokens defines the annotated token records consumed by the matrix
// builder and the Kafka event schemas used by the ingestion pipeline.
// Tokenisation and lemmatisation happen in an external annotation
// collaborator; this package only carries its output.
package tokens

import (
	"time"

	"github.com/eborbath/corpustat/internal/dtm"
)

// Token is one annotated token record: the document it came from, the lemma
// (or surface) string, and an optional part-of-speech tag.
type Token struct {
	DocID string `json:"doc_id"`
	Lemma string `json:"lemma"`
	POS   string `json:"pos,omitempty"`
}

// Common part-of-speech tags emitted by annotation collaborators. Content
// analysis usually retains nouns, proper names, verbs, and adjectives.
const (
	POSNoun      = "NOUN"
	POSProperN   = "PROPN"
	POSVerb      = "VERB"
	POSAdjective = "ADJ"
	POSAdverb    = "ADV"
)

// ContentPOS is the default retained tag set for content analysis.
var ContentPOS = []string{POSNoun, POSProperN, POSVerb, POSAdjective}

// FilterPOS returns the tokens whose tag is in keep. An empty keep set
// retains everything, including untagged tokens. POS filtering is the
// caller's responsibility and must run before matrix construction.
func FilterPOS(toks []Token, keep []string) []Token {
	if len(keep) == 0 {
		return toks
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, tag := range keep {
		keepSet[tag] = struct{}{}
	}
	out := make([]Token, 0, len(toks))
	for _, tok := range toks {
		if _, ok := keepSet[tok.POS]; ok {
			out = append(out, tok)
		}
	}
	return out
}

// Entries converts tokens into builder entries, discarding the tag.
func Entries(toks []Token) []dtm.Entry {
	out := make([]dtm.Entry, 0, len(toks))
	for _, tok := range toks {
		out = append(out, dtm.Entry{Doc: tok.DocID, Term: tok.Lemma})
	}
	return out
}

// BatchEvent is the Kafka message payload carrying one document's annotated
// tokens into a corpus.
type BatchEvent struct {
	CorpusID   string    `json:"corpus_id"`
	DocID      string    `json:"doc_id"`
	Tokens     []Token   `json:"tokens"`
	ReceivedAt time.Time `json:"received_at"`
}

// SealEvent announces that a corpus accepts no further batches and its
// matrix may be built.
type SealEvent struct {
	CorpusID string    `json:"corpus_id"`
	SealedAt time.Time `json:"sealed_at"`
}
