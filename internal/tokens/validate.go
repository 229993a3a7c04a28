// Batch validation mirrors what the HTTP ingestor enforces before anything
// reaches Kafka: identifier and lemma constraints with per-field error
// details.
package tokens

import (
	"fmt"
	"strings"
)

const (
	maxIDLength    = 255
	maxLemmaLength = 512
	maxBatchTokens = 100000
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateBatch checks corpus and document identifiers and every token of
// the batch, returning a ValidationError describing all failures at once.
func ValidateBatch(ev *BatchEvent) error {
	errs := make(map[string]string)

	corpusID := strings.TrimSpace(ev.CorpusID)
	if corpusID == "" {
		errs["corpus_id"] = "corpus id is required"
	} else if len(corpusID) > maxIDLength {
		errs["corpus_id"] = fmt.Sprintf("corpus id must be at most %d characters", maxIDLength)
	}
	docID := strings.TrimSpace(ev.DocID)
	if docID == "" {
		errs["doc_id"] = "document id is required"
	} else if len(docID) > maxIDLength {
		errs["doc_id"] = fmt.Sprintf("document id must be at most %d characters", maxIDLength)
	}
	if len(ev.Tokens) == 0 {
		errs["tokens"] = "batch must contain at least one token"
	} else if len(ev.Tokens) > maxBatchTokens {
		errs["tokens"] = fmt.Sprintf("batch must contain at most %d tokens", maxBatchTokens)
	}
	for i, tok := range ev.Tokens {
		if tok.Lemma == "" {
			errs[fmt.Sprintf("tokens[%d].lemma", i)] = "lemma must not be empty"
			break
		}
		if len(tok.Lemma) > maxLemmaLength {
			errs[fmt.Sprintf("tokens[%d].lemma", i)] = fmt.Sprintf("lemma must be at most %d characters", maxLemmaLength)
			break
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
