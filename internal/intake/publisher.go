// Package intake is the write path of the pipeline: it accepts annotated
// token batches over HTTP, validates them, records document metadata, and
// publishes the batches to Kafka for the analyzer to consume.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eborbath/corpustat/internal/store"
	"github.com/eborbath/corpustat/internal/tokens"
	"github.com/eborbath/corpustat/pkg/kafka"
)

// EventPublisher publishes events to one topic. *kafka.Producer satisfies
// it; tests substitute an in-memory sink.
type EventPublisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Publisher forwards validated batches and seal markers to Kafka. The store
// is optional; without it intake metadata is not persisted.
type Publisher struct {
	batches EventPublisher
	seals   EventPublisher
	store   *store.Store
	logger  *slog.Logger
}

func NewPublisher(batches, seals EventPublisher, st *store.Store) *Publisher {
	return &Publisher{
		batches: batches,
		seals:   seals,
		store:   st,
		logger:  slog.Default().With("component", "intake-publisher"),
	}
}

// PublishBatch stamps and publishes one token batch, keyed by corpus so all
// batches of a corpus land on the same partition in order. The producer
// owns the JSON encoding.
func (p *Publisher) PublishBatch(ctx context.Context, ev *tokens.BatchEvent) error {
	ev.ReceivedAt = time.Now().UTC()
	if err := p.batches.Publish(ctx, kafka.Event{Key: ev.CorpusID, Value: ev}); err != nil {
		return fmt.Errorf("publishing batch for %s/%s: %w", ev.CorpusID, ev.DocID, err)
	}

	if p.store != nil {
		if err := p.store.RecordDocument(ctx, ev.CorpusID, ev.DocID, len(ev.Tokens), ev.ReceivedAt); err != nil {
			p.logger.Error("recording document metadata failed",
				"corpus", ev.CorpusID, "doc", ev.DocID, "error", err)
		}
	}
	return nil
}

// PublishSeal publishes the seal marker for a corpus.
func (p *Publisher) PublishSeal(ctx context.Context, corpusID string) error {
	ev := tokens.SealEvent{CorpusID: corpusID, SealedAt: time.Now().UTC()}
	if err := p.seals.Publish(ctx, kafka.Event{Key: corpusID, Value: ev}); err != nil {
		return fmt.Errorf("publishing seal for %s: %w", corpusID, err)
	}
	return nil
}
