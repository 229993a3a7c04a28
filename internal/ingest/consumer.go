package ingest

import (
	"context"
	"log/slog"

	"github.com/eborbath/corpustat/internal/tokens"
	"github.com/eborbath/corpustat/pkg/kafka"
)

// Consumer wraps a Kafka consumer to drive batch accumulation.
type Consumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a Consumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *Consumer {
	return &Consumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "batch-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("batch consumer starting")
	return c.consumer.Start(ctx)
}

// HandleBatch returns a Kafka MessageHandler that validates each token
// batch and folds it into the registry. Malformed events are logged and
// skipped rather than redelivered forever.
func HandleBatch(registry *Registry) kafka.MessageHandler {
	logger := slog.Default().With("component", "batch-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[tokens.BatchEvent](value)
		if err != nil {
			logger.Error("failed to decode token batch",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if err := tokens.ValidateBatch(&ev); err != nil {
			logger.Error("rejecting invalid token batch",
				"corpus_id", ev.CorpusID,
				"doc_id", ev.DocID,
				"error", err,
			)
			return nil
		}
		if err := registry.AddBatch(&ev); err != nil {
			logger.Error("failed to accumulate batch",
				"corpus_id", ev.CorpusID,
				"doc_id", ev.DocID,
				"error", err,
			)
			return nil
		}
		return nil
	}
}

// HandleSeal returns a Kafka MessageHandler for corpus seal events.
func HandleSeal(registry *Registry) kafka.MessageHandler {
	logger := slog.Default().With("component", "seal-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[tokens.SealEvent](value)
		if err != nil {
			logger.Error("failed to decode seal event", "error", err)
			return nil
		}
		if _, err := registry.Seal(ev.CorpusID); err != nil {
			logger.Error("failed to seal corpus", "corpus_id", ev.CorpusID, "error", err)
			return nil
		}
		return nil
	}
}
