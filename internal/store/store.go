// Package store persists corpus summaries, term statistics, and comparison
// tables to PostgreSQL so analysis results survive restarts and can be
// joined with externally held document metadata.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/eborbath/corpustat/internal/compare"
	"github.com/eborbath/corpustat/internal/ingest"
	"github.com/eborbath/corpustat/internal/termstats"
	"github.com/eborbath/corpustat/pkg/postgres"
	"github.com/eborbath/corpustat/pkg/resilience"
)

// Store wraps the PostgreSQL client with the analytics schema.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// New creates a Store over the given client.
func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "store"),
	}
}

// Migrate creates the analytics tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS corpora (
			id TEXT PRIMARY KEY,
			documents INTEGER NOT NULL,
			terms INTEGER NOT NULL,
			tokens INTEGER NOT NULL,
			sealed BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			corpus_id TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			tokens INTEGER NOT NULL,
			received_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (corpus_id, doc_id)
		)`,
		`CREATE TABLE IF NOT EXISTS term_stats (
			corpus_id TEXT NOT NULL,
			term TEXT NOT NULL,
			frequency INTEGER NOT NULL,
			doc_freq INTEGER NOT NULL,
			rel_doc_freq DOUBLE PRECISION NOT NULL,
			length INTEGER NOT NULL,
			has_digit BOOLEAN NOT NULL,
			has_symbol BOOLEAN NOT NULL,
			PRIMARY KEY (corpus_id, term)
		)`,
		`CREATE TABLE IF NOT EXISTS comparisons (
			corpus_x TEXT NOT NULL,
			corpus_y TEXT NOT NULL,
			term TEXT NOT NULL,
			freq_x INTEGER NOT NULL,
			freq_y INTEGER NOT NULL,
			rel_x DOUBLE PRECISION NOT NULL,
			rel_y DOUBLE PRECISION NOT NULL,
			over_ratio DOUBLE PRECISION,
			chi_square DOUBLE PRECISION NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (corpus_x, corpus_y, term)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	return nil
}

// SaveCorpus upserts the corpus summary row.
func (s *Store) SaveCorpus(ctx context.Context, info ingest.CorpusInfo) error {
	return resilience.Retry(ctx, "save-corpus", resilience.RetryConfig{}, func() error {
		_, err := s.db.DB.ExecContext(ctx,
			`INSERT INTO corpora (id, documents, terms, tokens, sealed, updated_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 ON CONFLICT (id) DO UPDATE SET
			   documents = EXCLUDED.documents,
			   terms = EXCLUDED.terms,
			   tokens = EXCLUDED.tokens,
			   sealed = EXCLUDED.sealed,
			   updated_at = NOW()`,
			info.ID, info.Documents, info.Terms, info.Tokens, info.Sealed,
		)
		if err != nil {
			return fmt.Errorf("upserting corpus %s: %w", info.ID, err)
		}
		return nil
	})
}

// RecordDocument upserts intake metadata for one document. Token counts
// accumulate across batches for the same document.
func (s *Store) RecordDocument(ctx context.Context, corpusID, docID string, tokenCount int, receivedAt time.Time) error {
	return resilience.Retry(ctx, "record-document", resilience.RetryConfig{}, func() error {
		_, err := s.db.DB.ExecContext(ctx,
			`INSERT INTO documents (corpus_id, doc_id, tokens, received_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (corpus_id, doc_id) DO UPDATE SET
			   tokens = documents.tokens + EXCLUDED.tokens,
			   received_at = EXCLUDED.received_at`,
			corpusID, docID, tokenCount, receivedAt,
		)
		if err != nil {
			return fmt.Errorf("recording document %s/%s: %w", corpusID, docID, err)
		}
		return nil
	})
}

// SaveTermStats replaces the stored statistics table of a corpus in one
// transaction.
func (s *Store) SaveTermStats(ctx context.Context, corpusID string, stats []termstats.Stats) error {
	return resilience.Retry(ctx, "save-term-stats", resilience.RetryConfig{}, func() error {
		return s.db.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM term_stats WHERE corpus_id = $1`, corpusID,
			); err != nil {
				return fmt.Errorf("clearing term stats for %s: %w", corpusID, err)
			}
			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO term_stats
				 (corpus_id, term, frequency, doc_freq, rel_doc_freq, length, has_digit, has_symbol)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
			if err != nil {
				return fmt.Errorf("preparing term stats insert: %w", err)
			}
			defer stmt.Close()
			for _, row := range stats {
				if _, err := stmt.ExecContext(ctx,
					corpusID, row.Term, row.Frequency, row.DocFreq,
					row.RelDocFreq, row.Length, row.HasDigit, row.HasSymbol,
				); err != nil {
					return fmt.Errorf("inserting term stats row %q: %w", row.Term, err)
				}
			}
			return nil
		})
	})
}

// SaveComparison persists a comparison table for the (X, Y) corpus pair.
// Infinite overrepresentation ratios are stored as NULL.
func (s *Store) SaveComparison(ctx context.Context, corpusX, corpusY string, result *compare.Result) error {
	computedAt := time.Now().UTC()
	return resilience.Retry(ctx, "save-comparison", resilience.RetryConfig{}, func() error {
		return s.db.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM comparisons WHERE corpus_x = $1 AND corpus_y = $2`,
				corpusX, corpusY,
			); err != nil {
				return fmt.Errorf("clearing comparison %s/%s: %w", corpusX, corpusY, err)
			}
			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO comparisons
				 (corpus_x, corpus_y, term, freq_x, freq_y, rel_x, rel_y, over_ratio, chi_square, computed_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
			if err != nil {
				return fmt.Errorf("preparing comparison insert: %w", err)
			}
			defer stmt.Close()
			for _, row := range result.Rows {
				if _, err := stmt.ExecContext(ctx,
					corpusX, corpusY, row.Term, row.FreqX, row.FreqY,
					row.RelX, row.RelY, nullableFloat(row.Over), row.ChiSquare, computedAt,
				); err != nil {
					return fmt.Errorf("inserting comparison row %q: %w", row.Term, err)
				}
			}
			return nil
		})
	})
}

// TermStats loads the stored statistics table of a corpus.
func (s *Store) TermStats(ctx context.Context, corpusID string) ([]termstats.Stats, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT term, frequency, doc_freq, rel_doc_freq, length, has_digit, has_symbol
		 FROM term_stats WHERE corpus_id = $1 ORDER BY frequency DESC, term ASC`,
		corpusID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying term stats for %s: %w", corpusID, err)
	}
	defer rows.Close()

	var out []termstats.Stats
	for rows.Next() {
		var row termstats.Stats
		if err := rows.Scan(
			&row.Term, &row.Frequency, &row.DocFreq, &row.RelDocFreq,
			&row.Length, &row.HasDigit, &row.HasSymbol,
		); err != nil {
			return nil, fmt.Errorf("scanning term stats row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating term stats rows: %w", err)
	}
	return out, nil
}

// nullableFloat converts an infinite ratio to a SQL NULL.
func nullableFloat(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
