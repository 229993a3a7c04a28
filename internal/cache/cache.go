// Package cache stores computed corpus comparison tables in Redis, keyed by
// the corpus pair and filter thresholds. Concurrent misses for the same key
// collapse into a single computation via singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/eborbath/corpustat/internal/compare"
	"github.com/eborbath/corpustat/internal/vocab"
	"github.com/eborbath/corpustat/pkg/config"
	pkgredis "github.com/eborbath/corpustat/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "compare:"

type ComparisonCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *ComparisonCache {
	return &ComparisonCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "comparison-cache"),
	}
}

func (c *ComparisonCache) Get(ctx context.Context, corpusX, corpusY string, filter vocab.Config) (*compare.Result, bool) {
	key := c.buildKey(corpusX, corpusY, filter)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			c.misses.Add(1)
			return nil, false
		}
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	var result compare.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "corpus_x", corpusX, "corpus_y", corpusY, "key", key)
	return &result, true
}

func (c *ComparisonCache) Set(ctx context.Context, corpusX, corpusY string, filter vocab.Config, result *compare.Result) {
	key := c.buildKey(corpusX, corpusY, filter)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *ComparisonCache) GetOrCompute(
	ctx context.Context,
	corpusX, corpusY string,
	filter vocab.Config,
	computeFn func() (*compare.Result, error),
) (*compare.Result, bool, error) {
	if result, ok := c.Get(ctx, corpusX, corpusY, filter); ok {
		return result, true, nil
	}
	key := c.buildKey(corpusX, corpusY, filter)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, corpusX, corpusY, filter); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, corpusX, corpusY, filter, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*compare.Result), false, nil
}

// Invalidate drops every cached comparison. Called when a corpus is resealed
// or restored so stale tables do not survive.
func (c *ComparisonCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *ComparisonCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ComparisonCache) buildKey(corpusX, corpusY string, filter vocab.Config) string {
	raw := fmt.Sprintf("%s|%s|len=%d,freq=%d,reldf=%g,digits=%t,symbols=%t",
		corpusX, corpusY,
		filter.MinTermLength, filter.MinTermFreq, filter.MaxRelDocFreq,
		filter.DropDigits, filter.DropSymbols,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
