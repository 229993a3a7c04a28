package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eborbath/corpustat/pkg/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "token-batches", cfg.Kafka.Topics.TokenBatches)
	assert.Equal(t, "corpus.sealed", cfg.Kafka.Topics.CorpusSealed)
	assert.Equal(t, 2, cfg.Compare.MinTermLength)
	assert.Equal(t, 5, cfg.Compare.MinTermFreq)
	assert.InDelta(t, 0.5, cfg.Compare.MaxRelDocFreq, 1e-12)
	assert.True(t, cfg.Analyzer.SnapshotOnSeal)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
server:
  port: 9999
redis:
  cacheTTL: 90s
compare:
  minTermFreq: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 10, cfg.Compare.MinTermFreq)
	assert.Equal(t, "localhost:9092", cfg.Kafka.Brokers[0], "untouched values keep defaults")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CT_SERVER_PORT", "7070")
	t.Setenv("CT_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CT_ANALYZER_DATA_DIR", "/tmp/corpora")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "/tmp/corpora", cfg.Analyzer.DataDir)
}

func TestPostgresDSN(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	dsn := cfg.Postgres.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=corpustat")
	assert.Contains(t, dsn, "sslmode=disable")
}
