package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eborbath/corpustat/internal/cache"
	"github.com/eborbath/corpustat/internal/ingest"
	"github.com/eborbath/corpustat/internal/server"
	"github.com/eborbath/corpustat/internal/snapshot"
	"github.com/eborbath/corpustat/internal/store"
	"github.com/eborbath/corpustat/internal/tokens"
	"github.com/eborbath/corpustat/pkg/config"
	"github.com/eborbath/corpustat/pkg/health"
	"github.com/eborbath/corpustat/pkg/kafka"
	"github.com/eborbath/corpustat/pkg/logger"
	"github.com/eborbath/corpustat/pkg/metrics"
	"github.com/eborbath/corpustat/pkg/postgres"
	pkgredis "github.com/eborbath/corpustat/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analyzer service", "port", cfg.Server.Port, "data_dir", cfg.Analyzer.DataDir)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	registry := ingest.NewRegistry(cfg.Analyzer, tokens.ContentPOS, m)

	restored, err := snapshot.Latest(cfg.Analyzer.DataDir)
	if err != nil {
		slog.Error("snapshot scan failed", "error", err)
		os.Exit(1)
	}
	for corpusID, path := range restored {
		matrix, err := snapshot.Read(path)
		if err != nil {
			slog.Error("snapshot restore failed", "corpus", corpusID, "path", path, "error", err)
			continue
		}
		if err := registry.Restore(corpusID, matrix); err != nil {
			slog.Error("corpus restore failed", "corpus", corpusID, "error", err)
			continue
		}
		slog.Info("corpus restored from snapshot",
			"corpus", corpusID,
			"documents", matrix.NumDocs(),
			"terms", matrix.NumTerms(),
		)
	}

	var comparisonCache *cache.ComparisonCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, comparison caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		comparisonCache = cache.New(redisClient, cfg.Redis)
		slog.Info("comparison cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var st *store.Store
	pgClient, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, result persistence disabled", "error", err)
		pgClient = nil
	} else {
		defer pgClient.Close()
		st = store.New(pgClient)
		if err := st.Migrate(context.Background()); err != nil {
			slog.Error("store migration failed", "error", err)
			os.Exit(1)
		}
		slog.Info("result store enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batchConsumer := ingest.New(kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.TokenBatches,
		ingest.HandleBatch(registry),
	))
	go func() {
		if err := batchConsumer.Start(ctx); err != nil {
			slog.Error("token batch consumer error", "error", err)
		}
	}()
	slog.Info("consuming token batches", "topic", cfg.Kafka.Topics.TokenBatches, "group", cfg.Kafka.ConsumerGroup)

	sealConsumer := ingest.New(kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.CorpusSealed,
		ingest.HandleSeal(registry),
	))
	go func() {
		if err := sealConsumer.Start(ctx); err != nil {
			slog.Error("seal consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("registry", func(ctx context.Context) health.ComponentHealth {
		n := len(registry.List())
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d corpora registered", n),
		}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if pgClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := pgClient.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := server.New(registry, comparisonCache, st, m, cfg.Compare)
	router := server.NewRouter(h, checker, m, cfg.Server.WriteTimeout)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analyzer service listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analyzer service stopped")
}
