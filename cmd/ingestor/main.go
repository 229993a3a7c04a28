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

	"github.com/eborbath/corpustat/internal/intake"
	"github.com/eborbath/corpustat/internal/store"
	"github.com/eborbath/corpustat/pkg/config"
	"github.com/eborbath/corpustat/pkg/health"
	"github.com/eborbath/corpustat/pkg/kafka"
	"github.com/eborbath/corpustat/pkg/logger"
	"github.com/eborbath/corpustat/pkg/metrics"
	"github.com/eborbath/corpustat/pkg/middleware"
	"github.com/eborbath/corpustat/pkg/postgres"
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
	slog.Info("starting ingestor service", "port", cfg.Server.Port)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	batchProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.TokenBatches)
	defer batchProducer.Close()
	sealProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusSealed)
	defer sealProducer.Close()

	var st *store.Store
	pgClient, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, document metadata disabled", "error", err)
		pgClient = nil
	} else {
		defer pgClient.Close()
		st = store.New(pgClient)
		if err := st.Migrate(context.Background()); err != nil {
			slog.Error("store migration failed", "error", err)
			os.Exit(1)
		}
	}

	publisher := intake.NewPublisher(batchProducer, sealProducer, st)
	h := intake.NewHandler(publisher)

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if pgClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := pgClient.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/corpora/{id}/documents", h.IngestBatch)
	mux.HandleFunc("POST /api/v1/corpora/{id}/seal", h.SealCorpus)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("ingestor service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("ingestor service stopped")
}
