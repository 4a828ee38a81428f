package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/leadbox/leadbox/internal/classify"
	"github.com/leadbox/leadbox/internal/config"
	"github.com/leadbox/leadbox/internal/crypto"
	"github.com/leadbox/leadbox/internal/db"
	"github.com/leadbox/leadbox/internal/engine"
	"github.com/leadbox/leadbox/internal/logging"
	"github.com/leadbox/leadbox/internal/metrics"
	"github.com/leadbox/leadbox/internal/notify"
	"github.com/leadbox/leadbox/internal/pipeline"
	"github.com/leadbox/leadbox/internal/search"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.CloseConnection(pool)

	logger.Info("connected to database")

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		logger.Fatal("failed to create encryptor", zap.Error(err))
	}

	store := db.NewStore(pool)
	classifier := classify.NewClient(cfg.OpenAIAPIKey)
	indexer := search.NewIndexer(cfg.ElasticsearchNode)
	notifier := notify.NewNotifier(cfg.SlackWebhookURL, cfg.WebhookURL, store, logger)
	pipe := pipeline.NewPipeline(store, classifier, indexer, notifier, logger)

	// A missing index shows up again as per-message indexing failures, so a
	// search outage at boot is not fatal.
	if err := indexer.EnsureIndex(ctx); err != nil {
		logger.Warn("failed to ensure search index", zap.Error(err))
	}

	manager := engine.NewManager(engine.Options{
		WatchedFolder:     cfg.WatchedFolder,
		BackfillWindow:    cfg.BackfillWindow,
		IdleTimeout:       cfg.IdleTimeout,
		KeepaliveInterval: cfg.KeepaliveInterval,
		PollInterval:      cfg.PollInterval,
		UseTLS:            true,
	}, store, encryptor, pipe, logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("failed to start sessions", zap.Error(err))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	cancel()
	manager.StopAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}
