package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/searchlab/keyword-insights/internal/aggregation"
	"github.com/searchlab/keyword-insights/internal/api"
	"github.com/searchlab/keyword-insights/internal/cache"
	"github.com/searchlab/keyword-insights/internal/clickhouse"
	"github.com/searchlab/keyword-insights/internal/config"
	"github.com/searchlab/keyword-insights/internal/elasticsearch"
	"github.com/searchlab/keyword-insights/internal/kafka"
	"github.com/searchlab/keyword-insights/internal/keywords"
	"github.com/searchlab/keyword-insights/internal/observability"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Initialize logger
	logger, err := observability.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting keyword insights service",
		zap.String("service", cfg.Observability.ServiceName),
	)

	// Initialize tracing
	tracerShutdown, err := observability.InitTracer(cfg.Observability.ServiceName)
	if err != nil {
		logger.Warn("tracing initialization failed, continuing without tracing", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Dictionary and scorer are configuration: invalid values fail startup.
	dict, err := loadDictionary(cfg.Grouping.DictionaryPath, logger)
	if err != nil {
		return fmt.Errorf("loading keyword dictionary: %w", err)
	}
	grouper := keywords.NewGrouper(dict, keywords.NewScorer(cfg.Grouping.Similarity), cfg.Grouping.MinScore)
	logger.Info("grouping engine initialized",
		zap.Int("dictionary_entries", dict.Len()),
		zap.String("scorer", grouper.ScorerName()),
		zap.Int("min_score", grouper.MinScore()),
	)

	// Backends degrade individually; the grouping API itself needs none of them.
	var resultCache aggregation.ResultCache
	redisCache, err := cache.NewRedisCache(cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis initialization failed, results will not be cached", zap.Error(err))
	} else {
		defer redisCache.Close()
		resultCache = redisCache
		logger.Info("redis cache initialized")
	}

	var store aggregation.RecordStore
	var analyticsWriter observability.AnalyticsWriter
	var eventSink aggregation.EventSink
	chClient, err := clickhouse.NewClient(cfg.ClickHouse, logger)
	if err != nil {
		logger.Warn("clickhouse initialization failed, analytics will be unavailable", zap.Error(err))
	} else {
		defer chClient.Close()
		if err := chClient.EnsureTables(ctx); err != nil {
			logger.Warn("clickhouse table creation failed", zap.Error(err))
		}
		store = chClient
		analyticsWriter = chClient
		eventSink = chClient
		logger.Info("clickhouse client initialized")
	}

	var exporter aggregation.GroupExporter
	esClient, err := elasticsearch.NewClient(cfg.Elasticsearch, cfg.Grouping, logger)
	if err != nil {
		logger.Warn("elasticsearch initialization failed, variant search will be unavailable", zap.Error(err))
	} else {
		defer esClient.Close()
		exporter = esClient
		logger.Info("elasticsearch client initialized")
	}

	// Slow run detection
	slowRunDetector := observability.NewSlowRunDetector(
		cfg.Grouping.SlowRun.WarningThreshold,
		cfg.Grouping.SlowRun.CriticalThreshold,
		logger,
		analyticsWriter,
	)

	// Aggregation service over the grouping engine
	service := aggregation.NewService(
		grouper, store, exporter, resultCache,
		slowRunDetector, cfg.Grouping, logger,
	)

	// Ingest pipeline: Kafka events buffered, flushed to ClickHouse, regrouped
	streamProcessor := aggregation.NewStreamProcessor(eventSink, service, cfg.Aggregation, logger)
	defer streamProcessor.Stop()

	consumer := kafka.NewConsumer(cfg.Kafka, streamProcessor.HandleEvent, logger)
	if err := consumer.Start(ctx); err != nil {
		logger.Warn("kafka consumer start failed, ingest pipeline will be unavailable", zap.Error(err))
	} else {
		defer consumer.Stop()
		logger.Info("kafka consumer started")
	}

	// Initialize HTTP server
	handler := api.NewHandler(service, logger)

	healthHandler := api.NewHealthHandler(logger)
	if redisCache != nil {
		healthHandler.Register("redis", redisCache)
	}
	if chClient != nil {
		healthHandler.Register("clickhouse", chClient)
	}
	if esClient != nil {
		healthHandler.RegisterStatus("elasticsearch", esClient)
	}
	healthHandler.Register("kafka", consumer)

	router := api.NewRouter(handler, healthHandler, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	// Graceful shutdown
	logger.Info("starting graceful shutdown", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new requests
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	// Cancel background operations
	cancel()

	// Shutdown tracing
	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func loadDictionary(path string, logger *zap.Logger) (*keywords.Dictionary, error) {
	if path == "" {
		return keywords.NewDictionary(keywords.DefaultEntries())
	}
	dict, err := keywords.LoadDictionary(path)
	if err != nil {
		return nil, err
	}
	logger.Info("keyword dictionary loaded", zap.String("path", path))
	return dict, nil
}
