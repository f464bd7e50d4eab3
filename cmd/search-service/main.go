// cmd/search-service/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bizsearch/internal/api"
	"bizsearch/internal/common/config"
	"bizsearch/internal/common/database"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/common/observability"
	"bizsearch/internal/search"
	"bizsearch/internal/search/cache"
	"bizsearch/internal/search/coordinator"
	"bizsearch/internal/search/history"
	"bizsearch/internal/search/parser"
	"bizsearch/internal/search/ratelimit"
	"bizsearch/internal/search/source"
	"bizsearch/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting search service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Load the source registry ---
	reg, err := registry.LoadRegistry(cfg.Search.RegistryPath)
	if err != nil {
		zapLog.Fatal("source registry load failed", zap.Error(err))
	}
	zapLog.Info("Source registry loaded",
		zap.String("version", reg.Version),
		zap.Int("sources", len(reg.Enabled())),
	)

	// --- Rate gate: registry intervals first, config overrides on top ---
	minIntervals := make(map[string]time.Duration)
	for _, def := range reg.Enabled() {
		if def.MinIntervalMs > 0 {
			minIntervals[def.ID] = time.Duration(def.MinIntervalMs) * time.Millisecond
		}
	}
	for id, ms := range cfg.Sources.MinIntervalMs {
		minIntervals[id] = time.Duration(ms) * time.Millisecond
	}
	gate := ratelimit.NewGate(minIntervals,
		ratelimit.WithDefaultMinInterval(time.Duration(cfg.Sources.DefaultMinIntervalMs)*time.Millisecond),
		ratelimit.WithPollInterval(time.Duration(cfg.Sources.PollIntervalMs)*time.Millisecond),
	)

	// --- Fan-out coordinator and source adapters ---
	coord := coordinator.New(gate, config.GetDuration(cfg.Search.SourceTimeout), log)
	for _, def := range reg.Enabled() {
		switch def.Kind {
		case "internal":
			coord.Register(source.NewInternalSource(
				esClient.Client,
				cfg.Database.Elasticsearch.Index,
				cfg.Search.InternalMaxRows,
				log,
			), false)
		case "external":
			coord.Register(source.NewExternalSource(&source.ExternalConfig{
				ID:         def.ID,
				BaseURL:    def.BaseURL,
				APIKey:     os.Getenv(def.APIKeyEnv),
				Timeout:    time.Duration(def.TimeoutMs) * time.Millisecond,
				MaxResults: def.MaxResults,
			}, log), true)
		}
	}

	// --- Result cache: memory shadow over Redis ---
	store := cache.NewTieredStore(
		cache.NewMemoryStore(256, nil),
		cache.NewRedisStore(redisClient.Client, log, nil),
	)

	// --- Query parser with keyword fallback ---
	parseSvc := parser.NewHTTPService(&parser.Config{
		BaseURL:    cfg.APIs.QueryParser.BaseURL,
		APIKey:     cfg.APIs.QueryParser.APIKey,
		Timeout:    time.Duration(cfg.APIs.QueryParser.Timeout) * time.Millisecond,
		MaxRetries: 2,
	}, log)

	recorder := history.NewRecorder(pg.DB, log, nil)
	if cfg.Search.HistoryRetention > 0 {
		retention := time.Duration(cfg.Search.HistoryRetention) * 24 * time.Hour
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				pruneCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
				removed, err := recorder.Prune(pruneCtx, retention)
				cancel()
				if err != nil {
					zapLog.Warn("history prune failed", zap.Error(err))
					continue
				}
				zapLog.Info("history pruned", zap.Int64("removed", removed))
			}
		}()
	}

	svc := search.NewService(parseSvc, store, coord, recorder, search.Options{
		MaxResults:      cfg.Search.MaxResults,
		CacheTTL:        time.Duration(cfg.Search.CacheTTLHours) * time.Hour,
		SuggestionLimit: cfg.Search.SuggestionLimit,
		Observability:   obs,
	}, log)

	server := api.NewServer(cfg, svc, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	case sig := <-quit:
		zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Search service stopped")
}
