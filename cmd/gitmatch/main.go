// Command gitmatch runs the issue ranking and retrieval engine: hybrid
// search, personalized feed, ingestion scoring, and the survival-score
// janitor behind one HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gitmatch-ai/gitmatch/internal/cache"
	"github.com/gitmatch-ai/gitmatch/internal/config"
	"github.com/gitmatch-ai/gitmatch/internal/janitor"
	"github.com/gitmatch-ai/gitmatch/internal/server"
	"github.com/gitmatch-ai/gitmatch/internal/service/embedding"
	"github.com/gitmatch-ai/gitmatch/internal/service/feed"
	"github.com/gitmatch-ai/gitmatch/internal/service/ingest"
	"github.com/gitmatch-ai/gitmatch/internal/service/search"
	"github.com/gitmatch-ai/gitmatch/internal/storage"
	"github.com/gitmatch-ai/gitmatch/internal/telemetry"
	"github.com/gitmatch-ai/gitmatch/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("GITMATCH_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("gitmatch starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	metrics, err := telemetry.NewEngineMetrics()
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Search cache (optional; nil when REDIS_URL is unset).
	searchCache, err := cache.New(cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer searchCache.Close()
	if searchCache != nil {
		logger.Info("search cache: enabled")
	} else {
		logger.Info("search cache: disabled (no REDIS_URL)")
	}

	embedder := newEmbeddingProvider(cfg, logger)

	engine := search.New(db, embedder, searchCache, logger, search.Options{
		CandidateLimit:   cfg.CandidateLimit,
		CorpusDimensions: cfg.EmbeddingDimensions,
		Freshness: storage.FreshnessParams{
			HalfLifeDays: cfg.SearchFreshnessHalfLife,
			Floor:        cfg.SearchFreshnessFloor,
			Weight:       cfg.SearchFreshnessWeight,
		},
	})

	ranker := feed.New(db, logger, feed.Options{
		Freshness: storage.FreshnessParams{
			HalfLifeDays: cfg.FeedFreshnessHalfLife,
			Floor:        cfg.FeedFreshnessFloor,
			Weight:       cfg.FeedFreshnessWeight,
		},
	})

	ingestor := ingest.New(db, embedder, searchCache, logger)

	jan := janitor.New(db, searchCache, logger, janitor.Options{
		Percentile: cfg.PrunePercentile,
		MinRows:    int64(cfg.JanitorMinRows),
	})
	if cfg.JanitorInterval > 0 {
		go jan.Start(ctx, cfg.JanitorInterval)
	} else {
		logger.Info("janitor loop: disabled (prune via POST /v1/admin/prune)")
	}

	srv := server.New(server.Config{
		Handlers: server.HandlersDeps{
			Engine:              engine,
			Ranker:              ranker,
			Ingestor:            ingestor,
			Janitor:             jan,
			Metrics:             metrics,
			Logger:              logger,
			Version:             version,
			MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		},
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown: drain HTTP first, then let deferred closes release
	// the cache client and pool.
	slog.Info("gitmatch shutting down")
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	return nil
}

// newEmbeddingProvider selects the embedding backend. Provider failures at
// runtime degrade searches to lexical-only, so a noop here keeps the
// service useful without an API key.
func newEmbeddingProvider(cfg config.Config, logger *slog.Logger) embedding.Provider {
	dims := cfg.EmbeddingDimensions

	switch cfg.EmbeddingProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when GITMATCH_EMBEDDING_PROVIDER=openai")
			return embedding.NewNoopProvider(dims)
		}
		return mustOpenAI(cfg, logger)

	case "noop":
		logger.Info("embedding provider: noop (semantic retrieval disabled)")
		return embedding.NewNoopProvider(dims)

	case "auto":
		fallthrough
	default:
		if cfg.OpenAIAPIKey != "" {
			return mustOpenAI(cfg, logger)
		}
		logger.Info("embedding provider: noop (auto-detected, no OPENAI_API_KEY)")
		return embedding.NewNoopProvider(dims)
	}
}

func mustOpenAI(cfg config.Config, logger *slog.Logger) embedding.Provider {
	p, err := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	if err != nil {
		logger.Error("openai provider init failed", "error", err)
		return embedding.NewNoopProvider(cfg.EmbeddingDimensions)
	}
	logger.Info("embedding provider: openai",
		"model", cfg.EmbeddingModel, "dimensions", cfg.EmbeddingDimensions)
	return p
}
