package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/newsgenius/backend/internal/cache"
	"github.com/newsgenius/backend/internal/config"
	"github.com/newsgenius/backend/internal/gemini"
	"github.com/newsgenius/backend/internal/images"
	"github.com/newsgenius/backend/internal/keywords"
	"github.com/newsgenius/backend/internal/logger"
	"github.com/newsgenius/backend/internal/news"
	"github.com/newsgenius/backend/internal/pexels"
	"github.com/newsgenius/backend/internal/pipeline"
	"github.com/newsgenius/backend/internal/providers"
	"github.com/newsgenius/backend/internal/ratelimit"
	"github.com/newsgenius/backend/internal/resolver"
	"github.com/newsgenius/backend/internal/retry"
	"github.com/newsgenius/backend/internal/server"
	"github.com/newsgenius/backend/internal/storage"
	"github.com/newsgenius/backend/internal/topics"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	ai, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		slog.Error("gemini client init failed", "error", err)
		os.Exit(1)
	}
	defer ai.Close()

	store, err := storage.NewClient(ctx, cfg.FirestoreProjectID, cfg.CredentialsFile)
	if err != nil {
		slog.Error("firestore init failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	resolutionCache := cache.New()

	buckets := topics.Default()
	if cfg.BucketsConfigPath != "" {
		loaded, err := topics.Load(cfg.BucketsConfigPath)
		if err != nil {
			slog.Warn("bucket config unusable, using built-in buckets", "path", cfg.BucketsConfigPath, "error", err)
		} else {
			buckets = loaded
		}
	}

	urls := resolver.New(&http.Client{Timeout: cfg.ResolveTimeout}, resolutionCache, cfg.CacheTTL)
	imageResolver := images.New(pexels.New(cfg.PexelsAPIKey), urls, buckets, resolutionCache, cfg.CacheTTL, cfg.ExtractTimeout)

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	retryCfg := retry.Config{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}
	fetchers := []providers.Fetcher{
		providers.NewNewsAPI(cfg.NewsAPIKey, httpClient, retryCfg),
		providers.NewNewsData(cfg.NewsDataAPIKey, httpClient, retryCfg),
		providers.NewGoogleNews(httpClient, cfg.ProviderLimit, retryCfg),
	}

	budget := ratelimit.NewBudget(cfg.MaxGeminiRequests, 0)
	filter := news.NewFilter(ai, cfg.FilterBatchSize)
	pipe := pipeline.New(fetchers, ai, imageResolver, filter, store, budget, cfg.MaxArticles, cfg.EnrichDelay)
	keywordGen := keywords.NewGenerator(ai)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(store, keywordGen, pipe, cfg.AllowedOrigins)
	slog.Info("starting server", "port", cfg.Port)
	if err := srv.Router().Run(":" + cfg.Port); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
