package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wanderkit/wanderkit/internal/api"
	"github.com/wanderkit/wanderkit/internal/assist"
	"github.com/wanderkit/wanderkit/internal/cache"
	"github.com/wanderkit/wanderkit/internal/config"
	"github.com/wanderkit/wanderkit/internal/httputil"
	"github.com/wanderkit/wanderkit/internal/maps"
	"github.com/wanderkit/wanderkit/internal/places"
	"github.com/wanderkit/wanderkit/internal/provider/anthropic"
	"github.com/wanderkit/wanderkit/internal/provider/gemini"
	"github.com/wanderkit/wanderkit/internal/provider/openai"
	"github.com/wanderkit/wanderkit/internal/ratelimit"
	"github.com/wanderkit/wanderkit/internal/router"
	"github.com/wanderkit/wanderkit/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	slog.Info("starting wanderkit", "addr", cfg.Addr, "version", "0.1.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	llmClient := httputil.NewClientWithTimeout(cfg.LLMTimeout)
	mapsClient := httputil.NewClientWithTimeout(cfg.MapsTimeout)

	providerRouter := router.New()

	if cfg.OpenAIAPIKey != "" {
		providerRouter.Register(openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, llmClient))
		slog.Info("registered provider", "provider", "openai")
	}
	if cfg.GoogleAIAPIKey != "" {
		providerRouter.Register(gemini.New(cfg.GoogleAIAPIKey, cfg.GeminiBaseURL, llmClient))
		slog.Info("registered provider", "provider", "gemini")
	}
	if cfg.AnthropicAPIKey != "" {
		providerRouter.Register(anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, llmClient))
		slog.Info("registered provider", "provider", "anthropic")
	}

	if len(providerRouter.Kinds()) == 0 {
		slog.Warn("no LLM providers configured, AI routes will fail")
	}

	assistService := assist.NewService(providerRouter, slog.Default())

	var imageService *assist.ImageService
	if cfg.OpenAIAPIKey != "" {
		imageService = assist.NewImageService(openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, llmClient))
	}

	var placesEngine *places.Engine
	var googleMaps *maps.Client
	if cfg.PlacesAPIKey != "" {
		googleMaps = maps.NewClient(cfg.PlacesAPIKey, cfg.MapsBaseURL, mapsClient)
		placesEngine = places.NewEngine(googleMaps, slog.Default())
		slog.Info("travel guide enabled")
	} else {
		slog.Warn("GOOGLE_PLACES_API_KEY not set, travel guide routes will fail")
	}

	var responseCache cache.Cache
	if cfg.RedisURL != "" {
		responseCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			slog.Warn("failed to connect to redis for cache, using in-memory", "error", err)
			responseCache = cache.NewInMemoryCache()
		} else {
			slog.Info("using redis cache")
		}
	} else {
		responseCache = cache.NewInMemoryCache()
		slog.Info("using in-memory cache")
	}

	var rateLimiter ratelimit.RateLimiter
	if cfg.RedisURL != "" {
		rateLimiter, err = ratelimit.NewRedisRateLimiter(cfg.RedisURL)
		if err != nil {
			slog.Warn("failed to connect to redis for rate limiting, using in-memory", "error", err)
			rateLimiter = ratelimit.NewInMemoryRateLimiter()
		} else {
			slog.Info("using redis rate limiter")
		}
	} else {
		rateLimiter = ratelimit.NewInMemoryRateLimiter()
		slog.Info("using in-memory rate limiter")
	}

	handler := api.NewHandler(api.HandlerConfig{
		Router:        providerRouter,
		Assist:        assistService,
		Images:        imageService,
		Places:        placesEngine,
		Maps:          googleMaps,
		Cache:         responseCache,
		CacheTTL:      cfg.CacheTTL,
		RateLimiter:   rateLimiter,
		RateLimitRPM:  cfg.RateLimitRPM,
		StreamClient:  llmClient,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
