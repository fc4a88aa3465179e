package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/shopping-recommender/internal/api"
	"github.com/maltedev/shopping-recommender/internal/browser"
	"github.com/maltedev/shopping-recommender/internal/config"
	"github.com/maltedev/shopping-recommender/internal/fetch"
	"github.com/maltedev/shopping-recommender/internal/genai"
	"github.com/maltedev/shopping-recommender/internal/recommend"
	"github.com/maltedev/shopping-recommender/internal/scraper"
	"github.com/maltedev/shopping-recommender/internal/session"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if cfg.GenAI.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; recommendation requests will fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opener, closeOpener, err := newOpener(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize fetcher", "error", err, "mode", cfg.Fetch.Mode)
		os.Exit(1)
	}
	defer closeOpener()

	store, closeStore, err := newSessionStore(ctx, cfg.Session, logger)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err, "backend", cfg.Session.Backend)
		os.Exit(1)
	}
	defer closeStore()

	categoryScraper := scraper.NewCategoryScraper(opener, &scraper.Options{
		MaxWorkers:  scraper.MaxDetailWorkers,
		ThrottleMin: cfg.Fetch.RateLimitMin,
		ThrottleMax: cfg.Fetch.RateLimitMax,
	}, logger)
	aggregator := scraper.NewAggregator(categoryScraper, &scraper.AggregatorOptions{
		PerCategoryLimit: cfg.Scraper.PerCategoryLimit,
		Timeout:          cfg.Scraper.AggregateTimeout,
		DedupeGlobal:     cfg.Scraper.DedupeGlobal,
	}, logger)

	genaiOpts := genai.DefaultOptions()
	genaiOpts.APIKey = cfg.GenAI.APIKey
	genaiOpts.BaseURL = cfg.GenAI.BaseURL
	genaiOpts.Model = cfg.GenAI.Model
	genaiOpts.Timeout = cfg.GenAI.Timeout
	genaiOpts.Temperature = cfg.GenAI.Temperature
	genaiClient := genai.NewClient(genaiOpts, logger)

	service := recommend.NewService(genaiClient, genaiClient, aggregator, cfg.Scraper.MaxCategories, logger)
	handlers := api.NewHandlers(store, service, logger)
	router := api.NewRouter(handlers, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout * 2,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting",
		"addr", server.Addr,
		"fetch_mode", cfg.Fetch.Mode,
		"session_backend", cfg.Session.Backend,
		"model", cfg.GenAI.Model,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newOpener(cfg *config.Config, logger *slog.Logger) (fetch.Opener, func(), error) {
	if cfg.Fetch.Mode == "browser" {
		opts := browser.DefaultOptions()
		opts.Headless = cfg.Browser.Headless
		opts.Timeout = cfg.Browser.Timeout
		opts.ViewportWidth = cfg.Browser.ViewportWidth
		opts.ViewportHeight = cfg.Browser.ViewportHeight
		opts.AcceptLanguage = cfg.Browser.AcceptLanguage
		opts.TimezoneID = cfg.Browser.TimezoneID
		opts.Locale = cfg.Browser.Locale
		opts.ProxyServer = cfg.Browser.ProxyServer
		opts.MaxAttempts = cfg.Fetch.MaxAttempts
		opts.BaseBackoff = cfg.Fetch.BaseBackoff
		opts.MaxBackoff = cfg.Fetch.MaxBackoff
		opts.RequestsPerSecond = cfg.Fetch.RequestsPerSecond
		opts.Burst = cfg.Fetch.Burst
		if len(cfg.Fetch.UserAgents) > 0 {
			opts.UserAgent = cfg.Fetch.UserAgents[0]
		}

		b, err := browser.New(opts, logger)
		if err != nil {
			return nil, nil, err
		}
		return b, func() {
			if err := b.Close(); err != nil {
				logger.Warn("failed to close browser", "error", err)
			}
		}, nil
	}

	opts := fetch.DefaultOptions()
	opts.Timeout = cfg.Fetch.Timeout
	opts.MaxAttempts = cfg.Fetch.MaxAttempts
	opts.BaseBackoff = cfg.Fetch.BaseBackoff
	opts.MaxBackoff = cfg.Fetch.MaxBackoff
	opts.RequestsPerSecond = cfg.Fetch.RequestsPerSecond
	opts.Burst = cfg.Fetch.Burst
	if len(cfg.Fetch.UserAgents) > 0 {
		opts.Profiles = fetch.ProfilesFromUserAgents(cfg.Fetch.UserAgents)
	}
	return fetch.NewClient(opts, logger), func() {}, nil
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig, logger *slog.Logger) (session.Store, func(), error) {
	if cfg.Backend != "redis" {
		return session.NewMemoryStore(cfg.TTL), func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, err
	}
	logger.Info("connected to redis", "addr", cfg.RedisAddr)

	return session.NewRedisStore(redisClient, cfg.TTL), func() { redisClient.Close() }, nil
}
