package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "watchtrack/internal/api/http"
	"watchtrack/internal/app"
	"watchtrack/internal/metrics"
	"watchtrack/internal/providers/tmdb"
	"watchtrack/internal/ratelimit"
	mongorepo "watchtrack/internal/repository/mongo"
	"watchtrack/internal/search"
	"watchtrack/internal/telemetry"
	"watchtrack/internal/watchlist"
)

const (
	serviceName    = "watchtrack"
	serviceVersion = "1.0.0"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), serviceName, serviceVersion)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != ""),
		slog.String("tmdbBaseURL", cfg.TMDBBaseURL),
		slog.Int("catalogQuota", cfg.CatalogQuota),
		slog.Duration("catalogQuotaWindow", cfg.CatalogQuotaWindow),
		slog.Bool("hasRedis", cfg.RedisURL != ""),
		slog.Bool("hasMongo", cfg.MongoURI != ""),
		slog.Duration("searchTimeout", cfg.SearchTimeout),
		slog.Int("seasonLimit", cfg.SearchSeasonLimit),
		slog.String("mergeScorePolicy", cfg.MergeScorePolicy),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := buildCatalogClient(cfg, logger)
	searchService := search.NewService(catalog,
		search.WithTimeout(cfg.SearchTimeout),
		search.WithSeasonLimit(cfg.SearchSeasonLimit),
		search.WithMaxConcurrency(cfg.SearchMaxConcurrency),
		search.WithMergeScorePolicy(search.MergeScorePolicy(cfg.MergeScorePolicy)),
		search.WithLogger(logger),
	)

	var store watchlist.Repository
	mongoClient := connectMongo(rootCtx, cfg, logger)
	if mongoClient != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoClient.Disconnect(ctx)
		}()
		mongoStore := mongorepo.NewStore(mongoClient, cfg.MongoDB)
		ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
		}
		cancel()
		store = mongoStore
	}
	watchlistService := watchlist.NewService(store, catalog, watchlist.WithLogger(logger))

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithCatalog(catalog),
		apihttp.WithWatchlist(watchlistService),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		apihttp.WithImageProxy(cfg.TMDBImageBaseURL, nil),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.SearchTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("watchtrack service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Bool("catalogEnabled", catalog.Enabled()),
		slog.Bool("watchlistEnabled", watchlistService.Enabled()),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("watchtrack service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	handlerOpts := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildCatalogClient(cfg app.Config, logger *slog.Logger) *tmdb.Client {
	if cfg.TMDBAPIKey == "" {
		logger.Warn("tmdb api key not configured, catalog endpoints disabled")
	}

	retry := tmdb.DefaultRetryConfig()
	retry.MaxAttempts = cfg.TMDBRetries

	client := tmdb.NewClient(tmdb.Config{
		APIKey:    cfg.TMDBAPIKey,
		BaseURL:   cfg.TMDBBaseURL,
		Language:  cfg.TMDBLanguage,
		UserAgent: cfg.UserAgent,
		Client:    &http.Client{Timeout: cfg.TMDBTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Redis:     buildRedisClient(cfg, logger),
		CacheTTL:  cfg.TMDBCacheTTL,
		Limiter:   ratelimit.New(cfg.CatalogQuota, cfg.CatalogQuotaWindow, time.Now),
		Retry:     retry,
		Logger:    logger,
	})
	logger.Info("tmdb client initialized", slog.Bool("enabled", client.Enabled()))
	return client
}

func buildRedisClient(cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" || cfg.TMDBCacheOff {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, catalog cache disabled", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, catalog cache disabled", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}

// connectMongo returns nil when the watchlist store is not configured or
// unreachable; the service then runs with watchlist endpoints disabled.
func connectMongo(parent context.Context, cfg app.Config, logger *slog.Logger) *mongo.Client {
	if cfg.MongoURI == "" {
		logger.Info("mongo uri not configured, watchlist disabled")
		return nil
	}
	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	client, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		return nil
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		_ = client.Disconnect(context.Background())
		return nil
	}
	logger.Info("mongo connected", slog.String("database", cfg.MongoDB))
	return client
}
