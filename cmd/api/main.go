// Package main is the entry point for the marketd API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/confirmit/marketd/internal/analytics"
	"github.com/confirmit/marketd/internal/api"
	"github.com/confirmit/marketd/internal/auth"
	"github.com/confirmit/marketd/internal/config"
	"github.com/confirmit/marketd/internal/health"
	"github.com/confirmit/marketd/internal/listing"
	"github.com/confirmit/marketd/internal/middleware"
	"github.com/confirmit/marketd/internal/ranking"
	"github.com/confirmit/marketd/internal/search"
	"github.com/confirmit/marketd/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("marketd API Server")
		fmt.Println()
		fmt.Println("Usage: marketd [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			slog.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summaryAttrs := make([]any, 0, 32)
	for key, value := range cfg.LogSummary() {
		summaryAttrs = append(summaryAttrs, key, value)
	}
	logger.Info("configuration loaded", summaryAttrs...)

	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "marketd",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSampleRate,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}
	cancelPing()

	repo := listing.NewPostgresRepository(db, logger)

	httpMetrics := middleware.NewMetrics()
	searchMetrics := search.NewMetrics()
	trackerMetrics := analytics.NewMetrics()

	registry := prometheus.NewRegistry()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register,
		searchMetrics.Register,
		trackerMetrics.Register,
	} {
		if err := register(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	var redisClient *redis.Client
	var rateLimitStore middleware.RateLimitStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient, logger, httpMetrics)
		logger.Info("rate limiting backed by redis")
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		rateLimitStore = memStore
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memStore.Cleanup()
			}
		}()
		logger.Info("rate limiting backed by in-memory store")
	}

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		logger.Warn("using default ranking weights", "error", err)
	}

	searchSvc := search.NewService(repo, weights, cfg.HoursLocation(), logger, searchMetrics)
	tracker := analytics.NewTracker(repo, logger, trackerMetrics)
	jwtSvc := auth.NewJWTService(cfg.JWTSecret)

	var redisChecker api.HealthChecker
	if redisClient != nil {
		redisChecker = health.NewRedisChecker(redisClient)
	}

	handler := newHandler(handlerDeps{
		cfg:            cfg,
		logger:         logger,
		repo:           repo,
		searchSvc:      searchSvc,
		tracker:        tracker,
		jwtSvc:         jwtSvc,
		registry:       registry,
		httpMetrics:    httpMetrics,
		rateLimitStore: rateLimitStore,
		dbChecker:      health.NewDBChecker(db),
		redisChecker:   redisChecker,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracing", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}

	logger.Info("server stopped")
}

// newHandler builds the route table and wraps it in the middleware chain:
// RequestID -> Logging -> Tracing -> HTTPMetrics -> CORS -> global rate limit.
// The search endpoint carries its own tighter rate limit on top.
func newHandler(deps handlerDeps) http.Handler {
	searchHandlers := api.NewSearchHandlers(deps.searchSvc, deps.cfg.SearchRadiusKm, deps.cfg.SearchPageSize, deps.logger)
	listingHandlers := api.NewListingHandlers(deps.repo, deps.tracker, deps.jwtSvc, deps.logger)
	statsHandlers := api.NewStatsHandlers(deps.repo, deps.logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    deps.dbChecker,
		RedisChecker: deps.redisChecker,
	})

	searchLimit := middleware.RateLimiter(deps.rateLimitStore, middleware.RateLimitConfig{
		RequestsPerWindow: deps.cfg.SearchRateLimitPerMinute,
		WindowDuration:    time.Minute,
	}, middleware.IPKeyFunc())

	mux := http.NewServeMux()
	mux.Handle("/marketplace/search", searchLimit(http.HandlerFunc(searchHandlers.Search)))
	mux.Handle("/marketplace/business/", listingHandlers)
	mux.HandleFunc("/marketplace/stats", statsHandlers.GetStats)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"marketd","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	globalLimit := middleware.RateLimiter(deps.rateLimitStore, middleware.RateLimitConfig{
		RequestsPerWindow: deps.cfg.RateLimitPerMinute,
		WindowDuration:    time.Minute,
	}, middleware.IPKeyFunc())

	var handler http.Handler = globalLimit(mux)
	if len(deps.cfg.CORSAllowedOrigins) > 0 {
		handler = middleware.CORS(middleware.DefaultCORSConfig(deps.cfg.CORSAllowedOrigins))(handler)
	}
	handler = middleware.HTTPMetrics(deps.httpMetrics)(handler)
	handler = middleware.Tracing("marketd")(handler)
	handler = middleware.Logging(deps.logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

// handlerDeps bundles everything newHandler wires into the route table.
type handlerDeps struct {
	cfg            *config.Config
	logger         *slog.Logger
	repo           listing.Repository
	searchSvc      *search.Service
	tracker        *analytics.Tracker
	jwtSvc         *auth.JWTService
	registry       *prometheus.Registry
	httpMetrics    *middleware.Metrics
	rateLimitStore middleware.RateLimitStore
	dbChecker      api.HealthChecker
	redisChecker   api.HealthChecker
}
