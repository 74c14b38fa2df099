package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/config"
	"github.com/skynet/fieldvisit-bfa/internal/handler"
	"github.com/skynet/fieldvisit-bfa/internal/infra/api"
	"github.com/skynet/fieldvisit-bfa/internal/infra/cache"
	"github.com/skynet/fieldvisit-bfa/internal/infra/notify"
	"github.com/skynet/fieldvisit-bfa/internal/infra/observability"
	"github.com/skynet/fieldvisit-bfa/internal/infra/resilience"
	"github.com/skynet/fieldvisit-bfa/internal/infra/sessionstore"
	"github.com/skynet/fieldvisit-bfa/internal/port"
	"github.com/skynet/fieldvisit-bfa/internal/service"
	"github.com/skynet/fieldvisit-bfa/internal/session"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	// --- Flags ---
	flags := pflag.NewFlagSet("bfa", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	portOverride := flags.Int("port", 0, "listen port (overrides PORT)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(*envFile)

	// --- Config ---
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *portOverride > 0 {
		cfg.Port = *portOverride
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("api_url", cfg.APIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.String("session_backend", cfg.SessionBackend),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Duration("geo_timeout", cfg.GeoTimeout),
		zap.Strings("cors_allowed_origins", cfg.CORSAllowedOrigins),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	backendCB := resilience.NewCircuitBreaker("backend", logger)
	emailCB := resilience.NewCircuitBreaker("emailjs", logger)
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	apiClient := api.NewClient(httpClient, cfg.APIURL, backendCB, bulkhead, metrics, logger)

	notifier := notify.NewEmailJS(httpClient, notify.EmailJSConfig{
		URL:        cfg.EmailJSURL,
		ServiceID:  cfg.EmailJSServiceID,
		TemplateID: cfg.EmailJSTemplateID,
		PublicKey:  cfg.EmailJSPublicKey,
		PrivateKey: cfg.EmailJSPrivateKey,
	}, emailCB, logger)

	healthChecks := []handler.HealthCheck{{Name: "backend", Check: apiClient.Ping}}

	// --- Session store ---
	cookieOpts := sessionstore.CookieOptions{Secure: cfg.CookieSecure, Path: "/"}
	var store port.SessionStore
	switch cfg.SessionBackend {
	case config.SessionRedis:
		rdb, err := sessionstore.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		store = sessionstore.NewRedisStore(rdb, cookieOpts, logger)
		healthChecks = append(healthChecks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		logger.Info("sessions stored in redis", zap.String("addr", cfg.RedisAddr))
	case config.SessionMemory:
		store = sessionstore.NewMemoryStore(cache.New[port.SessionPair](cfg.SessionTTL), cookieOpts)
		logger.Warn("sessions stored in process memory, they do not survive a restart")
	default:
		store = sessionstore.NewCookieStore(cfg.SessionSecret, cookieOpts)
		logger.Info("sessions stored in signed cookies")
	}

	// --- Services ---
	services := handler.Services{
		Session:   session.NewService(store, apiClient, cfg.SessionTTL, metrics, logger),
		Users:     service.NewUserService(apiClient, logger),
		Clients:   service.NewClientService(apiClient, logger),
		Visits:    service.NewVisitService(apiClient, apiClient, apiClient, logger),
		Lifecycle: service.NewLifecycleService(apiClient, notifier, cfg.GeoTimeout, metrics, logger),
		Reports:   service.NewReportService(apiClient, apiClient, logger),
		Dashboard: service.NewDashboardService(apiClient, apiClient, logger),
	}

	// --- Router ---
	router := handler.NewRouter(services, handler.Options{
		MapsAPIKey:         cfg.MapsAPIKey,
		GeoTimeout:         cfg.GeoTimeout,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       healthChecks,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
