package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"wonchon/internal/amqp"
	"wonchon/internal/api"
	"wonchon/internal/auth"
	"wonchon/internal/backend"
	"wonchon/internal/cache"
	"wonchon/internal/cli"
	"wonchon/internal/draft"
	apphttp "wonchon/internal/http"
	applog "wonchon/internal/log"
	"wonchon/internal/metrics"
	"wonchon/internal/services"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = 5 * time.Minute
	apiRetryCount        = 2
)

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting wonchon",
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"api_base_url", cfg.APIBaseURL)

	// Filings and documents always live in SQLite.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	backendCfg.Repository = repo

	store, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize store backend", "error", err, "backend", cfg.StoreBackend)
		os.Exit(1)
	}

	tokens := auth.NewTokenStore(store.Store, cfg.TokenPassphrase)
	client := api.NewClient(api.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		RetryCount: apiRetryCount,
	}, tokens)

	businesses := services.NewBusinessService(client, cfg.CacheTTL)
	caches := cache.NewManager()
	for _, c := range businesses.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(cacheCleanupInterval)

	var (
		publisher  services.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - completed filings will not produce documents")
	}

	declarations := services.NewDeclarationService(draft.NewStore(store.Store), client, repo, publisher, services.DeclarationConfig{
		PollInterval: cfg.FilingPollInterval,
		PollTimeout:  cfg.FilingPollTimeout,
		OnFiled:      businesses.Invalidate,
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Tokens:       tokens,
		Login:        client,
		Receipts:     client,
		Businesses:   businesses,
		Declarations: declarations,
		Documents:    repo,
		Checks: []apphttp.ReadinessCheck{
			{Name: "sqlite", Check: repo.Ping},
		},
		Logger:             applog.New(applog.Config{Handler: logger.Handler(), Component: applog.ComponentHTTP}),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ExposeMetrics:      cfg.MetricsPort == "",
	})

	var metricsSrv *http.Server
	if cfg.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler())
		metricsSrv = &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Metrics server starting", "port", cfg.MetricsPort)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", "error", err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(ctx); err != nil {
				logger.Error("Metrics server shutdown error", "error", err)
			}
		}
		declarations.Shutdown()
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Store cleanup error", "error", err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Error("SQLite close error", "error", err)
		}
	})

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	slog.Info("Server stopped")
}
