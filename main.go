// ABOUTME: Service entry point: config, database, services, HTTP server, scheduler
// ABOUTME: Shuts down gracefully on SIGINT/SIGTERM
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"

	"rss-digest/cache"
	"rss-digest/config"
	"rss-digest/driver"
	"rss-digest/handler"
	"rss-digest/middleware"
	"rss-digest/repository"
	"rss-digest/scheduler"
	"rss-digest/service"
	"rss-digest/summarize"
	"rss-digest/tokenize"
	"rss-digest/utils"
	"rss-digest/utils/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	contextLogger := logger.NewContextLogger(logger.LoadLoggerConfigFromEnv())
	log := contextLogger.Base()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := driver.InitDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbPool.Close()

	appCache, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	keyCipher, err := repository.NewKeyCipher(cfg.Secrets.ProviderKeySecret)
	if err != nil {
		return fmt.Errorf("failed to initialize key cipher: %w", err)
	}

	feedRepo := repository.NewFeedRepository(dbPool, log)
	articleRepo := repository.NewArticleRepository(dbPool, log)
	digestRepo := repository.NewDigestRepository(dbPool, log)
	providerRepo := repository.NewProviderRepository(dbPool, keyCipher, log)

	tok, err := tokenize.InitTokenizer()
	if err != nil {
		return fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	extractor := summarize.NewExtractor(tok)

	hostLimiter := utils.NewHostRateLimiter(cfg.Fetch.HostInterval)
	fetcher := service.NewFeedFetcherService(cfg.Fetch, hostLimiter, log)
	health := service.NewFeedHealthService(feedRepo, cfg.Health, log)
	sync := service.NewFeedSyncService(feedRepo, articleRepo, fetcher, health, cfg.Fetch, log)

	gateway := service.NewProviderGateway(providerRepo, appCache, cfg.Provider, cfg.Retry, log)
	registry := service.NewProviderRegistry(providerRepo, log)
	summarizer := service.NewSummarizerService(gateway, extractor, cfg.Digest, log)

	var vectorStore *driver.VectorStore
	if cfg.VectorStore.Enabled {
		vectorStore = driver.NewVectorStore(dbPool)
	}
	orchestrator := service.NewDigestOrchestrator(
		digestRepo, articleRepo, summarizer, gateway, vectorStore,
		cfg.Digest, cfg.VectorStore, log)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Use(middleware.RequestIDMiddleware())
	e.Use(middleware.LoggingMiddleware(contextLogger))

	handler.RegisterRoutes(e, &handler.Handlers{
		Health:   handler.NewHealthHandler(dbPool, log),
		Feed:     handler.NewFeedHandler(feedRepo, sync, health, cfg.Health.DegradedThreshold, cfg.Health.FailingThreshold, log),
		Article:  handler.NewArticleHandler(articleRepo, log),
		Digest:   handler.NewDigestHandler(digestRepo, orchestrator, log),
		Provider: handler.NewProviderHandler(registry, gateway, log),
	})

	sched := scheduler.New(cfg.Scheduler, sync, orchestrator, digestRepo, log)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("server stopped")
	return nil
}
