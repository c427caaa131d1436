package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Saeid202/product-importer/internal/api"
	"github.com/Saeid202/product-importer/internal/browser"
	"github.com/Saeid202/product-importer/internal/config"
	"github.com/Saeid202/product-importer/internal/connector"
	"github.com/Saeid202/product-importer/internal/database"
	"github.com/Saeid202/product-importer/internal/jobs"
	"github.com/Saeid202/product-importer/internal/pdfimport"
	"github.com/Saeid202/product-importer/internal/queue"
	"github.com/Saeid202/product-importer/internal/ratelimit"
	"github.com/Saeid202/product-importer/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database connection
	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis client for the outbox relay
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	relay := database.NewRelay(db, redisClient, logger, database.RelayConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
	})
	go func() {
		if err := relay.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("relay stopped with error", "error", err)
		}
	}()

	// Browser setup
	b, err := browser.New(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
		ProxyServer:    cfg.Browser.ProxyServer,
	})
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	// PDF pipeline; OCR is optional and off by default
	var recognizer pdfimport.Recognizer
	if cfg.PDF.OCREnabled {
		ocr, err := pdfimport.NewTesseractOCR(cfg.PDF.OCRLanguage)
		if err != nil {
			logger.Error("failed to initialize OCR", "error", err)
			os.Exit(1)
		}
		defer ocr.Close()
		recognizer = ocr.Recognizer()
	}
	detector := pdfimport.NewDetector(recognizer, logger)
	opener := func(path string) (pdfimport.ContentSource, error) {
		return pdfimport.OpenWithDPI(path, cfg.PDF.RenderDPI)
	}
	pdfService := pdfimport.NewService(opener, detector, logger)

	// Job store survives restarts on disk
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.JobsFile), 0755); err != nil {
		logger.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}
	jobStore, err := storage.NewJobStore(cfg.Storage.JobsFile)
	if err != nil {
		logger.Error("failed to open job store", "error", err)
		os.Exit(1)
	}

	products := database.NewProductRepository(db)

	managerCfg := jobs.Config{
		Queue:    queue.NewInMemoryQueue(),
		Store:    jobStore,
		Sink:     products,
		Scrapers: jobs.SiteScrapers(b),
		PDF:      pdfService,
		Limiter:  ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax),
		Workers:  cfg.Scraper.Workers,
		Logger:   logger,
	}
	if cfg.Dashboard.Enabled {
		managerCfg.Dashboard = connector.NewClient(cfg.Dashboard.BaseURL, logger)
	}

	manager := jobs.NewManager(managerCfg)
	manager.Start(ctx)

	handlers := api.NewHandlers(manager, jobStore, products, cfg.Storage.UploadDir, logger)
	router := api.NewRouter(handlers)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down...")
		cancel()
		manager.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
