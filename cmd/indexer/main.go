package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"willvault/internal/api"
	"willvault/internal/config"
	"willvault/internal/eventlog"
	"willvault/internal/projection"
	"willvault/internal/projection/retry"
	"willvault/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🌟 Starting WillVault Indexer...")

	// 1. Load configuration
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"http_port", cfg.HTTPPort,
		"poll_interval", cfg.PollInterval,
		"page_size", cfg.PageSize,
		"log_level", cfg.LogLevel,
		"environment", cfg.Environment,
	)

	// 3. Apply migrations
	ctx := context.Background()
	if err := storage.Migrate(ctx, cfg.DatabaseURL); err != nil {
		log.Fatalf("❌ Failed to apply migrations: %v", err)
	}
	slog.Info("Migrations applied")

	// 4. Initialize database connection
	repository, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer repository.Close()
	slog.Info("Database connected successfully")

	// 5. Wire the projection against the shared pool
	journal := eventlog.NewPostgresLog(repository.Pool())
	applier := projection.NewApplier(repository)
	strategy := retry.NewStrategy(retry.LoadConfig())
	runner := projection.NewRunner(journal, repository, applier, strategy, projection.Options{
		PollInterval:   cfg.PollInterval,
		PageSize:       cfg.PageSize,
		ReplayFromZero: cfg.ReplayFromZero,
	})

	// 6. Start the query API
	server := api.NewServer(cfg.HTTPPort, repository, cfg.Development())
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Failed to start API server: %v", err)
	}

	// 7. Setup graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Run the projection in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			errChan <- err
		}
	}()

	// Wait for interrupt or error
	select {
	case <-sigChan:
		slog.Warn("Interrupt received, shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error stopping API server", "error", err)
		}
	case err := <-errChan:
		slog.Error("Projection error", "error", err)
		os.Exit(1)
	}

	slog.Info("Indexer stopped")
}
