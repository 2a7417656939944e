package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"trading-journal/config"
	"trading-journal/internal/analytics"
	"trading-journal/internal/api"
	"trading-journal/internal/cache"
	"trading-journal/internal/database"
	"trading-journal/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	// Connect to PostgreSQL
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background()); err != nil {
		logger.Fatal("Failed to run database migrations", "error", err)
	}
	logger.Info("Database initialized")

	// Snapshot cache (Redis with in-memory fallback)
	cacheSvc := cache.NewService(cfg.RedisConfig)
	defer cacheSvc.Close()

	// Analytics service
	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()
	repo := database.NewRepository(db)
	service := analytics.NewService(repo, cacheSvc, cfg.AnalyticsConfig, zl)

	// HTTP API
	server := api.NewServer(cfg.ServerConfig, cfg.AuthConfig, service)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting API server", "host", cfg.ServerConfig.Host, "port", cfg.ServerConfig.Port)
	if err := server.Start(ctx); err != nil {
		logger.Fatal("API server failed", "error", err)
	}
	logger.Info("Shutdown complete")
}
