package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/cookistry/backend/config"
	"github.com/pageza/cookistry/backend/internal/database"
	"github.com/pageza/cookistry/backend/internal/media"
	"github.com/pageza/cookistry/backend/internal/metrics"
	"github.com/pageza/cookistry/backend/internal/router"
	"github.com/pageza/cookistry/backend/internal/server"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.Open(cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	if cfg.Database.AutoMigrate || cfg.Database.Driver == "sqlite" {
		if err := database.Migrate(db, appLogger); err != nil {
			appLogger.Fatal("Failed to migrate database", "error", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = database.NewRedisClient(cfg.Redis, appLogger)
		if err != nil {
			// Rate limiting is skipped without Redis.
			appLogger.Warn("Redis unavailable, rate limiting disabled", "error", err)
			redisClient = nil
		}
	}

	var mediaStore service.MediaStore
	s3Cfg, err := config.NewS3Config(context.Background(), cfg.Storage)
	switch {
	case err == nil:
		mediaStore = media.NewS3Store(s3Cfg)
		appLogger.Info("Media uploads enabled", "bucket", s3Cfg.BucketName)
	case errors.Is(err, config.ErrStorageDisabled):
		appLogger.Info("Media uploads disabled, recipes use the default image")
	default:
		appLogger.Warn("Failed to configure media storage", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.New(router.Deps{
		Config:  cfg,
		DB:      db,
		Redis:   redisClient,
		Media:   mediaStore,
		Metrics: metrics.New(reg),
		Logger:  appLogger,
	})

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			appLogger.Fatal("Server error", "error", err)
		}
	case sig := <-quit:
		appLogger.Info("Received signal", "signal", sig.String())
	}

	appLogger.Info("Shutting down server")
	if err := srv.Shutdown(context.Background()); err != nil {
		appLogger.Error("Server shutdown error", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	appLogger.Info("Server stopped")
}
