// Command cleanup runs a single expired refresh token sweep and exits.
// It is meant for deployments that schedule cleanup externally (crontab,
// Kubernetes CronJob) with cleanup.enabled=false on the API servers.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/puttlab/backend/internal/config"
	"github.com/puttlab/backend/internal/models"
	"github.com/puttlab/backend/internal/services"
	"github.com/puttlab/backend/internal/store"
	"github.com/puttlab/backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum run time")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to read .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()
	job := services.NewTokenCleanupJob(store.NewRefreshTokenStore(db), store.NewSchedulerLockStore(db))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := job.RunOnce(ctx)
	if err != nil {
		logger.Fatalf("Token cleanup failed: %v", err)
	}
	logger.Info().
		Int64("revoked", res.Revoked).
		Int64("expired", res.Expired).
		Int64("total", res.Total).
		Int64("stale_locks", res.StaleLocks).
		Msg("Token cleanup finished")
}
