package main

import (
	"context"
	"time"

	"github.com/puttlab/backend/internal/config"
	"github.com/puttlab/backend/internal/handlers"
	"github.com/puttlab/backend/internal/middleware"
	"github.com/puttlab/backend/internal/models"
	"github.com/puttlab/backend/internal/services"
	"github.com/puttlab/backend/internal/store"
	"github.com/puttlab/backend/internal/utils"
	"github.com/puttlab/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg              *config.Config
	signer           *utils.TokenSigner
	limiters         *middleware.MemoryLimiterStore
	cleanupScheduler services.CleanupScheduler
	authHandler      *handlers.AuthHandler
	practiceHandler  *handlers.PracticeHandler
	healthHandler    *handlers.HealthHandler
}

// bootstrap connects and migrates the database, then wires the application on top of it.
func bootstrap(cfg *config.Config) *appServices {
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	svc, err := newAppServices(cfg, models.GetDB())
	if err != nil {
		logger.Fatalf("Failed to initialize services: %v", err)
	}
	return svc
}

func newAppServices(cfg *config.Config, db *gorm.DB) (*appServices, error) {
	users := store.NewUserStore(db)
	tokens := store.NewRefreshTokenStore(db)
	locks := store.NewSchedulerLockStore(db)
	practice := store.NewPracticeStore(db)

	passwords, err := services.NewBcryptVerifier(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	signer := utils.NewTokenSigner(cfg.JWT.Secret)

	authService := services.NewAuthService(users, tokens, passwords, signer)
	practiceService := services.NewPracticeService(practice)

	cleanupJob := services.NewTokenCleanupJob(tokens, locks)
	var scheduler services.CleanupScheduler
	if cfg.Cleanup.Enabled {
		scheduler = services.NewCleanupScheduler(cfg, cleanupJob, locks)
	}

	svc := &appServices{
		cfg:              cfg,
		signer:           signer,
		limiters:         middleware.NewMemoryLimiterStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst, limiterIdleTTL),
		cleanupScheduler: scheduler,
		authHandler:      handlers.NewAuthHandler(authService),
		practiceHandler:  handlers.NewPracticeHandler(practiceService),
	}
	svc.healthHandler = handlers.NewHealthHandler(db, svc.cleanupMode)
	return svc, nil
}

func (s *appServices) cleanupMode() string {
	if s.cleanupScheduler == nil {
		return "disabled"
	}
	return s.cleanupScheduler.Mode()
}

// start launches the background work: token cleanup and the rate limiter janitor.
func (s *appServices) start(ctx context.Context) {
	if s.cleanupScheduler != nil {
		if err := s.cleanupScheduler.Start(); err != nil {
			logger.Errorf("Failed to start token cleanup scheduler: %v", err)
		}
	}
	if s.cfg.RateLimit.Enabled {
		go s.limiters.Janitor(ctx, limiterSweepInterval)
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	if s.cleanupScheduler != nil {
		s.cleanupScheduler.Stop()
	}
	logger.Info().Msg("All schedulers stopped")
}
