package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puttlab/backend/internal/config"
	"github.com/puttlab/backend/internal/store"
	"github.com/puttlab/backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const cleanupLockName = "token_cleanup"

// CleanupResult reports what one cleanup pass removed.
type CleanupResult struct {
	Revoked    int64 `json:"revoked"`
	Expired    int64 `json:"expired"`
	Total      int64 `json:"total"`
	StaleLocks int64 `json:"stale_locks"`
}

// CleanupRunner is implemented by TokenCleanupJob.
type CleanupRunner interface {
	RunOnce(ctx context.Context) (*CleanupResult, error)
}

// TokenCleanupJob deletes refresh token rows whose expiry has passed. Active
// rows are never touched, so it is safe to run alongside live traffic.
type TokenCleanupJob struct {
	tokens store.RefreshTokenStore
	locks  store.SchedulerLockStore
	now    func() time.Time
}

func NewTokenCleanupJob(tokens store.RefreshTokenStore, locks store.SchedulerLockStore) *TokenCleanupJob {
	return &TokenCleanupJob{tokens: tokens, locks: locks, now: utcNow}
}

func (j *TokenCleanupJob) RunOnce(ctx context.Context) (*CleanupResult, error) {
	now := j.now()

	deleted, err := j.tokens.DeleteExpired(ctx, now)
	if err != nil {
		logger.Error().Err(err).Msg("[TokenCleanup] failed to delete expired tokens")
		return nil, err
	}

	result := &CleanupResult{
		Revoked: deleted.Revoked,
		Expired: deleted.Expired,
		Total:   deleted.Total(),
	}

	if j.locks != nil {
		stale, err := j.locks.DeleteStale(ctx, now)
		if err != nil {
			logger.Warn().Err(err).Msg("[TokenCleanup] failed to delete stale scheduler locks")
		}
		result.StaleLocks = stale
	}

	logger.Info().
		Int64("revoked", result.Revoked).
		Int64("expired", result.Expired).
		Int64("total", result.Total).
		Msg("[TokenCleanup] expired refresh tokens removed")
	return result, nil
}

// CleanupScheduler triggers the cleanup job periodically.
type CleanupScheduler interface {
	Start() error
	Stop()
	Mode() string
}

// CronCleanupScheduler runs the job in-process on a cron schedule. Each
// tick takes a database lock first so that with several instances only one
// of them cleans per period.
type CronCleanupScheduler struct {
	job      CleanupRunner
	locks    store.SchedulerLockStore
	cfg      config.CleanupConfig
	holder   string
	now      func() time.Time
	cron     *cron.Cron
	entryID  cron.EntryID
	mu       sync.Mutex
	inflight sync.WaitGroup
}

func NewCronCleanupScheduler(job CleanupRunner, locks store.SchedulerLockStore, cfg config.CleanupConfig) *CronCleanupScheduler {
	return &CronCleanupScheduler{
		job:    job,
		locks:  locks,
		cfg:    cfg,
		holder: uuid.NewString(),
		now:    utcNow,
	}
}

func (s *CronCleanupScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	entryID, err := c.AddFunc(s.cfg.Schedule, func() { s.tick() })
	if err != nil {
		return err
	}
	s.cron = c
	s.entryID = entryID
	c.Start()

	if s.cfg.RunOnStart {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.tick()
		}()
	}

	logger.Infof("[TokenCleanup] Scheduler started (cron: %s)", s.cfg.Schedule)
	return nil
}

func (s *CronCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.inflight.Wait()
	s.cron = nil
	logger.Infof("[TokenCleanup] Scheduler stopped")
}

func (s *CronCleanupScheduler) Mode() string { return "cron" }

// tick runs one locked cleanup pass; it reports whether this instance ran it.
func (s *CronCleanupScheduler) tick() bool {
	ctx := context.Background()
	now := s.now()

	if s.locks != nil {
		key := now.Truncate(s.cfg.LockTTL).Format(time.RFC3339)
		acquired, err := s.locks.TryAcquire(ctx, cleanupLockName, key, s.holder, s.cfg.LockTTL, now)
		if err != nil {
			logger.Error().Err(err).Msg("[TokenCleanup] failed to acquire scheduler lock")
			return false
		}
		if !acquired {
			logger.Debug().Str("key", key).Msg("[TokenCleanup] another instance holds the lock, skipping")
			return false
		}
	}

	if _, err := s.job.RunOnce(ctx); err != nil {
		return false
	}
	return true
}
