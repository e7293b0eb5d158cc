package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/puttlab/backend/internal/config"
	"github.com/puttlab/backend/internal/models"
	"github.com/puttlab/backend/internal/store"
	"github.com/puttlab/backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTokenCleanupJob_RunOnceKeepsActiveRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	live := env.register(t, "live@x.com", "Aa1!aaaa").RefreshToken
	loggedOut := env.register(t, "out@x.com", "Aa1!aaaa").RefreshToken
	_, err := env.auth.Logout(ctx, loggedOut)
	require.NoError(t, err)

	// tokens issued a month ago are past expiry now
	env.clock.Advance(-RefreshTokenTTL - time.Hour)
	stale := env.register(t, "stale@x.com", "Aa1!aaaa").RefreshToken
	staleRevoked := env.register(t, "stale-out@x.com", "Aa1!aaaa").RefreshToken
	_, err = env.auth.Logout(ctx, staleRevoked)
	require.NoError(t, err)
	env.clock.Advance(RefreshTokenTTL + time.Hour)

	job := NewTokenCleanupJob(env.tokens, env.locks)
	job.now = env.clock.Now

	res, err := job.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Revoked)
	assert.Equal(t, int64(1), res.Expired)
	assert.Equal(t, int64(2), res.Total)

	for _, token := range []string{live, loggedOut} {
		_, err := env.tokens.FindByHash(ctx, utils.HashToken(token))
		assert.NoError(t, err, "unexpired row must survive")
	}
	for _, token := range []string{stale, staleRevoked} {
		_, err := env.tokens.FindByHash(ctx, utils.HashToken(token))
		assert.ErrorIs(t, err, store.ErrNotFound)
	}

	_, err = env.auth.Refresh(ctx, live)
	assert.NoError(t, err, "cleanup does not disturb active sessions")
}

func TestTokenCleanupJob_StoreError(t *testing.T) {
	tokens := &refreshTokenStoreMock{}
	tokens.On("DeleteExpired", mock.Anything, mock.Anything).Return(store.DeleteResult{}, errors.New("locked"))

	_, err := NewTokenCleanupJob(tokens, nil).RunOnce(context.Background())
	assert.Error(t, err)
}

type cleanupRunnerMock struct{ mock.Mock }

func (m *cleanupRunnerMock) RunOnce(ctx context.Context) (*CleanupResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*CleanupResult)
	return res, args.Error(1)
}

func TestCronCleanupScheduler_TickTakesLock(t *testing.T) {
	env := newTestEnv(t)
	cfg := config.CleanupConfig{Enabled: true, Schedule: "@daily", LockTTL: 10 * time.Minute}

	job := &cleanupRunnerMock{}
	job.On("RunOnce", mock.Anything).Return(&CleanupResult{}, nil)

	first := NewCronCleanupScheduler(job, env.locks, cfg)
	second := NewCronCleanupScheduler(job, env.locks, cfg)
	first.now = env.clock.Now
	second.now = env.clock.Now

	assert.True(t, first.tick(), "first instance runs")
	assert.False(t, second.tick(), "second instance skips the same period")
	job.AssertNumberOfCalls(t, "RunOnce", 1)

	env.clock.Advance(cfg.LockTTL)
	assert.True(t, second.tick(), "next period is open again")
	job.AssertNumberOfCalls(t, "RunOnce", 2)

	var locks int64
	env.db.Model(&models.SchedulerLock{}).Count(&locks)
	assert.Equal(t, int64(2), locks)
}

func TestCronCleanupScheduler_StartStop(t *testing.T) {
	job := &cleanupRunnerMock{}
	done := make(chan struct{})
	job.On("RunOnce", mock.Anything).Run(func(mock.Arguments) { close(done) }).Return(&CleanupResult{}, nil).Once()

	s := NewCronCleanupScheduler(job, nil, config.CleanupConfig{Schedule: "@daily", RunOnStart: true, LockTTL: time.Minute})
	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second start is a no-op")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run on start did not happen")
	}
	s.Stop()
	s.Stop()
	assert.Equal(t, "cron", s.Mode())
}

func TestCronCleanupScheduler_BadSchedule(t *testing.T) {
	s := NewCronCleanupScheduler(&cleanupRunnerMock{}, nil, config.CleanupConfig{Schedule: "not a cron"})
	assert.Error(t, s.Start())
}

func TestCronCleanupScheduler_ScheduledEntryRunsJob(t *testing.T) {
	job := &cleanupRunnerMock{}
	done := make(chan struct{})
	job.On("RunOnce", mock.Anything).Run(func(mock.Arguments) { close(done) }).Return(&CleanupResult{}, nil).Once()

	s := NewCronCleanupScheduler(job, nil, config.CleanupConfig{Schedule: "@every 1s", LockTTL: time.Minute})
	require.NoError(t, s.Start())
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled cleanup did not run")
	}
}
