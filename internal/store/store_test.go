package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/puttlab/backend/internal/config"
	"github.com/puttlab/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "hash"}
	require.NoError(t, NewUserStore(db).Create(context.Background(), u))
	return u
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewUserStore(db)

	u := createUser(t, db, "ann@example.com")

	got, err := s.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.FindByEmail(ctx, "ANN@example.com")
	assert.ErrorIs(t, err, ErrNotFound, "email lookup is exact")

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Create(ctx, &models.User{Email: "ann@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicate)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateLastLogin(ctx, u.ID, at))
	got, err = s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(at))

	assert.ErrorIs(t, s.UpdateLastLogin(ctx, "missing", at), ErrNotFound)
}

func TestRefreshTokenStore_RevokeIfActive(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewRefreshTokenStore(db)
	u := createUser(t, db, "bob@example.com")
	now := time.Now().UTC()

	active := &models.RefreshToken{UserID: u.ID, TokenHash: "active", ExpiresAt: now.Add(time.Hour)}
	expired := &models.RefreshToken{UserID: u.ID, TokenHash: "expired", ExpiresAt: now.Add(-time.Second)}
	require.NoError(t, s.Create(ctx, active))
	require.NoError(t, s.Create(ctx, expired))

	err := s.Create(ctx, &models.RefreshToken{UserID: u.ID, TokenHash: "active", ExpiresAt: now})
	assert.ErrorIs(t, err, ErrDuplicate)

	row, err := s.RevokeIfActive(ctx, "active", now)
	require.NoError(t, err)
	assert.Equal(t, active.ID, row.ID)
	assert.Equal(t, u.ID, row.UserID)
	require.NotNil(t, row.RevokedAt)

	_, err = s.RevokeIfActive(ctx, "active", now)
	assert.ErrorIs(t, err, ErrTokenNotActive, "second revoke must not match")

	_, err = s.RevokeIfActive(ctx, "expired", now)
	assert.ErrorIs(t, err, ErrTokenNotActive)

	_, err = s.RevokeIfActive(ctx, "unknown", now)
	assert.ErrorIs(t, err, ErrTokenNotActive)

	stored, err := s.FindByHash(ctx, "expired")
	require.NoError(t, err)
	assert.Nil(t, stored.RevokedAt, "expired row left untouched")
}

func TestRefreshTokenStore_ConcurrentRevokeSingleWinner(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewRefreshTokenStore(db)
	u := createUser(t, db, "race@example.com")
	now := time.Now().UTC()
	require.NoError(t, s.Create(ctx, &models.RefreshToken{UserID: u.ID, TokenHash: "h", ExpiresAt: now.Add(time.Hour)}))

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, losses := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RevokeIfActive(ctx, "h", now)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, ErrTokenNotActive) {
				losses++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, losses)
}

func TestRefreshTokenStore_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewRefreshTokenStore(db)
	u := createUser(t, db, "tx@example.com")
	now := time.Now().UTC()
	require.NoError(t, s.Create(ctx, &models.RefreshToken{UserID: u.ID, TokenHash: "old", ExpiresAt: now.Add(time.Hour)}))

	err := s.Transaction(ctx, func(tx RefreshTokenStore) error {
		if _, err := tx.RevokeIfActive(ctx, "old", now); err != nil {
			return err
		}
		if err := tx.Create(ctx, &models.RefreshToken{UserID: u.ID, TokenHash: "new", ExpiresAt: now.Add(time.Hour)}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	old, err := s.FindByHash(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, old.RevokedAt, "revoke rolled back")
	_, err = s.FindByHash(ctx, "new")
	assert.ErrorIs(t, err, ErrNotFound, "successor rolled back")
}

func TestRefreshTokenStore_MarkReplaced(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewRefreshTokenStore(db)
	u := createUser(t, db, "chain@example.com")
	now := time.Now().UTC()

	old := &models.RefreshToken{UserID: u.ID, TokenHash: "a", ExpiresAt: now.Add(time.Hour)}
	next := &models.RefreshToken{UserID: u.ID, TokenHash: "b", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.Create(ctx, old))
	require.NoError(t, s.Create(ctx, next))

	require.NoError(t, s.MarkReplaced(ctx, old.ID, next.ID))
	got, err := s.FindByHash(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got.ReplacedByTokenID)
	assert.Equal(t, next.ID, *got.ReplacedByTokenID)

	assert.ErrorIs(t, s.MarkReplaced(ctx, "missing", next.ID), ErrNotFound)
}

func TestRefreshTokenStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewRefreshTokenStore(db)
	u := createUser(t, db, "sweep@example.com")
	now := time.Now().UTC()
	revokedAt := now.Add(-48 * time.Hour)

	rows := []*models.RefreshToken{
		{TokenHash: "active", ExpiresAt: now.Add(time.Hour)},
		{TokenHash: "revoked-live", ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt},
		{TokenHash: "expired", ExpiresAt: now.Add(-time.Hour)},
		{TokenHash: "expired-2", ExpiresAt: now.Add(-24 * time.Hour)},
		{TokenHash: "revoked-expired", ExpiresAt: now.Add(-time.Minute), RevokedAt: &revokedAt},
	}
	for _, r := range rows {
		r.UserID = u.ID
		require.NoError(t, s.Create(ctx, r))
	}

	res, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Revoked)
	assert.Equal(t, int64(2), res.Expired)
	assert.Equal(t, int64(3), res.Total())

	for _, hash := range []string{"active", "revoked-live"} {
		_, err := s.FindByHash(ctx, hash)
		assert.NoError(t, err, "%s must survive cleanup", hash)
	}
	for _, hash := range []string{"expired", "expired-2", "revoked-expired"} {
		_, err := s.FindByHash(ctx, hash)
		assert.ErrorIs(t, err, ErrNotFound, "%s must be deleted", hash)
	}

	res, err = s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, res.Total())
}

func TestSchedulerLockStore(t *testing.T) {
	ctx := context.Background()
	s := NewSchedulerLockStore(newTestDB(t))
	now := time.Now().UTC()

	ok, err := s.TryAcquire(ctx, "token_cleanup", "k1", "a", time.Minute, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryAcquire(ctx, "token_cleanup", "k1", "b", time.Minute, now)
	require.NoError(t, err)
	assert.False(t, ok, "held lock")

	ok, err = s.TryAcquire(ctx, "token_cleanup", "k2", "b", time.Minute, now)
	require.NoError(t, err)
	assert.True(t, ok, "different key")

	later := now.Add(2 * time.Minute)
	ok, err = s.TryAcquire(ctx, "token_cleanup", "k1", "b", time.Minute, later)
	require.NoError(t, err)
	assert.True(t, ok, "stale lock is taken over")

	n, err := s.DeleteStale(ctx, later.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPracticeStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewPracticeStore(db)
	owner := createUser(t, db, "owner@example.com")
	other := createUser(t, db, "other@example.com")

	tpl := &models.TestTemplate{UserID: owner.ID, Name: "Ladder 3-6-9", PuttsPerRound: 9, DistanceFeet: 6}
	require.NoError(t, s.CreateTemplate(ctx, tpl))

	_, err := s.GetTemplate(ctx, other.ID, tpl.ID)
	assert.ErrorIs(t, err, ErrNotFound, "templates are scoped to their owner")

	updated, err := s.UpdateTemplate(ctx, owner.ID, tpl.ID, map[string]interface{}{"name": "Ladder"})
	require.NoError(t, err)
	assert.Equal(t, "Ladder", updated.Name)

	round := &models.Round{UserID: owner.ID, TemplateID: tpl.ID, PuttsMade: 6, PuttsAttempted: 9, PlayedAt: time.Now().UTC()}
	require.NoError(t, s.CreateRound(ctx, round))

	rounds, total, err := s.ListRounds(ctx, owner.ID, tpl.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rounds, 1)
	require.NotNil(t, rounds[0].Template)
	assert.Equal(t, "Ladder", rounds[0].Template.Name)

	templates, total, err := s.ListTemplates(ctx, other.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, templates)

	assert.ErrorIs(t, s.DeleteRound(ctx, other.ID, round.ID), ErrNotFound)
	require.NoError(t, s.DeleteTemplate(ctx, owner.ID, tpl.ID))
	_, err = s.GetRound(ctx, owner.ID, round.ID)
	assert.ErrorIs(t, err, ErrNotFound, "rounds deleted with their template")
	assert.ErrorIs(t, s.DeleteTemplate(ctx, owner.ID, tpl.ID), ErrNotFound)
}
