// Package store holds the persistence interfaces used by the services and
// their gorm implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/puttlab/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrTokenNotActive is returned when a conditional revoke matched no
	// active row: unknown hash, already revoked, or expired.
	ErrTokenNotActive = errors.New("refresh token not active")
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

type RefreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeIfActive sets revoked_at = now on the row with this hash only if it
	// is still active, and returns that row. Exactly one of any number of
	// concurrent callers for the same hash succeeds.
	RevokeIfActive(ctx context.Context, hash string, now time.Time) (*models.RefreshToken, error)
	MarkReplaced(ctx context.Context, id, successorID string) error
	DeleteExpired(ctx context.Context, now time.Time) (DeleteResult, error)
	// Transaction runs fn against a store bound to a single transaction.
	// Returning an error from fn rolls it back.
	Transaction(ctx context.Context, fn func(tx RefreshTokenStore) error) error
}

// DeleteResult counts removed refresh token rows by their state before removal.
type DeleteResult struct {
	Revoked int64
	Expired int64
}

func (r DeleteResult) Total() int64 { return r.Revoked + r.Expired }

type SchedulerLockStore interface {
	// TryAcquire inserts a (name, key) lock row. It returns false without
	// error when another holder already owns an unexpired lock for the pair.
	TryAcquire(ctx context.Context, name, key, holder string, ttl time.Duration, now time.Time) (bool, error)
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

type PracticeStore interface {
	ListTemplates(ctx context.Context, userID string, page, pageSize int) ([]models.TestTemplate, int64, error)
	GetTemplate(ctx context.Context, userID, id string) (*models.TestTemplate, error)
	CreateTemplate(ctx context.Context, t *models.TestTemplate) error
	UpdateTemplate(ctx context.Context, userID, id string, updates map[string]interface{}) (*models.TestTemplate, error)
	DeleteTemplate(ctx context.Context, userID, id string) error

	ListRounds(ctx context.Context, userID, templateID string, page, pageSize int) ([]models.Round, int64, error)
	GetRound(ctx context.Context, userID, id string) (*models.Round, error)
	CreateRound(ctx context.Context, r *models.Round) error
	DeleteRound(ctx context.Context, userID, id string) error
}
