package store

import (
	"context"
	"time"

	"github.com/puttlab/backend/internal/models"
	"gorm.io/gorm"
)

type GormRefreshTokenStore struct {
	db *gorm.DB
}

func NewRefreshTokenStore(db *gorm.DB) *GormRefreshTokenStore {
	return &GormRefreshTokenStore{db: db}
}

func (s *GormRefreshTokenStore) Create(ctx context.Context, token *models.RefreshToken) error {
	return translate(s.db.WithContext(ctx).Create(token).Error)
}

func (s *GormRefreshTokenStore) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (s *GormRefreshTokenStore) RevokeIfActive(ctx context.Context, hash string, now time.Time) (*models.RefreshToken, error) {
	result := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", hash, now).
		Update("revoked_at", now)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTokenNotActive
	}
	return s.FindByHash(ctx, hash)
}

func (s *GormRefreshTokenStore) MarkReplaced(ctx context.Context, id, successorID string) error {
	result := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Update("replaced_by_token_id", successorID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes rows whose expires_at has passed. Rows that are still
// inside their lifetime are never touched, revoked or not.
func (s *GormRefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (DeleteResult, error) {
	var res DeleteResult

	revoked := s.db.WithContext(ctx).
		Where("expires_at < ? AND revoked_at IS NOT NULL", now).
		Delete(&models.RefreshToken{})
	if revoked.Error != nil {
		return res, revoked.Error
	}
	res.Revoked = revoked.RowsAffected

	expired := s.db.WithContext(ctx).
		Where("expires_at < ? AND revoked_at IS NULL", now).
		Delete(&models.RefreshToken{})
	if expired.Error != nil {
		return res, expired.Error
	}
	res.Expired = expired.RowsAffected

	return res, nil
}

func (s *GormRefreshTokenStore) Transaction(ctx context.Context, fn func(tx RefreshTokenStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRefreshTokenStore(tx))
	})
}
