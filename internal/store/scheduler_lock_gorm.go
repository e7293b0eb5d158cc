package store

import (
	"context"
	"errors"
	"time"

	"github.com/puttlab/backend/internal/models"
	"gorm.io/gorm"
)

type GormSchedulerLockStore struct {
	db *gorm.DB
}

func NewSchedulerLockStore(db *gorm.DB) *GormSchedulerLockStore {
	return &GormSchedulerLockStore{db: db}
}

func (s *GormSchedulerLockStore) TryAcquire(ctx context.Context, name, key, holder string, ttl time.Duration, now time.Time) (bool, error) {
	db := s.db.WithContext(ctx)

	// a crashed holder must not block the pair forever
	if err := db.Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Delete(&models.SchedulerLock{}).Error; err != nil {
		return false, err
	}

	lock := &models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  holder,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.Create(lock).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *GormSchedulerLockStore) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.SchedulerLock{})
	return result.RowsAffected, result.Error
}
