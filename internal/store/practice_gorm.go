package store

import (
	"context"

	"github.com/puttlab/backend/internal/models"
	"gorm.io/gorm"
)

type GormPracticeStore struct {
	db *gorm.DB
}

func NewPracticeStore(db *gorm.DB) *GormPracticeStore {
	return &GormPracticeStore{db: db}
}

func (s *GormPracticeStore) ListTemplates(ctx context.Context, userID string, page, pageSize int) ([]models.TestTemplate, int64, error) {
	var items []models.TestTemplate
	var total int64

	query := s.db.WithContext(ctx).Model(&models.TestTemplate{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

func (s *GormPracticeStore) GetTemplate(ctx context.Context, userID, id string) (*models.TestTemplate, error) {
	var t models.TestTemplate
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *GormPracticeStore) CreateTemplate(ctx context.Context, t *models.TestTemplate) error {
	return translate(s.db.WithContext(ctx).Create(t).Error)
}

func (s *GormPracticeStore) UpdateTemplate(ctx context.Context, userID, id string, updates map[string]interface{}) (*models.TestTemplate, error) {
	t, err := s.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return t, nil
	}
	if err := s.db.WithContext(ctx).Model(t).Updates(updates).Error; err != nil {
		return nil, translate(err)
	}
	return s.GetTemplate(ctx, userID, id)
}

// DeleteTemplate removes the template together with its rounds.
func (s *GormPracticeStore) DeleteTemplate(ctx context.Context, userID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ? AND user_id = ?", id, userID).Delete(&models.Round{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.TestTemplate{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormPracticeStore) ListRounds(ctx context.Context, userID, templateID string, page, pageSize int) ([]models.Round, int64, error) {
	var items []models.Round
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Round{}).Where("user_id = ?", userID)
	if templateID != "" {
		query = query.Where("template_id = ?", templateID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Template").
		Order("played_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

func (s *GormPracticeStore) GetRound(ctx context.Context, userID, id string) (*models.Round, error) {
	var r models.Round
	if err := s.db.WithContext(ctx).Preload("Template").Where("id = ? AND user_id = ?", id, userID).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormPracticeStore) CreateRound(ctx context.Context, r *models.Round) error {
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

func (s *GormPracticeStore) DeleteRound(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Round{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
