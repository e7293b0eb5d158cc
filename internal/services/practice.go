package services

import (
	"context"
	"errors"
	"time"

	"github.com/puttlab/backend/internal/models"
	"github.com/puttlab/backend/internal/store"
	"github.com/puttlab/backend/pkg/logger"
)

type PracticeService struct {
	store store.PracticeStore
	now   func() time.Time
}

func NewPracticeService(s store.PracticeStore) *PracticeService {
	return &PracticeService{store: s, now: utcNow}
}

type ListRequest struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	TemplateID string `form:"template_id"`
}

func (r *ListRequest) normalize() {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = 20
	}
	if r.PageSize > 100 {
		r.PageSize = 100
	}
}

type CreateTemplateRequest struct {
	Name          string  `json:"name" binding:"required,max=200"`
	Description   string  `json:"description"`
	DistanceFeet  float64 `json:"distance_feet" binding:"gte=0"`
	PuttsPerRound int     `json:"putts_per_round" binding:"required,min=1,max=1000"`
}

type UpdateTemplateRequest struct {
	Name          *string  `json:"name" binding:"omitempty,max=200"`
	Description   *string  `json:"description"`
	DistanceFeet  *float64 `json:"distance_feet" binding:"omitempty,gte=0"`
	PuttsPerRound *int     `json:"putts_per_round" binding:"omitempty,min=1,max=1000"`
}

type CreateRoundRequest struct {
	TemplateID     string     `json:"template_id" binding:"required"`
	PuttsMade      int        `json:"putts_made" binding:"gte=0"`
	PuttsAttempted int        `json:"putts_attempted" binding:"gte=0"`
	Notes          string     `json:"notes"`
	PlayedAt       *time.Time `json:"played_at"`
}

// ErrInvalidRound is returned when a round's counts are inconsistent with
// each other or with its template.
var ErrInvalidRound = errors.New("putts made cannot exceed putts attempted or the template's putts per round")

func (s *PracticeService) ListTemplates(ctx context.Context, userID string, req *ListRequest) ([]models.TestTemplate, int64, error) {
	req.normalize()
	items, total, err := s.store.ListTemplates(ctx, userID, req.Page, req.PageSize)
	if err != nil {
		return nil, 0, s.internal("list templates", err)
	}
	return items, total, nil
}

func (s *PracticeService) GetTemplate(ctx context.Context, userID, id string) (*models.TestTemplate, error) {
	t, err := s.store.GetTemplate(ctx, userID, id)
	return t, s.mapErr("get template", err)
}

func (s *PracticeService) CreateTemplate(ctx context.Context, userID string, req *CreateTemplateRequest) (*models.TestTemplate, error) {
	t := &models.TestTemplate{
		UserID:        userID,
		Name:          req.Name,
		Description:   req.Description,
		DistanceFeet:  req.DistanceFeet,
		PuttsPerRound: req.PuttsPerRound,
	}
	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return nil, s.internal("create template", err)
	}
	return t, nil
}

func (s *PracticeService) UpdateTemplate(ctx context.Context, userID, id string, req *UpdateTemplateRequest) (*models.TestTemplate, error) {
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DistanceFeet != nil {
		updates["distance_feet"] = *req.DistanceFeet
	}
	if req.PuttsPerRound != nil {
		updates["putts_per_round"] = *req.PuttsPerRound
	}

	t, err := s.store.UpdateTemplate(ctx, userID, id, updates)
	return t, s.mapErr("update template", err)
}

func (s *PracticeService) DeleteTemplate(ctx context.Context, userID, id string) error {
	return s.mapErr("delete template", s.store.DeleteTemplate(ctx, userID, id))
}

func (s *PracticeService) ListRounds(ctx context.Context, userID string, req *ListRequest) ([]models.Round, int64, error) {
	req.normalize()
	items, total, err := s.store.ListRounds(ctx, userID, req.TemplateID, req.Page, req.PageSize)
	if err != nil {
		return nil, 0, s.internal("list rounds", err)
	}
	return items, total, nil
}

func (s *PracticeService) GetRound(ctx context.Context, userID, id string) (*models.Round, error) {
	r, err := s.store.GetRound(ctx, userID, id)
	return r, s.mapErr("get round", err)
}

func (s *PracticeService) CreateRound(ctx context.Context, userID string, req *CreateRoundRequest) (*models.Round, error) {
	tpl, err := s.store.GetTemplate(ctx, userID, req.TemplateID)
	if err != nil {
		return nil, s.mapErr("create round: template", err)
	}

	attempted := req.PuttsAttempted
	if attempted == 0 {
		attempted = tpl.PuttsPerRound
	}
	if req.PuttsMade > attempted || attempted > tpl.PuttsPerRound {
		return nil, ErrInvalidRound
	}

	playedAt := s.now()
	if req.PlayedAt != nil {
		playedAt = req.PlayedAt.UTC()
	}

	r := &models.Round{
		UserID:         userID,
		TemplateID:     tpl.ID,
		PuttsMade:      req.PuttsMade,
		PuttsAttempted: attempted,
		Notes:          req.Notes,
		PlayedAt:       playedAt,
	}
	if err := s.store.CreateRound(ctx, r); err != nil {
		return nil, s.internal("create round", err)
	}
	r.Template = tpl
	return r, nil
}

func (s *PracticeService) DeleteRound(ctx context.Context, userID, id string) error {
	return s.mapErr("delete round", s.store.DeleteRound(ctx, userID, id))
}

func (s *PracticeService) mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	default:
		return s.internal(op, err)
	}
}

func (s *PracticeService) internal(op string, err error) error {
	logger.Error().Err(err).Str("op", op).Msg("[Practice] operation failed")
	return ErrInternal
}
