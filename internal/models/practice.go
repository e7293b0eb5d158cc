package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TestTemplate is a reusable putting drill definition owned by a user.
type TestTemplate struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"index;size:36;not null" json:"user_id"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	DistanceFeet  float64   `json:"distance_feet"`
	PuttsPerRound int       `gorm:"not null" json:"putts_per_round"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (TestTemplate) TableName() string { return "test_templates" }

func (t *TestTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Round is one recorded attempt at a template.
type Round struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	UserID         string        `gorm:"index;size:36;not null" json:"user_id"`
	TemplateID     string        `gorm:"index;size:36;not null" json:"template_id"`
	Template       *TestTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	PuttsMade      int           `json:"putts_made"`
	PuttsAttempted int           `json:"putts_attempted"`
	Notes          string        `gorm:"type:text" json:"notes"`
	PlayedAt       time.Time     `gorm:"index" json:"played_at"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (Round) TableName() string { return "rounds" }

func (r *Round) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// MakePercentage returns made/attempted as a percentage, 0 when nothing was attempted.
func (r *Round) MakePercentage() float64 {
	if r.PuttsAttempted == 0 {
		return 0
	}
	return float64(r.PuttsMade) / float64(r.PuttsAttempted) * 100
}
