package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Session is one conversation and the component it evolves.
// CurrentComponent only ever holds code from a completed generation.
type Session struct {
	ID               uuid.UUID                   `json:"id" gorm:"type:uuid;primaryKey"`
	UserID           int                         `json:"userId" gorm:"not null;index"`
	Title            string                      `json:"title" gorm:"type:varchar(100);not null"`
	Description      string                      `json:"description" gorm:"type:varchar(500)"`
	CurrentComponent ComponentCode               `json:"currentComponent" gorm:"embedded;embeddedPrefix:current_"`
	MessageCount     int                         `json:"messageCount" gorm:"not null"`
	LastActivity     time.Time                   `json:"lastActivity" gorm:"index"`
	AIModel          string                      `json:"aiModel" gorm:"type:varchar(100)"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
	IsPublic         bool                        `json:"isPublic"`
	AutoSave         bool                        `json:"autoSave"`
	Theme            string                      `json:"theme" gorm:"type:varchar(16)"`
	IsActive         bool                        `json:"-" gorm:"index"`
	CreatedAt        time.Time                   `json:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.LastActivity.IsZero() {
		s.LastActivity = time.Now()
	}
	if s.Theme == "" {
		s.Theme = ThemeLight
	}
	return nil
}
