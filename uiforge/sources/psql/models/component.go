package models

import (
	"strings"
	"time"

	"uiforge/uiforge/utils/jsonutils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var categories = map[string]string{
	"button":     "button",
	"form":       "form",
	"layout":     "layout",
	"navigation": "navigation",
	"display":    "display",
	"input":      "input",
	"feedback":   "feedback",
	"other":      "other",
	// older prompt vocabulary
	"ui":        "display",
	"data":      "display",
	"animation": "feedback",
	"utility":   "other",
}

// NormalizeCategory maps free-form model categories onto the stored set.
func NormalizeCategory(c string) string {
	if v, ok := categories[strings.ToLower(strings.TrimSpace(c))]; ok {
		return v
	}
	return "other"
}

func NormalizeComplexity(c string) string {
	switch c = strings.ToLower(strings.TrimSpace(c)); c {
	case "simple", "medium", "complex":
		return c
	}
	return "simple"
}

// Component is one saved version of a session's generated code. Versions of a
// session form a chain through ParentID, always pointing at an older row.
type Component struct {
	ID           uuid.UUID                   `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       int                         `json:"userId" gorm:"not null;index"`
	SessionID    uuid.UUID                   `json:"sessionId" gorm:"type:uuid;not null;index"`
	Name         string                      `json:"name" gorm:"type:varchar(100);not null"`
	Description  string                      `json:"description" gorm:"type:varchar(500)"`
	Code         ComponentCode               `json:"code" gorm:"embedded;embeddedPrefix:code_"`
	Dependencies datatypes.JSONSlice[string] `json:"dependencies"`
	Category     string                      `json:"category" gorm:"type:varchar(32);index"`
	Complexity   string                      `json:"complexity" gorm:"type:varchar(16)"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	Features     datatypes.JSONSlice[string] `json:"features"`
	AIModel      string                      `json:"aiModel" gorm:"type:varchar(100)"`
	Prompt       string                      `json:"prompt" gorm:"type:varchar(2000)"`
	Version      int                         `json:"version" gorm:"not null"`
	ParentID     *uuid.UUID                  `json:"parentId" gorm:"type:uuid;index"`
	Parent       *Component                  `json:"-" gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL"`
	IsLatest     bool                        `json:"isLatest" gorm:"index"`
	SnapshotKey  string                      `json:"snapshotKey,omitempty" gorm:"type:varchar(255)"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

func (c *Component) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Category = NormalizeCategory(c.Category)
	c.Complexity = NormalizeComplexity(c.Complexity)
	if c.Name == "" {
		c.Name = "GeneratedComponent"
	}
	c.Prompt = jsonutils.Truncate(c.Prompt, 2000)
	return nil
}
