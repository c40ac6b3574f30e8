// File: internal/domain/character.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Character publication status.
const (
	CharacterStatusDraft     = 1
	CharacterStatusPublished = 2
	CharacterStatusSuspended = 3
)

// Character is an AI persona. The conversation core consumes characters
// read-only; the catalog service owns their lifecycle.
type Character struct {
	ID                    string `gorm:"primarykey;size:36"`
	Name                  string `gorm:"size:50;not null"`
	Description           string `gorm:"type:text"`
	SystemPrompt          string `gorm:"type:text"`
	AppearanceDescription string `gorm:"type:text"`
	ImageURL              string `gorm:"size:500"`
	VoiceID               string `gorm:"size:20;not null;default:nova"`
	Status                int    `gorm:"not null;default:1"`
	DeletedAt             *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (c *Character) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.VoiceID == "" {
		c.VoiceID = "nova"
	}
	return nil
}

func (c *Character) IsPublished() bool {
	return c.Status == CharacterStatusPublished && c.DeletedAt == nil
}
