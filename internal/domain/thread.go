// File: internal/domain/thread.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Thread lifecycle states. A single repository-level filter on State
// replaces ad hoc deleted_at checks.
const (
	ThreadStateActive  = "active"
	ThreadStateDeleted = "deleted"
)

// Session types.
const (
	SessionTypeFree  = "free"
	SessionTypeEvent = "event"
)

// Thread represents a conversation session between one user and one character.
type Thread struct {
	ID          string `gorm:"primarykey;size:36"`
	UserID      string `gorm:"size:36;not null;index"`
	CharacterID string `gorm:"size:36;not null;index"`
	PackID      string `gorm:"size:36;index"` // optional provenance, empty when unknown
	SessionType string `gorm:"size:20;not null;default:free"`
	State       string `gorm:"size:20;not null;default:active;index"`
	StartedAt   time.Time
	EndedAt     *time.Time
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.SessionType == "" {
		t.SessionType = SessionTypeFree
	}
	if t.State == "" {
		t.State = ThreadStateActive
	}
	if t.StartedAt.IsZero() {
		t.StartedAt = time.Now().UTC()
	}
	return nil
}

func (t *Thread) IsActive() bool {
	return t.State == ThreadStateActive
}
