// File: internal/domain/message.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleCharacter = "character"
	RoleSystem    = "system"
)

// Message content types.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
)

// Message is one immutable turn in a thread. Messages carry no update
// timestamp: once written they are only ever hard-deleted (expiry sweep).
type Message struct {
	ID          string `gorm:"primarykey;size:36"`
	ThreadID    string `gorm:"size:36;not null;index"`
	Role        string `gorm:"size:20;not null"`
	ContentType string `gorm:"size:20;not null;default:text"`
	Content     string `gorm:"type:text;not null"`
	ImageURL    string `gorm:"size:500"`
	ExpiresAt   *time.Time `gorm:"index"` // set only for ephemeral derived media
	CreatedAt   time.Time  `gorm:"index"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.ContentType == "" {
		m.ContentType = ContentTypeText
	}
	return nil
}

func (m *Message) IsFromUser() bool {
	return m.Role == RoleUser
}

func (m *Message) IsFromCharacter() bool {
	return m.Role == RoleCharacter
}
