// File: internal/dtos/message.go
package dtos

import (
	"time"

	"github.com/aiwill/companion-api/internal/domain"
	"github.com/aiwill/companion-api/internal/services/conversation"
)

// SendMessageRequest carries the user's turn.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SceneImageRequest selects the messages a scene image is derived from.
type SceneImageRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// MessageResponse is the wire form of a message.
type MessageResponse struct {
	ID          string     `json:"id"`
	ThreadID    string     `json:"thread_id"`
	Role        string     `json:"role"`
	ContentType string     `json:"content_type"`
	Content     string     `json:"content"`
	ImageURL    string     `json:"image_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// MessageListResponse is one page of messages.
type MessageListResponse struct {
	Messages   []MessageResponse `json:"messages"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}

// SendMessageResponse returns the persisted exchange.
type SendMessageResponse struct {
	UserMessage      MessageResponse `json:"user_message"`
	CharacterMessage MessageResponse `json:"character_message"`
}

func NewMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:          m.ID,
		ThreadID:    m.ThreadID,
		Role:        m.Role,
		ContentType: m.ContentType,
		Content:     m.Content,
		ImageURL:    m.ImageURL,
		ExpiresAt:   m.ExpiresAt,
		CreatedAt:   m.CreatedAt,
	}
}

func NewMessageListResponse(messages []domain.Message, pagination *conversation.Pagination) MessageListResponse {
	resp := MessageListResponse{
		Messages: make([]MessageResponse, 0, len(messages)),
	}
	for i := range messages {
		resp.Messages = append(resp.Messages, NewMessageResponse(&messages[i]))
	}
	if pagination != nil {
		resp.NextCursor = pagination.NextCursor
		resp.HasMore = pagination.HasMore
	}
	return resp
}
