// File: internal/dtos/thread.go
package dtos

import (
	"time"

	"github.com/aiwill/companion-api/internal/domain"
	"github.com/aiwill/companion-api/internal/services/conversation"
)

// ResolveThreadRequest creates or reuses a thread with a character.
type ResolveThreadRequest struct {
	CharacterID string `json:"character_id"`
	PackID      string `json:"pack_id,omitempty"`
}

// ThreadResponse is the wire form of a thread.
type ThreadResponse struct {
	ID          string     `json:"id"`
	CharacterID string     `json:"character_id"`
	PackID      string     `json:"pack_id,omitempty"`
	SessionType string     `json:"session_type"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ThreadSummaryResponse is a thread plus its last message for listings.
type ThreadSummaryResponse struct {
	ThreadResponse
	LastMessage *MessageResponse `json:"last_message,omitempty"`
}

// ThreadListResponse is one page of threads.
type ThreadListResponse struct {
	Threads    []ThreadSummaryResponse `json:"threads"`
	NextCursor string                  `json:"next_cursor,omitempty"`
	HasMore    bool                    `json:"has_more"`
}

func NewThreadResponse(t *domain.Thread) ThreadResponse {
	return ThreadResponse{
		ID:          t.ID,
		CharacterID: t.CharacterID,
		PackID:      t.PackID,
		SessionType: t.SessionType,
		StartedAt:   t.StartedAt,
		EndedAt:     t.EndedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func NewThreadListResponse(summaries []conversation.ThreadSummary, pagination *conversation.Pagination) ThreadListResponse {
	resp := ThreadListResponse{
		Threads: make([]ThreadSummaryResponse, 0, len(summaries)),
	}
	for i := range summaries {
		item := ThreadSummaryResponse{
			ThreadResponse: NewThreadResponse(&summaries[i].Thread),
		}
		if summaries[i].LastMessage != nil {
			msg := NewMessageResponse(summaries[i].LastMessage)
			item.LastMessage = &msg
		}
		resp.Threads = append(resp.Threads, item)
	}
	if pagination != nil {
		resp.NextCursor = pagination.NextCursor
		resp.HasMore = pagination.HasMore
	}
	return resp
}
