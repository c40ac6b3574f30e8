// File: internal/services/conversation/streaming.go
package conversation

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/aiwill/companion-api/internal/domain"
	"github.com/aiwill/companion-api/internal/services/ai"
)

// StreamSink receives the incremental events of one streamed exchange.
// A non-nil error from any callback means the client is gone; the
// service stops emitting but still persists what was generated.
type StreamSink interface {
	OnStart(userMessageID, assistantMessageID string) error
	OnDelta(delta string) error
	OnDone(assistantMessageID, finishReason string, usage *ai.Usage) error
}

// SendMessageStream runs one exchange like SendMessage but emits the
// reply incrementally through sink. Whatever content has accumulated
// when the stream ends, completes, or is cancelled is persisted from a
// detached context, so a dropped client never loses the partial reply.
func (s *Service) SendMessageStream(ctx context.Context, threadID, userID, content string, sink StreamSink) error {
	if strings.TrimSpace(content) == "" {
		return NewValidationError("send_message_stream", "message content cannot be empty")
	}
	if sink == nil {
		return NewValidationError("send_message_stream", "stream sink is required")
	}

	t, err := s.GetThread(ctx, threadID, userID)
	if err != nil {
		return err
	}

	if err := s.locks.TryLockWithTimeout(ctx, "thread:"+threadID, s.config.LockTimeout); err != nil {
		return NewInternalError("send_message_stream", "could not acquire thread lock", err)
	}
	defer s.locks.Unlock("thread:" + threadID)

	userMsg, err := s.messageRepo.Append(ctx, &domain.Message{
		ThreadID:    threadID,
		Role:        domain.RoleUser,
		ContentType: domain.ContentTypeText,
		Content:     content,
	})
	if err != nil {
		return NewInternalError("send_message_stream", "could not persist user message", err)
	}

	// The assistant message ID is announced before generation so the
	// client can correlate deltas with the row that will exist.
	assistantID := uuid.NewString()
	clientGone := sink.OnStart(userMsg.ID, assistantID) != nil

	ch := s.lookupCharacter(ctx, t.CharacterID)

	var accumulated strings.Builder
	finishReason := ai.FinishReasonStop
	var usage *ai.Usage

	if s.provider.Configured() {
		req, asmErr := s.assembleContext(ctx, t, ch, userMsg)
		if asmErr != nil {
			s.logger.Error("context assembly failed, using stub", "thread_id", threadID, "error", asmErr)
		} else {
			result, streamErr := s.provider.StreamCompletion(ctx, req, func(delta string) error {
				accumulated.WriteString(delta)
				if clientGone {
					return nil
				}
				if err := sink.OnDelta(delta); err != nil {
					clientGone = true
				}
				return nil
			})
			switch {
			case streamErr == nil:
				finishReason = result.FinishReason
				usage = result.Usage
			case accumulated.Len() > 0:
				// Interrupted mid-stream: keep the partial, mark it truncated.
				s.logger.Warn("stream interrupted, persisting partial reply",
					"thread_id", threadID, "chars", accumulated.Len(), "error", streamErr)
				finishReason = ai.FinishReasonLength
			default:
				s.logger.Error("stream failed before first delta, using stub", "thread_id", threadID, "error", streamErr)
			}
		}
	}

	if accumulated.Len() == 0 {
		// Provider unconfigured or failed outright: the stub reply is
		// delivered as a single delta so the event shape holds.
		stub := StubResponse(ch, userMsg.Content)
		accumulated.WriteString(stub)
		finishReason = ai.FinishReasonStop
		if !clientGone {
			if err := sink.OnDelta(stub); err != nil {
				clientGone = true
			}
		}
	}

	// Persistence runs on a detached context: the client cancelling the
	// request must not abort the write.
	saveCtx, cancel := context.WithTimeout(context.Background(), s.config.SaveTimeout)
	defer cancel()

	if _, err := s.messageRepo.Append(saveCtx, &domain.Message{
		ID:          assistantID,
		ThreadID:    threadID,
		Role:        domain.RoleCharacter,
		ContentType: domain.ContentTypeText,
		Content:     accumulated.String(),
	}); err != nil {
		return NewInternalError("send_message_stream", "could not persist assistant message", err)
	}

	if err := s.threadRepo.TouchUpdatedAt(saveCtx, threadID); err != nil {
		s.logger.Warn("failed to bump thread recency", "thread_id", threadID, "error", err)
	}

	if !clientGone {
		_ = sink.OnDone(assistantID, finishReason, usage)
	}
	return nil
}
