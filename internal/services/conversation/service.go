// File: internal/services/conversation/service.go
package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/aiwill/companion-api/internal/domain"
	"github.com/aiwill/companion-api/internal/repository/character"
	"github.com/aiwill/companion-api/internal/repository/message"
	"github.com/aiwill/companion-api/internal/repository/thread"
	"github.com/aiwill/companion-api/internal/services/ai"
)

// Service owns thread lifecycle and response orchestration.
type Service struct {
	config        *Config
	threadRepo    thread.ThreadRepository
	messageRepo   message.MessageRepository
	characterRepo character.CharacterRepository
	provider      ai.CompletionProvider
	locks         *LockManager
	logger        Logger
}

func NewService(
	config *Config,
	threadRepo thread.ThreadRepository,
	messageRepo message.MessageRepository,
	characterRepo character.CharacterRepository,
	provider ai.CompletionProvider,
	logger Logger,
) (*Service, error) {
	if threadRepo == nil {
		return nil, NewValidationError("constructor", "thread repository is required")
	}
	if messageRepo == nil {
		return nil, NewValidationError("constructor", "message repository is required")
	}
	if characterRepo == nil {
		return nil, NewValidationError("constructor", "character repository is required")
	}
	if provider == nil {
		return nil, NewValidationError("constructor", "completion provider is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, NewValidationError("config", err.Error())
	}
	if logger == nil {
		logger = noopLogger{}
	}

	return &Service{
		config:        config,
		threadRepo:    threadRepo,
		messageRepo:   messageRepo,
		characterRepo: characterRepo,
		provider:      provider,
		locks:         NewLockManager(),
		logger:        logger,
	}, nil
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Warn(string, ...interface{})  {}

// ResolveOrCreateThread returns the most recent active thread for the
// (user, character) pair, creating one when none exists. Creation is
// serialized per pair so concurrent calls cannot race a duplicate
// thread into existence.
func (s *Service) ResolveOrCreateThread(ctx context.Context, userID, characterID, packID string) (*domain.Thread, error) {
	if userID == "" {
		return nil, NewValidationError("resolve_thread", "user ID is required")
	}
	if characterID == "" {
		return nil, NewValidationError("resolve_thread", "character ID is required")
	}

	key := "create:" + userID + ":" + characterID
	if err := s.locks.TryLockWithTimeout(ctx, key, s.config.LockTimeout); err != nil {
		return nil, NewInternalError("resolve_thread", "could not acquire creation lock", err)
	}
	defer s.locks.Unlock(key)

	existing, err := s.threadRepo.FindLatestByUserAndCharacter(ctx, userID, characterID)
	if err == nil {
		if packID != "" && existing.PackID == "" {
			if err := s.threadRepo.SetPackID(ctx, existing.ID, packID); err != nil {
				s.logger.Warn("failed to backfill pack on thread", "thread_id", existing.ID, "error", err)
			} else {
				existing.PackID = packID
			}
		}
		return existing, nil
	}
	if !errors.Is(err, thread.ErrThreadNotFound) {
		return nil, NewInternalError("resolve_thread", "could not look up existing thread", err)
	}

	// New thread: the character must exist and be published.
	if _, err := s.characterRepo.FindPublishedByID(ctx, characterID); err != nil {
		if errors.Is(err, character.ErrCharacterNotFound) {
			return nil, NewNotFoundError("resolve_thread", "character not found")
		}
		return nil, NewInternalError("resolve_thread", "could not look up character", err)
	}

	created, err := s.threadRepo.Create(ctx, &domain.Thread{
		UserID:      userID,
		CharacterID: characterID,
		PackID:      packID,
		SessionType: domain.SessionTypeFree,
	})
	if err != nil {
		return nil, NewInternalError("resolve_thread", "could not create thread", err)
	}

	s.logger.Info("thread created", "thread_id", created.ID, "user_id", userID, "character_id", characterID)
	return created, nil
}

// GetThread is the ownership gate every other operation routes through.
// A thread owned by another user reads as not found.
func (s *Service) GetThread(ctx context.Context, threadID, userID string) (*domain.Thread, error) {
	t, err := s.threadRepo.FindByIDAndUserID(ctx, threadID, userID)
	if err != nil {
		if errors.Is(err, thread.ErrThreadNotFound) {
			return nil, NewNotFoundError("get_thread", "thread not found")
		}
		return nil, NewInternalError("get_thread", "could not fetch thread", err)
	}
	return t, nil
}

// ListThreads pages the user's threads by recency with a last-message
// projection.
func (s *Service) ListThreads(ctx context.Context, userID, characterID, cursor string, limit int) ([]ThreadSummary, *Pagination, error) {
	if userID == "" {
		return nil, nil, NewValidationError("list_threads", "user ID is required")
	}
	limit = s.clampLimit(limit)

	threads, hasMore, err := s.threadRepo.ListByUserID(ctx, userID, characterID, cursor, limit)
	if err != nil {
		return nil, nil, NewInternalError("list_threads", "could not list threads", err)
	}

	summaries := make([]ThreadSummary, 0, len(threads))
	for _, t := range threads {
		last, err := s.messageRepo.FindLastByThreadID(ctx, t.ID)
		if err != nil {
			s.logger.Warn("failed to load last message", "thread_id", t.ID, "error", err)
		}
		summaries = append(summaries, ThreadSummary{Thread: t, LastMessage: last})
	}

	pagination := &Pagination{HasMore: hasMore}
	if hasMore && len(threads) > 0 {
		pagination.NextCursor = threads[len(threads)-1].ID
	}
	return summaries, pagination, nil
}

// DeleteThread soft-deletes an owned thread. Deleting an absent,
// foreign, or already-deleted thread reads as not found.
func (s *Service) DeleteThread(ctx context.Context, threadID, userID string) error {
	deleted, err := s.threadRepo.SoftDelete(ctx, threadID, userID)
	if err != nil {
		return NewInternalError("delete_thread", "could not delete thread", err)
	}
	if !deleted {
		return NewNotFoundError("delete_thread", "thread not found")
	}
	s.logger.Info("thread deleted", "thread_id", threadID, "user_id", userID)
	return nil
}

// ListMessages pages a thread's messages after the ownership gate.
func (s *Service) ListMessages(ctx context.Context, threadID, userID, cursor string, limit int, order string) ([]domain.Message, *Pagination, error) {
	if _, err := s.GetThread(ctx, threadID, userID); err != nil {
		return nil, nil, err
	}

	if order == "" {
		order = message.OrderDesc
	}
	if order != message.OrderAsc && order != message.OrderDesc {
		return nil, nil, NewValidationError("list_messages", "order must be asc or desc")
	}
	limit = s.clampLimit(limit)

	messages, hasMore, err := s.messageRepo.List(ctx, threadID, cursor, limit, order)
	if err != nil {
		return nil, nil, NewInternalError("list_messages", "could not list messages", err)
	}

	pagination := &Pagination{HasMore: hasMore}
	if hasMore && len(messages) > 0 {
		pagination.NextCursor = messages[len(messages)-1].ID
	}
	return messages, pagination, nil
}

// SendMessage runs one exchange: persist the user's turn, generate the
// character's reply (provider or stub), persist it, bump recency.
// The user's message is written before the provider is touched, so user
// input survives any generation failure.
func (s *Service) SendMessage(ctx context.Context, threadID, userID, content string) (*domain.Message, *domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil, NewValidationError("send_message", "message content cannot be empty")
	}

	t, err := s.GetThread(ctx, threadID, userID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.locks.TryLockWithTimeout(ctx, "thread:"+threadID, s.config.LockTimeout); err != nil {
		return nil, nil, NewInternalError("send_message", "could not acquire thread lock", err)
	}
	defer s.locks.Unlock("thread:" + threadID)

	userMsg, err := s.messageRepo.Append(ctx, &domain.Message{
		ThreadID:    threadID,
		Role:        domain.RoleUser,
		ContentType: domain.ContentTypeText,
		Content:     content,
	})
	if err != nil {
		return nil, nil, NewInternalError("send_message", "could not persist user message", err)
	}

	reply := s.generateReply(ctx, t, userMsg)

	assistantMsg, err := s.messageRepo.Append(ctx, &domain.Message{
		ThreadID:    threadID,
		Role:        domain.RoleCharacter,
		ContentType: domain.ContentTypeText,
		Content:     reply,
	})
	if err != nil {
		// The user message stays: losing input is worse than a one-sided exchange.
		return nil, nil, NewInternalError("send_message", "could not persist assistant message", err)
	}

	if err := s.threadRepo.TouchUpdatedAt(ctx, threadID); err != nil {
		s.logger.Warn("failed to bump thread recency", "thread_id", threadID, "error", err)
	}

	return userMsg, assistantMsg, nil
}

// generateReply invokes the configured provider and absorbs every
// provider failure into the deterministic stub. Text generation never
// surfaces an error to the caller.
func (s *Service) generateReply(ctx context.Context, t *domain.Thread, userMsg *domain.Message) string {
	ch := s.lookupCharacter(ctx, t.CharacterID)

	if !s.provider.Configured() {
		return StubResponse(ch, userMsg.Content)
	}

	req, err := s.assembleContext(ctx, t, ch, userMsg)
	if err != nil {
		s.logger.Error("context assembly failed, using stub", "thread_id", t.ID, "error", err)
		return StubResponse(ch, userMsg.Content)
	}

	reply, err := s.provider.Complete(ctx, req)
	if err != nil {
		if ai.IsTimeout(err) {
			s.logger.Error("completion timed out, using stub", "thread_id", t.ID, "error", err)
		} else {
			s.logger.Error("completion failed, using stub", "thread_id", t.ID, "error", err)
		}
		return StubResponse(ch, userMsg.Content)
	}
	return reply
}

// assembleContext builds the provider request: system prompt, the most
// recent window in chronological order, and the new user turn last.
// The just-appended user message is excluded from the window so it
// appears exactly once.
func (s *Service) assembleContext(ctx context.Context, t *domain.Thread, ch *domain.Character, userMsg *domain.Message) (ai.CompletionRequest, error) {
	systemPrompt := ch.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultPersonaPrompt(ch)
	}

	recent, err := s.messageRepo.FindRecent(ctx, t.ID, s.config.ContextWindow+1)
	if err != nil {
		return ai.CompletionRequest{}, err
	}

	messages := make([]ai.ChatMessage, 0, len(recent)+1)
	for _, m := range recent {
		if m.ID == userMsg.ID || m.ContentType != domain.ContentTypeText {
			continue
		}
		role := "user"
		if m.Role != domain.RoleUser {
			role = "assistant"
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: m.Content})
	}
	if len(messages) > s.config.ContextWindow {
		messages = messages[len(messages)-s.config.ContextWindow:]
	}
	messages = append(messages, ai.ChatMessage{Role: "user", Content: userMsg.Content})

	return ai.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		MaxTokens:    s.config.MaxTokens,
		Temperature:  s.config.Temperature,
	}, nil
}

// lookupCharacter resolves the thread's character for prompt assembly.
// An unresolvable character (catalog drift) degrades to a placeholder
// persona instead of breaking the conversation.
func (s *Service) lookupCharacter(ctx context.Context, characterID string) *domain.Character {
	ch, err := s.characterRepo.FindByID(ctx, characterID)
	if err != nil {
		s.logger.Warn("character lookup failed, using placeholder persona", "character_id", characterID, "error", err)
		return &domain.Character{ID: characterID, Name: "AI"}
	}
	return ch
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.config.DefaultPageSize
	}
	if limit > s.config.MaxPageSize {
		return s.config.MaxPageSize
	}
	return limit
}
