// File: internal/services/conversation/service_test.go
package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aiwill/companion-api/internal/domain"
	"github.com/aiwill/companion-api/internal/repository/character"
	"github.com/aiwill/companion-api/internal/repository/message"
	"github.com/aiwill/companion-api/internal/repository/thread"
	"github.com/aiwill/companion-api/internal/services/ai"
)

// fakeProvider scripts completion behavior and records requests.
type fakeProvider struct {
	configured  bool
	reply       string
	completeErr error
	lastRequest *ai.CompletionRequest
	calls       int

	// streaming script
	deltas       []string
	streamErr    error
	finishReason string
}

func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	p.calls++
	p.lastRequest = &req
	if p.completeErr != nil {
		return "", p.completeErr
	}
	return p.reply, nil
}

func (p *fakeProvider) StreamCompletion(ctx context.Context, req ai.CompletionRequest, onDelta func(string) error) (*ai.CompletionResult, error) {
	p.calls++
	p.lastRequest = &req
	for _, d := range p.deltas {
		if err := onDelta(d); err != nil {
			return nil, err
		}
	}
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	reason := p.finishReason
	if reason == "" {
		reason = ai.FinishReasonStop
	}
	return &ai.CompletionResult{FinishReason: reason}, nil
}

type fixture struct {
	db       *gorm.DB
	service  *Service
	provider *fakeProvider
	charID   string
}

func newFixture(t *testing.T, provider *fakeProvider) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Thread{}, &domain.Message{}, &domain.Character{}))

	char := &domain.Character{
		Name:   "ユキ",
		Status: domain.CharacterStatusPublished,
	}
	require.NoError(t, db.Create(char).Error)

	svc, err := NewService(
		DefaultConfig(),
		thread.NewThreadRepository(db),
		message.NewMessageRepository(db),
		character.NewCharacterRepository(db),
		provider,
		nil,
	)
	require.NoError(t, err)

	return &fixture{db: db, service: svc, provider: provider, charID: char.ID}
}

func TestResolveOrCreateThreadIsIdempotent(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	first, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	second, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveOrCreateThreadBackfillsPack(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	first, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)
	assert.Empty(t, first.PackID)

	second, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "pack-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "pack-1", second.PackID)

	// An already-set pack is never overwritten.
	third, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "pack-2")
	require.NoError(t, err)
	assert.Equal(t, "pack-1", third.PackID)
}

func TestResolveOrCreateThreadRejectsUnpublishedCharacter(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	draft := &domain.Character{Name: "下書き", Status: domain.CharacterStatusDraft}
	require.NoError(t, f.db.Create(draft).Error)

	_, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", draft.ID, "")
	assert.True(t, IsNotFound(err))

	_, err = f.service.ResolveOrCreateThread(context.Background(), "user-1", "no-such-character", "")
	assert.True(t, IsNotFound(err))
}

func TestResolveOrCreateThreadAfterDeleteCreatesNew(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	first, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteThread(context.Background(), first.ID, "user-1"))

	second, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestGetThreadOwnership(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	_, err = f.service.GetThread(context.Background(), created.ID, "user-2")
	assert.True(t, IsNotFound(err))
}

func TestDeleteThreadSecondDeleteIsNotFound(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteThread(context.Background(), created.ID, "user-1"))
	err = f.service.DeleteThread(context.Background(), created.ID, "user-1")
	assert.True(t, IsNotFound(err))
}

func TestSendMessageWithProvider(t *testing.T) {
	provider := &fakeProvider{configured: true, reply: "はじめまして！"}
	f := newFixture(t, provider)

	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	userMsg, charMsg, err := f.service.SendMessage(context.Background(), created.ID, "user-1", "こんにちは")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleUser, userMsg.Role)
	assert.Equal(t, "こんにちは", userMsg.Content)
	assert.Equal(t, domain.RoleCharacter, charMsg.Role)
	assert.Equal(t, "はじめまして！", charMsg.Content)

	// The new user turn appears exactly once, as the final turn.
	require.NotNil(t, provider.lastRequest)
	turns := provider.lastRequest.Messages
	require.NotEmpty(t, turns)
	assert.Equal(t, "こんにちは", turns[len(turns)-1].Content)
	count := 0
	for _, m := range turns {
		if m.Content == "こんにちは" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSendMessageFallsBackToStubOnProviderError(t *testing.T) {
	provider := &fakeProvider{configured: true, completeErr: errors.New("upstream exploded")}
	f := newFixture(t, provider)

	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	userMsg, charMsg, err := f.service.SendMessage(context.Background(), created.ID, "user-1", "こんにちは")
	require.NoError(t, err)
	require.NotNil(t, userMsg)
	require.NotNil(t, charMsg)

	// "こんにちは" is 5 runes, so pool index 0.
	assert.Equal(t, "こんにちは！ユキです。お話できて嬉しいです！", charMsg.Content)

	// Both turns are persisted despite the provider failure.
	var count int64
	require.NoError(t, f.db.Model(&domain.Message{}).Where("thread_id = ?", created.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSendMessageUnconfiguredProviderUsesStubDeterministically(t *testing.T) {
	f := newFixture(t, &fakeProvider{configured: false})

	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	_, first, err := f.service.SendMessage(context.Background(), created.ID, "user-1", "こんにちは")
	require.NoError(t, err)
	_, second, err := f.service.SendMessage(context.Background(), created.ID, "user-1", "こんにちは")
	require.NoError(t, err)

	assert.Equal(t, first.Content, second.Content)
	assert.Zero(t, f.provider.calls)
}

func TestSendMessageRejectsBlankContent(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	_, _, err = f.service.SendMessage(context.Background(), created.ID, "user-1", "   ")
	assert.True(t, IsValidation(err))
}

func TestSendMessageForeignThread(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	_, _, err = f.service.SendMessage(context.Background(), created.ID, "user-2", "こんにちは")
	assert.True(t, IsNotFound(err))
}

func TestSendMessageBumpsThreadRecency(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.db.Model(&domain.Thread{}).Where("id = ?", created.ID).
		Update("updated_at", stale).Error)

	_, _, err = f.service.SendMessage(context.Background(), created.ID, "user-1", "こんにちは")
	require.NoError(t, err)

	refreshed, err := f.service.GetThread(context.Background(), created.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, refreshed.UpdatedAt.After(stale))
}

func TestListMessagesValidatesOrder(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	_, _, err = f.service.ListMessages(context.Background(), created.ID, "user-1", "", 10, "sideways")
	assert.True(t, IsValidation(err))
}

func TestListThreadsIncludesLastMessage(t *testing.T) {
	f := newFixture(t, &fakeProvider{})

	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)

	_, charMsg, err := f.service.SendMessage(context.Background(), created.ID, "user-1", "こんにちは")
	require.NoError(t, err)

	summaries, pagination, err := f.service.ListThreads(context.Background(), "user-1", "", "", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, charMsg.ID, summaries[0].LastMessage.ID)
	assert.False(t, pagination.HasMore)
}

func TestStubResponsePoolKeying(t *testing.T) {
	char := &domain.Character{Name: "ユキ"}

	// Rune count, not byte count, selects from the pool.
	assert.Equal(t, StubResponse(char, "こんにちは"), StubResponse(char, "abcde"))
	assert.NotEqual(t, StubResponse(char, "a"), StubResponse(char, "ab"))
}
