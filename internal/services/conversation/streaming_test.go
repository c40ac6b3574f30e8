// File: internal/services/conversation/streaming_test.go
package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwill/companion-api/internal/domain"
	"github.com/aiwill/companion-api/internal/services/ai"
)

// recordingSink captures the event sequence of one stream.
type recordingSink struct {
	events       []string
	deltas       []string
	assistantID  string
	finishReason string
	usage        *ai.Usage

	failDeltaAfter int // fail the Nth OnDelta call (1-based), 0 = never
	deltaCalls     int
}

func (s *recordingSink) OnStart(userMessageID, assistantMessageID string) error {
	s.events = append(s.events, "message_start")
	s.assistantID = assistantMessageID
	return nil
}

func (s *recordingSink) OnDelta(delta string) error {
	s.deltaCalls++
	if s.failDeltaAfter > 0 && s.deltaCalls >= s.failDeltaAfter {
		return errors.New("client went away")
	}
	s.events = append(s.events, "content_delta")
	s.deltas = append(s.deltas, delta)
	return nil
}

func (s *recordingSink) OnDone(assistantMessageID, finishReason string, usage *ai.Usage) error {
	s.events = append(s.events, "message_done")
	s.finishReason = finishReason
	s.usage = usage
	return nil
}

func streamFixture(t *testing.T, provider *fakeProvider) (*fixture, string) {
	t.Helper()
	f := newFixture(t, provider)
	created, err := f.service.ResolveOrCreateThread(context.Background(), "user-1", f.charID, "")
	require.NoError(t, err)
	return f, created.ID
}

func assistantContent(t *testing.T, f *fixture, messageID string) string {
	t.Helper()
	var msg domain.Message
	require.NoError(t, f.db.Where("id = ?", messageID).First(&msg).Error)
	assert.Equal(t, domain.RoleCharacter, msg.Role)
	return msg.Content
}

func TestStreamEmitsOrderedEvents(t *testing.T) {
	provider := &fakeProvider{configured: true, deltas: []string{"はじめ", "まして", "！"}}
	f, threadID := streamFixture(t, provider)

	sink := &recordingSink{}
	err := f.service.SendMessageStream(context.Background(), threadID, "user-1", "こんにちは", sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"message_start", "content_delta", "content_delta", "content_delta", "message_done"}, sink.events)
	assert.Equal(t, ai.FinishReasonStop, sink.finishReason)
	assert.Equal(t, "はじめまして！", strings.Join(sink.deltas, ""))

	// The persisted row carries the announced ID and the full content.
	assert.Equal(t, "はじめまして！", assistantContent(t, f, sink.assistantID))
}

func TestStreamInterruptedPersistsPartial(t *testing.T) {
	provider := &fakeProvider{
		configured: true,
		deltas:     []string{"はじめ", "まして"},
		streamErr:  context.Canceled,
	}
	f, threadID := streamFixture(t, provider)

	sink := &recordingSink{}
	err := f.service.SendMessageStream(context.Background(), threadID, "user-1", "こんにちは", sink)
	require.NoError(t, err)

	// The partial survives with a truncation finish reason.
	assert.Equal(t, ai.FinishReasonLength, sink.finishReason)
	assert.Equal(t, "はじめまして", assistantContent(t, f, sink.assistantID))
}

func TestStreamClientGoneStillPersists(t *testing.T) {
	provider := &fakeProvider{configured: true, deltas: []string{"はじめ", "まして", "！"}}
	f, threadID := streamFixture(t, provider)

	sink := &recordingSink{failDeltaAfter: 2}
	err := f.service.SendMessageStream(context.Background(), threadID, "user-1", "こんにちは", sink)
	require.NoError(t, err)

	// Emission stopped at the failed delta, no done event.
	assert.NotContains(t, sink.events, "message_done")

	// Everything the provider produced was still persisted.
	assert.Equal(t, "はじめまして！", assistantContent(t, f, sink.assistantID))
}

func TestStreamFailureBeforeFirstDeltaUsesStub(t *testing.T) {
	provider := &fakeProvider{configured: true, streamErr: errors.New("upstream exploded")}
	f, threadID := streamFixture(t, provider)

	sink := &recordingSink{}
	err := f.service.SendMessageStream(context.Background(), threadID, "user-1", "こんにちは", sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"message_start", "content_delta", "message_done"}, sink.events)
	assert.Equal(t, ai.FinishReasonStop, sink.finishReason)
	assert.Equal(t, "こんにちは！ユキです。お話できて嬉しいです！", assistantContent(t, f, sink.assistantID))
}

func TestStreamUnconfiguredProviderStreamsStub(t *testing.T) {
	f, threadID := streamFixture(t, &fakeProvider{configured: false})

	sink := &recordingSink{}
	err := f.service.SendMessageStream(context.Background(), threadID, "user-1", "こんにちは", sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"message_start", "content_delta", "message_done"}, sink.events)
	assert.Zero(t, f.provider.calls)
	assert.Equal(t, "こんにちは！ユキです。お話できて嬉しいです！", assistantContent(t, f, sink.assistantID))
}

func TestStreamRejectsBlankContent(t *testing.T) {
	f, threadID := streamFixture(t, &fakeProvider{})

	err := f.service.SendMessageStream(context.Background(), threadID, "user-1", "  ", &recordingSink{})
	assert.True(t, IsValidation(err))
}

func TestStreamForeignThread(t *testing.T) {
	f, threadID := streamFixture(t, &fakeProvider{})

	err := f.service.SendMessageStream(context.Background(), threadID, "user-2", "こんにちは", &recordingSink{})
	assert.True(t, IsNotFound(err))
}
