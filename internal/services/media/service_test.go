// File: internal/services/media/service_test.go
package media

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

type fakeCompletion struct {
	configured  bool
	description string
	calls       int
	lastRequest *ai.CompletionRequest
}

func (p *fakeCompletion) Configured() bool { return p.configured }

func (p *fakeCompletion) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	p.calls++
	p.lastRequest = &req
	return p.description, nil
}

func (p *fakeCompletion) StreamCompletion(ctx context.Context, req ai.CompletionRequest, onDelta func(string) error) (*ai.CompletionResult, error) {
	return nil, errors.New("not used")
}

type fakeImage struct {
	configured bool
	data       []byte
	err        error
	calls      int
	lastPrompt string
}

func (p *fakeImage) Configured() bool { return p.configured }

func (p *fakeImage) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	p.calls++
	p.lastPrompt = prompt
	if p.err != nil {
		return nil, p.err
	}
	return p.data, nil
}

type fakeSpeech struct {
	configured bool
	audio      []byte
	err        error
	lastVoice  string
}

func (p *fakeSpeech) Configured() bool { return p.configured }

func (p *fakeSpeech) SynthesizeSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	p.lastVoice = voice
	if p.err != nil {
		return nil, p.err
	}
	return p.audio, nil
}

// memStorage keeps files in a map and can be told to fail deletes.
type memStorage struct {
	files     map[string][]byte
	deleteErr error
	deletes   []string
	saves     int
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (s *memStorage) SaveImage(data []byte) (string, string, error) {
	s.saves++
	url := "/static/images/scenes/fake.png"
	s.files[url] = data
	return "fake.png", url, nil
}

func (s *memStorage) DeleteImage(url string) error {
	s.deletes = append(s.deletes, url)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.files, url)
	return nil
}

type fixture struct {
	db          *gorm.DB
	service     *Service
	completion  *fakeCompletion
	image       *fakeImage
	speech      *fakeSpeech
	storage     *memStorage
	messageRepo message.MessageRepository
	threadID    string
	charID      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Thread{}, &domain.Message{}, &domain.Character{}))

	char := &domain.Character{
		Name:                  "ユキ",
		Status:                domain.CharacterStatusPublished,
		Description:           "gentle and curious",
		AppearanceDescription: "silver hair, blue eyes",
		VoiceID:               "shimmer",
	}
	require.NoError(t, db.Create(char).Error)

	th := &domain.Thread{UserID: "user-1", CharacterID: char.ID}
	require.NoError(t, db.Create(th).Error)

	completion := &fakeCompletion{configured: true, description: "a cozy cafe at dusk"}
	image := &fakeImage{configured: true, data: []byte("png-bytes")}
	speech := &fakeSpeech{configured: true, audio: []byte("mp3-bytes")}
	storage := newMemStorage()
	messageRepo := message.NewMessageRepository(db)

	svc, err := NewService(
		DefaultConfig(),
		thread.NewThreadRepository(db),
		messageRepo,
		character.NewCharacterRepository(db),
		completion, image, speech, storage, nil,
	)
	require.NoError(t, err)

	return &fixture{
		db: db, service: svc,
		completion: completion, image: image, speech: speech, storage: storage,
		messageRepo: messageRepo, threadID: th.ID, charID: char.ID,
	}
}

func (f *fixture) appendText(t *testing.T, role, content string) *domain.Message {
	t.Helper()
	msg, err := f.messageRepo.Append(context.Background(), &domain.Message{
		ThreadID: f.threadID,
		Role:     role,
		Content:  content,
	})
	require.NoError(t, err)
	return msg
}

func TestGenerateSceneImage(t *testing.T) {
	f := newFixture(t)
	m1 := f.appendText(t, domain.RoleUser, "海に行きたいな")
	m2 := f.appendText(t, domain.RoleCharacter, "いいですね、一緒に行きましょう")

	before := time.Now().UTC()
	msg, err := f.service.GenerateSceneImage(context.Background(), f.threadID, "user-1", []string{m1.ID, m2.ID})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleSystem, msg.Role)
	assert.Equal(t, domain.ContentTypeImage, msg.ContentType)
	assert.Equal(t, "/static/images/scenes/fake.png", msg.ImageURL)
	require.NotNil(t, msg.ExpiresAt)
	assert.WithinDuration(t, before.Add(f.service.config.ImageTTL), *msg.ExpiresAt, time.Minute)

	// The image prompt is the derived description plus style modifiers.
	assert.Contains(t, f.image.lastPrompt, "a cozy cafe at dusk")
	assert.Contains(t, f.image.lastPrompt, "anime style")
}

func TestSceneDescriptionRequestCarriesCharacter(t *testing.T) {
	f := newFixture(t)
	m1 := f.appendText(t, domain.RoleUser, "海に行きたいな")
	m2 := f.appendText(t, domain.RoleCharacter, "いいですね、一緒に行きましょう")

	_, err := f.service.GenerateSceneImage(context.Background(), f.threadID, "user-1", []string{m1.ID, m2.ID})
	require.NoError(t, err)

	// The LLM sees the character, not just the excerpt.
	req := f.completion.lastRequest
	require.NotNil(t, req)
	assert.Contains(t, req.SystemPrompt, "scene description generator")

	require.Len(t, req.Messages, 1)
	user := req.Messages[0].Content
	assert.Contains(t, user, "Character Name: ユキ")
	assert.Contains(t, user, "silver hair, blue eyes")
	assert.Contains(t, user, "Character Personality: gentle and curious")
	assert.Contains(t, user, "ユキ: いいですね、一緒に行きましょう")
	assert.Contains(t, user, "User: 海に行きたいな")
}

func TestSceneDescriptionFallsBackToDescription(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&domain.Character{}).Where("id = ?", f.charID).
		Update("appearance_description", "").Error)
	m := f.appendText(t, domain.RoleUser, "こんにちは")

	_, err := f.service.GenerateSceneImage(context.Background(), f.threadID, "user-1", []string{m.ID})
	require.NoError(t, err)

	user := f.completion.lastRequest.Messages[0].Content
	// Description stands in for the missing appearance, and the
	// personality line is omitted when it doubles as the appearance.
	assert.Contains(t, user, "CHARACTER APPEARANCE (use this exactly):\ngentle and curious")
	assert.NotContains(t, user, "Character Personality:")
}

func TestGenerateSceneImageValidatesBeforeProvider(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GenerateSceneImage(context.Background(), f.threadID, "user-1", nil)
	assert.True(t, IsValidation(err))
	assert.Zero(t, f.completion.calls)
	assert.Zero(t, f.image.calls)
}

func TestGenerateSceneImageUnknownMessages(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GenerateSceneImage(context.Background(), f.threadID, "user-1", []string{"no-such-message"})
	assert.True(t, IsNotFound(err))
	assert.Zero(t, f.image.calls)
}

func TestGenerateSceneImageForeignThread(t *testing.T) {
	f := newFixture(t)
	m := f.appendText(t, domain.RoleUser, "こんにちは")

	_, err := f.service.GenerateSceneImage(context.Background(), f.threadID, "user-2", []string{m.ID})
	assert.True(t, IsNotFound(err))
}

func TestGenerateSceneImageUnconfigured(t *testing.T) {
	f := newFixture(t)
	f.image.configured = false
	m := f.appendText(t, domain.RoleUser, "こんにちは")

	_, err := f.service.GenerateSceneImage(context.Background(), f.threadID, "user-1", []string{m.ID})
	assert.True(t, IsUnavailable(err))
	assert.Zero(t, f.image.calls)
}

func TestSynthesizeMessageAudioUsesCharacterVoice(t *testing.T) {
	f := newFixture(t)
	m := f.appendText(t, domain.RoleCharacter, "こんにちは")

	audio, err := f.service.SynthesizeMessageAudio(context.Background(), f.threadID, "user-1", m.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, "shimmer", f.speech.lastVoice)
}

func TestSynthesizeMessageAudioExplicitVoiceWins(t *testing.T) {
	f := newFixture(t)
	m := f.appendText(t, domain.RoleCharacter, "こんにちは")

	_, err := f.service.SynthesizeMessageAudio(context.Background(), f.threadID, "user-1", m.ID, "onyx")
	require.NoError(t, err)
	assert.Equal(t, "onyx", f.speech.lastVoice)
}

func TestSynthesizeMessageAudioRejectsUnknownVoice(t *testing.T) {
	f := newFixture(t)
	m := f.appendText(t, domain.RoleCharacter, "こんにちは")

	_, err := f.service.SynthesizeMessageAudio(context.Background(), f.threadID, "user-1", m.ID, "whisper")
	assert.True(t, IsValidation(err))
}

func TestSynthesizeMessageAudioNotFoundCases(t *testing.T) {
	f := newFixture(t)
	m := f.appendText(t, domain.RoleCharacter, "こんにちは")

	_, err := f.service.SynthesizeMessageAudio(context.Background(), f.threadID, "user-2", m.ID, "")
	assert.True(t, IsNotFound(err))

	_, err = f.service.SynthesizeMessageAudio(context.Background(), f.threadID, "user-1", "no-such-message", "")
	assert.True(t, IsNotFound(err))
}

func TestSynthesizeMessageAudioUnavailableWhenUnconfigured(t *testing.T) {
	f := newFixture(t)
	f.speech.configured = false
	m := f.appendText(t, domain.RoleCharacter, "こんにちは")

	_, err := f.service.SynthesizeMessageAudio(context.Background(), f.threadID, "user-1", m.ID, "")
	assert.True(t, IsUnavailable(err))
}

func expireImage(t *testing.T, f *fixture, url string, expiresAt time.Time) *domain.Message {
	t.Helper()
	msg, err := f.messageRepo.Append(context.Background(), &domain.Message{
		ThreadID:    f.threadID,
		Role:        domain.RoleSystem,
		ContentType: domain.ContentTypeImage,
		Content:     "scene",
		ImageURL:    url,
		ExpiresAt:   &expiresAt,
	})
	require.NoError(t, err)
	return msg
}

func TestReclaimExpired(t *testing.T) {
	f := newFixture(t)
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	gone := expireImage(t, f, "/static/images/scenes/old.png", past)
	kept := expireImage(t, f, "/static/images/scenes/new.png", future)

	reclaimed, err := f.service.ReclaimExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)
	assert.Equal(t, []string{"/static/images/scenes/old.png"}, f.storage.deletes)

	_, err = f.messageRepo.Get(context.Background(), f.threadID, gone.ID)
	assert.ErrorIs(t, err, message.ErrMessageNotFound)

	_, err = f.messageRepo.Get(context.Background(), f.threadID, kept.ID)
	assert.NoError(t, err)

	// The sweep is idempotent.
	reclaimed, err = f.service.ReclaimExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, reclaimed)
}

func TestReclaimExpiredSurvivesFileDeleteFailure(t *testing.T) {
	f := newFixture(t)
	f.storage.deleteErr = errors.New("disk on fire")

	gone := expireImage(t, f, "/static/images/scenes/old.png", time.Now().UTC().Add(-time.Hour))

	reclaimed, err := f.service.ReclaimExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	// The row is gone even though the file delete failed.
	_, err = f.messageRepo.Get(context.Background(), f.threadID, gone.ID)
	assert.ErrorIs(t, err, message.ErrMessageNotFound)
}
