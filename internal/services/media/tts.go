// File: internal/services/media/tts.go
package media

import (
	"context"
	"errors"

	"github.com/aiwill/companion-api/internal/domain"
	"github.com/aiwill/companion-api/internal/repository/message"
	"github.com/aiwill/companion-api/internal/repository/thread"
)

// SynthesizeMessageAudio renders one text message of an owned thread as
// speech. Audio is generated per request and never persisted.
func (s *Service) SynthesizeMessageAudio(ctx context.Context, threadID, userID, messageID, voice string) ([]byte, error) {
	t, err := s.threadRepo.FindByIDAndUserID(ctx, threadID, userID)
	if err != nil {
		if errors.Is(err, thread.ErrThreadNotFound) {
			return nil, NewNotFoundError("synthesize_audio", "thread not found")
		}
		return nil, NewInternalError("synthesize_audio", "could not fetch thread", err)
	}

	msg, err := s.messageRepo.Get(ctx, threadID, messageID)
	if err != nil {
		if errors.Is(err, message.ErrMessageNotFound) {
			return nil, NewNotFoundError("synthesize_audio", "message not found")
		}
		return nil, NewInternalError("synthesize_audio", "could not fetch message", err)
	}
	if msg.ContentType != domain.ContentTypeText || msg.Content == "" {
		return nil, NewValidationError("synthesize_audio", "message has no speakable text")
	}

	resolved, err := s.resolveVoice(ctx, t, voice)
	if err != nil {
		return nil, err
	}

	if !s.speech.Configured() {
		return nil, NewUnavailableError("synthesize_audio", "speech synthesis is not configured", nil)
	}

	audio, err := s.speech.SynthesizeSpeech(ctx, msg.Content, resolved)
	if err != nil {
		return nil, NewUnavailableError("synthesize_audio", "speech synthesis failed", err)
	}
	return audio, nil
}

// resolveVoice picks the voice: an explicit request wins, then the
// character's configured voice, then the default.
func (s *Service) resolveVoice(ctx context.Context, t *domain.Thread, voice string) (string, error) {
	if voice != "" {
		if !SupportedVoices[voice] {
			return "", NewValidationError("synthesize_audio", "unsupported voice: "+voice)
		}
		return voice, nil
	}

	if ch, err := s.characterRepo.FindByID(ctx, t.CharacterID); err == nil && SupportedVoices[ch.VoiceID] {
		return ch.VoiceID, nil
	}
	return DefaultVoice, nil
}
