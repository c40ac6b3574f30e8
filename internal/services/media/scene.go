// File: internal/services/media/scene.go
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aiwill/companion-api/internal/domain"
	"github.com/aiwill/companion-api/internal/repository/thread"
	"github.com/aiwill/companion-api/internal/services/ai"
)

const sceneDescriberPrompt = `You are a scene description generator for anime/illustration style images. Based on the conversation between a user and a character, generate a detailed scene description in English for image generation.

IMPORTANT: You MUST use the exact character appearance provided. Do not change any visual details (hair color, eye color, clothing, etc.).

Rules:
- ALWAYS include the character's exact appearance as described
- Describe the scene, setting, and atmosphere
- Include the character's expression matching the conversation mood
- Use anime/illustration style descriptors
- Keep it appropriate for all ages
- Focus on visual elements that can be depicted in a single image
- Output ONLY the scene description, nothing else
- Maximum 200 words`

const sceneStyleModifiers = "Beautiful anime style illustration, high quality, detailed artwork, soft lighting. Single character in the scene, consistent character design."

const (
	sceneMaxTokens   = 300
	sceneTemperature = 0.7
)

// GenerateSceneImage derives an illustration from selected messages of
// an owned thread and records it as a system image message that expires
// after the configured TTL.
func (s *Service) GenerateSceneImage(ctx context.Context, threadID, userID string, messageIDs []string) (*domain.Message, error) {
	// Input validation comes before any provider work so a bad request
	// never spends a generation call.
	if len(messageIDs) == 0 {
		return nil, NewValidationError("scene_image", "message_ids cannot be empty")
	}
	if len(messageIDs) > s.config.MaxSceneMessages {
		return nil, NewValidationError("scene_image",
			fmt.Sprintf("message_ids cannot exceed %d entries", s.config.MaxSceneMessages))
	}

	t, err := s.threadRepo.FindByIDAndUserID(ctx, threadID, userID)
	if err != nil {
		if errors.Is(err, thread.ErrThreadNotFound) {
			return nil, NewNotFoundError("scene_image", "thread not found")
		}
		return nil, NewInternalError("scene_image", "could not fetch thread", err)
	}

	messages, err := s.messageRepo.FindByIDs(ctx, threadID, messageIDs)
	if err != nil {
		return nil, NewInternalError("scene_image", "could not fetch messages", err)
	}
	if len(messages) == 0 {
		return nil, NewNotFoundError("scene_image", "no matching messages in thread")
	}

	if !s.completions.Configured() || !s.images.Configured() {
		return nil, NewUnavailableError("scene_image", "image generation is not configured", nil)
	}

	prompt, err := s.buildScenePrompt(ctx, t, messages)
	if err != nil {
		return nil, err
	}

	data, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, NewUnavailableError("scene_image", "image generation failed", err)
	}

	_, url, err := s.storage.SaveImage(data)
	if err != nil {
		return nil, NewStorageError("scene_image", "could not store image", err)
	}

	expiresAt := time.Now().UTC().Add(s.config.ImageTTL)
	msg, err := s.messageRepo.Append(ctx, &domain.Message{
		ThreadID:    threadID,
		Role:        domain.RoleSystem,
		ContentType: domain.ContentTypeImage,
		Content:     prompt,
		ImageURL:    url,
		ExpiresAt:   &expiresAt,
	})
	if err != nil {
		// The file is orphaned if the row fails; reclaim it now rather
		// than leaving it for no sweep to find.
		if delErr := s.storage.DeleteImage(url); delErr != nil {
			s.logger.Warn("failed to remove orphaned image file", "url", url, "error", delErr)
		}
		return nil, NewInternalError("scene_image", "could not persist image message", err)
	}

	s.logger.Info("scene image generated", "thread_id", threadID, "message_id", msg.ID, "expires_at", expiresAt)
	return msg, nil
}

// buildScenePrompt derives the image prompt: the LLM is handed the
// character's name, exact appearance, personality, and the selected
// conversation excerpt, and its description is then suffixed with the
// fixed style modifiers.
func (s *Service) buildScenePrompt(ctx context.Context, t *domain.Thread, messages []domain.Message) (string, error) {
	ch := s.lookupCharacter(ctx, t.CharacterID)

	excerpt := formatExcerpt(messages, ch.Name)
	if excerpt == "" {
		return "", NewValidationError("scene_image", "selected messages contain no text")
	}

	visual := ch.AppearanceDescription
	if visual == "" {
		visual = ch.Description
	}
	if visual == "" {
		visual = "A friendly anime character"
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Character Name: %s\n\n", ch.Name)
	fmt.Fprintf(&prompt, "CHARACTER APPEARANCE (use this exactly):\n%s\n\n", visual)
	if ch.Description != "" && ch.AppearanceDescription != "" {
		fmt.Fprintf(&prompt, "Character Personality: %s\n\n", ch.Description)
	}
	fmt.Fprintf(&prompt, "Recent Conversation:\n%s\n\n", excerpt)
	prompt.WriteString("Generate a scene description for this moment. " +
		"The character's appearance MUST match the description exactly. " +
		"Describe what the scene would look like as an anime illustration.")

	description, err := s.completions.Complete(ctx, ai.CompletionRequest{
		SystemPrompt: sceneDescriberPrompt,
		Messages:     []ai.ChatMessage{{Role: "user", Content: prompt.String()}},
		MaxTokens:    sceneMaxTokens,
		Temperature:  sceneTemperature,
	})
	if err != nil {
		return "", NewUnavailableError("scene_image", "scene description failed", err)
	}

	return strings.TrimSpace(description) + " " + sceneStyleModifiers, nil
}

// formatExcerpt renders the selected messages chronologically, speakers
// labeled by character name or "User". Image messages are skipped.
func formatExcerpt(messages []domain.Message, characterName string) string {
	var lines []string
	for _, m := range messages {
		if m.ContentType != domain.ContentTypeText {
			continue
		}
		speaker := characterName
		if m.IsFromUser() {
			speaker = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Content))
	}
	return strings.Join(lines, "\n")
}

// lookupCharacter resolves the thread's character for prompt assembly,
// degrading to a placeholder when the catalog entry is gone.
func (s *Service) lookupCharacter(ctx context.Context, characterID string) *domain.Character {
	ch, err := s.characterRepo.FindByID(ctx, characterID)
	if err != nil {
		s.logger.Warn("character lookup failed, using placeholder", "character_id", characterID, "error", err)
		return &domain.Character{ID: characterID, Name: "AI"}
	}
	return ch
}
