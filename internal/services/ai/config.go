// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

type Config struct {
	// Provider Configuration. An empty APIKey means the provider is
	// unconfigured; callers decide between stub fallback (text) and
	// GenerationUnavailable (image/audio).
	APIKey  string
	BaseURL string

	// Model Configuration
	ChatModel   string
	ImageModel  string
	SpeechModel string

	// Performance Configuration
	CompletionTimeout time.Duration
	ImageTimeout      time.Duration
	SpeechTimeout     time.Duration

	// Model Parameters
	MaxTokens   int
	Temperature float32
}

func (c *Config) Validate() error {
	if c.ChatModel == "" {
		return fmt.Errorf("chat_model is required")
	}
	if c.ImageModel == "" {
		return fmt.Errorf("image_model is required")
	}
	if c.SpeechModel == "" {
		return fmt.Errorf("speech_model is required")
	}
	if c.CompletionTimeout <= 0 || c.ImageTimeout <= 0 || c.SpeechTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		ChatModel:         "gpt-4o-mini",
		ImageModel:        "dall-e-3",
		SpeechModel:       "tts-1",
		CompletionTimeout: 30 * time.Second,
		ImageTimeout:      60 * time.Second,
		SpeechTimeout:     30 * time.Second,
		MaxTokens:         500,
		Temperature:       0.7,
	}
}
