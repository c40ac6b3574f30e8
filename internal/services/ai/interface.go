// File: internal/services/ai/interface.go
package ai

import "context"

// ChatMessage is one turn handed to the completion provider.
type ChatMessage struct {
	Role    string
	Content string
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Finish reasons surfaced to streaming clients.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)

// CompletionRequest carries an assembled conversation context.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []ChatMessage
	MaxTokens    int
	Temperature  float32
}

// CompletionResult is the terminal state of a streamed completion.
type CompletionResult struct {
	FinishReason string
	Usage        *Usage
}

// CompletionProvider handles chat completions
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	StreamCompletion(ctx context.Context, req CompletionRequest, onDelta func(string) error) (*CompletionResult, error)
	Configured() bool
}

// SpeechProvider handles text-to-speech synthesis (mp3)
type SpeechProvider interface {
	SynthesizeSpeech(ctx context.Context, text, voice string) ([]byte, error)
	Configured() bool
}

// ImageProvider handles image generation
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	Configured() bool
}

// Provider combines all generation capabilities behind one adapter.
type Provider interface {
	CompletionProvider
	SpeechProvider
	ImageProvider
}
