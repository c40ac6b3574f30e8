// File: internal/services/ai/openai_provider.go
package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider adapts one OpenAI-compatible endpoint to all three
// generation capabilities (completion, speech, image).
type OpenAIProvider struct {
	config *Config
	client *openai.Client
}

func NewOpenAIProvider(config *Config) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIProvider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (p *OpenAIProvider) Configured() bool {
	return p.config.APIKey != ""
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !p.Configured() {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.CompletionTimeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req, false))
	if err != nil {
		return "", NewProviderError("completion", "failed to create completion", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &AIError{
			Type:      ErrTypeProvider,
			Operation: "completion",
			Message:   "empty completion response",
		}
	}

	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) StreamCompletion(ctx context.Context, req CompletionRequest, onDelta func(string) error) (*CompletionResult, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.CompletionTimeout)
	defer cancel()

	stream, err := p.client.CreateChatCompletionStream(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, NewProviderError("streaming", "failed to create stream", err)
	}
	defer stream.Close()

	result := &CompletionResult{FinishReason: FinishReasonStop}
	for {
		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return result, nil
			}
			return nil, NewProviderError("streaming", "stream receive error", err)
		}

		if response.Usage != nil {
			result.Usage = &Usage{
				PromptTokens:     response.Usage.PromptTokens,
				CompletionTokens: response.Usage.CompletionTokens,
				TotalTokens:      response.Usage.TotalTokens,
			}
		}

		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]
		if choice.FinishReason != "" && choice.FinishReason != openai.FinishReasonNull {
			result.FinishReason = normalizeFinishReason(choice.FinishReason)
		}
		if choice.Delta.Content != "" && onDelta != nil {
			if cbErr := onDelta(choice.Delta.Content); cbErr != nil {
				return nil, cbErr
			}
		}
	}
}

func (p *OpenAIProvider) SynthesizeSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.SpeechTimeout)
	defer cancel()

	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.config.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, NewProviderError("speech", "failed to synthesize speech", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, NewProviderError("speech", "failed to read audio stream", err)
	}
	if len(audio) == 0 {
		return nil, &AIError{
			Type:      ErrTypeProvider,
			Operation: "speech",
			Message:   "empty audio response",
		}
	}
	return audio, nil
}

func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.ImageTimeout)
	defer cancel()

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Model:          p.config.ImageModel,
		Prompt:         prompt,
		Size:           openai.CreateImageSize1024x1024,
		Quality:        openai.CreateImageQualityStandard,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, NewProviderError("image", "failed to generate image", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, &AIError{
			Type:      ErrTypeProvider,
			Operation: "image",
			Message:   "empty image response",
		}
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, NewProviderError("image", "failed to decode image payload", err)
	}
	return raw, nil
}

func (p *OpenAIProvider) buildRequest(req CompletionRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.config.MaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.config.Temperature
	}

	r := openai.ChatCompletionRequest{
		Model:       p.config.ChatModel,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if stream {
		r.Stream = true
		r.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return r
}

func normalizeFinishReason(reason openai.FinishReason) string {
	switch reason {
	case openai.FinishReasonLength:
		return FinishReasonLength
	case openai.FinishReasonContentFilter:
		return FinishReasonContentFilter
	default:
		return FinishReasonStop
	}
}
