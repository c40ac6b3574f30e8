// File: internal/services/media/service.go
package media

import (
	"github.com/aiwill/companion-api/internal/repository/character"
	"github.com/aiwill/companion-api/internal/repository/message"
	"github.com/aiwill/companion-api/internal/repository/thread"
	"github.com/aiwill/companion-api/internal/services/ai"
)

// Logger defines the logging interface used across media services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Service produces derived media from conversations: scene images with
// a bounded lifetime and on-demand speech audio.
type Service struct {
	config        *Config
	threadRepo    thread.ThreadRepository
	messageRepo   message.MessageRepository
	characterRepo character.CharacterRepository
	completions   ai.CompletionProvider
	images        ai.ImageProvider
	speech        ai.SpeechProvider
	storage       Storage
	logger        Logger
}

func NewService(
	config *Config,
	threadRepo thread.ThreadRepository,
	messageRepo message.MessageRepository,
	characterRepo character.CharacterRepository,
	completions ai.CompletionProvider,
	images ai.ImageProvider,
	speech ai.SpeechProvider,
	storage Storage,
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
	if completions == nil {
		return nil, NewValidationError("constructor", "completion provider is required")
	}
	if images == nil {
		return nil, NewValidationError("constructor", "image provider is required")
	}
	if speech == nil {
		return nil, NewValidationError("constructor", "speech provider is required")
	}
	if storage == nil {
		return nil, NewValidationError("constructor", "storage is required")
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
		completions:   completions,
		images:        images,
		speech:        speech,
		storage:       storage,
		logger:        logger,
	}, nil
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Warn(string, ...interface{})  {}
