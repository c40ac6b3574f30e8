// File: internal/services/media/config.go
package media

import (
	"fmt"
	"time"
)

// Voices accepted by the speech endpoint.
var SupportedVoices = map[string]bool{
	"alloy":   true,
	"echo":    true,
	"fable":   true,
	"onyx":    true,
	"nova":    true,
	"shimmer": true,
}

const DefaultVoice = "nova"

// Config holds media service settings.
type Config struct {
	// ImagesDir is the local directory scene images are written to.
	ImagesDir string
	// ImageURLPrefix is the public path images are served under.
	ImageURLPrefix string
	// ImageTTL is how long a generated scene image stays available.
	ImageTTL time.Duration
	// SweepInterval is how often the reclamation sweep runs.
	SweepInterval time.Duration
	// MaxSceneMessages caps how many messages one scene request may reference.
	MaxSceneMessages int
}

func (c *Config) Validate() error {
	if c.ImagesDir == "" {
		return fmt.Errorf("images directory cannot be empty")
	}
	if c.ImageURLPrefix == "" {
		return fmt.Errorf("image URL prefix cannot be empty")
	}
	if c.ImageTTL <= 0 {
		return fmt.Errorf("image TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.MaxSceneMessages <= 0 {
		return fmt.Errorf("max scene messages must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		ImagesDir:        "static/images/scenes",
		ImageURLPrefix:   "/static/images/scenes",
		ImageTTL:         7 * 24 * time.Hour,
		SweepInterval:    time.Hour,
		MaxSceneMessages: 20,
	}
}
