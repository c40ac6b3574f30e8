// File: internal/services/conversation/config.go
package conversation

import (
	"fmt"
	"time"
)

type Config struct {
	// Context Configuration
	ContextWindow int // recent messages assembled into the LLM context

	// Pagination Configuration
	DefaultPageSize int
	MaxPageSize     int

	// Model Parameters
	MaxTokens   int
	Temperature float32

	// Performance Configuration
	LockTimeout time.Duration // per-thread lock acquisition bound
	SaveTimeout time.Duration // background persistence of streamed replies
}

func (c *Config) Validate() error {
	if c.ContextWindow <= 0 {
		return fmt.Errorf("context_window must be positive")
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("default_page_size must be positive")
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("max_page_size must be at least default_page_size")
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive")
	}
	if c.SaveTimeout <= 0 {
		return fmt.Errorf("save_timeout must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		ContextWindow:   10,
		DefaultPageSize: 20,
		MaxPageSize:     100,
		MaxTokens:       500,
		Temperature:     0.7,
		LockTimeout:     45 * time.Second,
		SaveTimeout:     5 * time.Second,
	}
}
