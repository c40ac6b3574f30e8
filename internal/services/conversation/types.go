// File: internal/services/conversation/types.go
package conversation

import "github.com/aiwill/companion-api/internal/domain"

// Logger defines the logging interface used across conversation services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Pagination describes the position after a page.
type Pagination struct {
	NextCursor string
	HasMore    bool
}

// ThreadSummary is a thread plus its last-message projection for
// listing screens.
type ThreadSummary struct {
	Thread      domain.Thread
	LastMessage *domain.Message
}
