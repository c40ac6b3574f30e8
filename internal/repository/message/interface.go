// File: internal/repository/message/interface.go
package message

import (
	"context"
	"time"

	"github.com/aiwill/companion-api/internal/domain"
)

// Order constants for List.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// MessageRepository is the append-only ordered log of messages per
// thread. Rows are immutable once written; the only delete path is the
// hard delete used by the expiry sweep.
type MessageRepository interface {
	Append(ctx context.Context, message *domain.Message) (*domain.Message, error)
	List(ctx context.Context, threadID, cursor string, limit int, order string) ([]domain.Message, bool, error)
	Get(ctx context.Context, threadID, messageID string) (*domain.Message, error)
	FindByIDs(ctx context.Context, threadID string, messageIDs []string) ([]domain.Message, error)
	FindRecent(ctx context.Context, threadID string, limit int) ([]domain.Message, error)
	Delete(ctx context.Context, messageID string) error
	FindExpiredImages(ctx context.Context, now time.Time) ([]domain.Message, error)
	CountByThreadID(ctx context.Context, threadID string) (int64, error)
	FindLastByThreadID(ctx context.Context, threadID string) (*domain.Message, error)
}
