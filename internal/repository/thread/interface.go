package thread

import (
	"context"

	"github.com/aiwill/companion-api/internal/domain"
)

// ThreadRepository handles thread data operations. Every query is
// scoped to active threads at this boundary; callers never see
// soft-deleted rows.
type ThreadRepository interface {
	Create(ctx context.Context, thread *domain.Thread) (*domain.Thread, error)
	FindByIDAndUserID(ctx context.Context, threadID, userID string) (*domain.Thread, error)
	FindByID(ctx context.Context, threadID string) (*domain.Thread, error)
	FindLatestByUserAndCharacter(ctx context.Context, userID, characterID string) (*domain.Thread, error)
	ListByUserID(ctx context.Context, userID, characterID, cursor string, limit int) ([]domain.Thread, bool, error)
	SoftDelete(ctx context.Context, threadID, userID string) (bool, error)
	SetPackID(ctx context.Context, threadID, packID string) error
	TouchUpdatedAt(ctx context.Context, threadID string) error
	ExistsActive(ctx context.Context, threadID string) (bool, error)
}
