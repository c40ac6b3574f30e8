package character

import (
	"context"

	"github.com/aiwill/companion-api/internal/domain"
)

// CharacterRepository is the read-only catalog lookup the conversation
// core depends on. The catalog service owns writes.
type CharacterRepository interface {
	// FindPublishedByID gates thread creation: only published characters.
	FindPublishedByID(ctx context.Context, characterID string) (*domain.Character, error)
	// FindByID resolves the character of an existing thread regardless of
	// publication status, so conversations survive catalog changes.
	FindByID(ctx context.Context, characterID string) (*domain.Character, error)
}
