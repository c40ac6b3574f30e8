// File: internal/repository/character/character_repository.go
package character

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/aiwill/companion-api/internal/domain"
)

var ErrCharacterNotFound = errors.New("character not found")

type gormCharacterRepository struct {
	db *gorm.DB
}

func NewCharacterRepository(db *gorm.DB) CharacterRepository {
	return &gormCharacterRepository{db: db}
}

// FindPublishedByID resolves a character only when it is published and
// not deleted; draft and suspended characters are invisible here.
func (r *gormCharacterRepository) FindPublishedByID(ctx context.Context, characterID string) (*domain.Character, error) {
	if characterID == "" {
		return nil, ErrCharacterNotFound
	}

	var ch domain.Character
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND deleted_at IS NULL", characterID, domain.CharacterStatusPublished).
		First(&ch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCharacterNotFound
		}
		log.Printf("[CharacterRepository] FindPublishedByID database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return &ch, nil
}

func (r *gormCharacterRepository) FindByID(ctx context.Context, characterID string) (*domain.Character, error) {
	if characterID == "" {
		return nil, ErrCharacterNotFound
	}

	var ch domain.Character
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", characterID).
		First(&ch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCharacterNotFound
		}
		log.Printf("[CharacterRepository] FindByID database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return &ch, nil
}
