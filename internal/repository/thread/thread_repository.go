// File: internal/repository/thread/thread_repository.go
package thread

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/aiwill/companion-api/internal/domain"
)

var ErrThreadNotFound = errors.New("thread not found")

type gormThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &gormThreadRepository{db: db}
}

// activeScope is the single authoritative lifecycle filter. All reads
// go through it so a forgotten deleted-check cannot leak dead threads.
func activeScope(db *gorm.DB) *gorm.DB {
	return db.Where("state = ?", domain.ThreadStateActive)
}

func (r *gormThreadRepository) Create(ctx context.Context, thread *domain.Thread) (*domain.Thread, error) {
	if err := r.validateThreadInput(thread); err != nil {
		log.Printf("[ThreadRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	err := r.db.WithContext(ctx).Create(thread).Error
	if err != nil {
		log.Printf("[ThreadRepository] Database error during thread creation for user %s: %v", thread.UserID, err)
		return nil, errors.New("database error creating thread")
	}

	log.Printf("[ThreadRepository] Thread created: %s user=%s character=%s", thread.ID, thread.UserID, thread.CharacterID)
	return thread, nil
}

// FindByIDAndUserID is the ownership gate: a thread owned by another
// user is indistinguishable from a missing one.
func (r *gormThreadRepository) FindByIDAndUserID(ctx context.Context, threadID, userID string) (*domain.Thread, error) {
	if threadID == "" || userID == "" {
		return nil, ErrThreadNotFound
	}

	var thread domain.Thread
	err := activeScope(r.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", threadID, userID).
		First(&thread).Error
	return r.handleFindError(err, &thread, "FindByIDAndUserID")
}

func (r *gormThreadRepository) FindByID(ctx context.Context, threadID string) (*domain.Thread, error) {
	if threadID == "" {
		return nil, ErrThreadNotFound
	}

	var thread domain.Thread
	err := activeScope(r.db.WithContext(ctx)).
		Where("id = ?", threadID).
		First(&thread).Error
	return r.handleFindError(err, &thread, "FindByID")
}

// FindLatestByUserAndCharacter returns the most recently updated active
// thread for the pair, or ErrThreadNotFound.
func (r *gormThreadRepository) FindLatestByUserAndCharacter(ctx context.Context, userID, characterID string) (*domain.Thread, error) {
	if userID == "" || characterID == "" {
		return nil, ErrThreadNotFound
	}

	var thread domain.Thread
	err := activeScope(r.db.WithContext(ctx)).
		Where("user_id = ? AND character_id = ?", userID, characterID).
		Order("updated_at DESC, id DESC").
		First(&thread).Error
	return r.handleFindError(err, &thread, "FindLatestByUserAndCharacter")
}

// ListByUserID pages threads by recency. The cursor is a thread id; rows
// strictly after the cursor position in (updated_at DESC, id DESC) order
// are returned. Returns has_more via the limit+1 probe.
func (r *gormThreadRepository) ListByUserID(ctx context.Context, userID, characterID, cursor string, limit int) ([]domain.Thread, bool, error) {
	if userID == "" {
		return nil, false, errors.New("invalid user ID")
	}
	if limit <= 0 {
		return nil, false, errors.New("invalid limit: must be positive")
	}

	q := activeScope(r.db.WithContext(ctx)).Where("user_id = ?", userID)
	if characterID != "" {
		q = q.Where("character_id = ?", characterID)
	}

	if cursor != "" {
		var pivot domain.Thread
		err := activeScope(r.db.WithContext(ctx)).Where("id = ?", cursor).First(&pivot).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[ThreadRepository] Database error resolving cursor %s: %v", cursor, err)
				return nil, false, errors.New("database error resolving cursor")
			}
			// Dead cursor (thread deleted since the last page): page from the start.
		} else {
			q = q.Where("updated_at < ? OR (updated_at = ? AND id < ?)", pivot.UpdatedAt, pivot.UpdatedAt, pivot.ID)
		}
	}

	var threads []domain.Thread
	err := q.Order("updated_at DESC, id DESC").Limit(limit + 1).Find(&threads).Error
	if err != nil {
		log.Printf("[ThreadRepository] Database error listing threads for user %s: %v", userID, err)
		return nil, false, errors.New("database error fetching threads")
	}

	hasMore := len(threads) > limit
	if hasMore {
		threads = threads[:limit]
	}
	return threads, hasMore, nil
}

// SoftDelete flips the lifecycle state. Returns false when the thread is
// absent, already deleted, or owned by someone else.
func (r *gormThreadRepository) SoftDelete(ctx context.Context, threadID, userID string) (bool, error) {
	if threadID == "" || userID == "" {
		return false, errors.New("invalid thread ID or user ID")
	}

	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ? AND user_id = ? AND state = ?", threadID, userID, domain.ThreadStateActive).
		Updates(map[string]interface{}{
			"state":      domain.ThreadStateDeleted,
			"deleted_at": now,
		})

	if result.Error != nil {
		log.Printf("[ThreadRepository] Database error deleting thread %s for user %s: %v", threadID, userID, result.Error)
		return false, errors.New("database error deleting thread")
	}

	if result.RowsAffected == 0 {
		return false, nil
	}

	log.Printf("[ThreadRepository] Thread soft-deleted: %s user=%s", threadID, userID)
	return true, nil
}

// SetPackID backfills provenance on a thread that was created without it.
func (r *gormThreadRepository) SetPackID(ctx context.Context, threadID, packID string) error {
	if threadID == "" || packID == "" {
		return errors.New("invalid thread ID or pack ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ? AND (pack_id = '' OR pack_id IS NULL)", threadID).
		Update("pack_id", packID)

	if result.Error != nil {
		log.Printf("[ThreadRepository] Database error setting pack for thread %s: %v", threadID, result.Error)
		return errors.New("database error updating thread pack")
	}
	return nil
}

func (r *gormThreadRepository) TouchUpdatedAt(ctx context.Context, threadID string) error {
	if threadID == "" {
		return errors.New("invalid thread ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ?", threadID).
		Update("updated_at", time.Now().UTC())

	if result.Error != nil {
		log.Printf("[ThreadRepository] Database error updating timestamp for thread %s: %v", threadID, result.Error)
		return errors.New("database error updating thread timestamp")
	}

	if result.RowsAffected == 0 {
		return ErrThreadNotFound
	}
	return nil
}

func (r *gormThreadRepository) ExistsActive(ctx context.Context, threadID string) (bool, error) {
	if threadID == "" {
		return false, errors.New("invalid thread ID")
	}

	var count int64
	err := activeScope(r.db.WithContext(ctx).Model(&domain.Thread{})).
		Where("id = ?", threadID).
		Count(&count).Error
	if err != nil {
		log.Printf("[ThreadRepository] Database error checking thread existence for %s: %v", threadID, err)
		return false, errors.New("database error checking thread existence")
	}
	return count > 0, nil
}

// ===== VALIDATION / ERROR HELPERS =====

func (r *gormThreadRepository) validateThreadInput(thread *domain.Thread) error {
	if thread == nil {
		return errors.New("thread cannot be nil")
	}
	if thread.UserID == "" {
		return errors.New("user ID is required")
	}
	if thread.CharacterID == "" {
		return errors.New("character ID is required")
	}
	if thread.SessionType != "" &&
		thread.SessionType != domain.SessionTypeFree &&
		thread.SessionType != domain.SessionTypeEvent {
		return errors.New("invalid session type")
	}
	return nil
}

// handleFindError keeps not-found distinct from database failures without
// leaking query details to callers.
func (r *gormThreadRepository) handleFindError(err error, thread *domain.Thread, operation string) (*domain.Thread, error) {
	if err == nil {
		return thread, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}

	log.Printf("[ThreadRepository] %s database error: %v", operation, err)
	return nil, errors.New("database query failed")
}
