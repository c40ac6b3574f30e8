// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aiwill/companion-api/internal/domain"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrThreadNotFound  = errors.New("thread not found")
)

const maxContentLength = 10000

type gormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// Append persists a new message. The thread must exist; the store trusts
// that the caller already passed the ownership gate.
func (r *gormMessageRepository) Append(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := r.validateMessageInput(message); err != nil {
		log.Printf("[MessageRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Thread{}).
		Where("id = ?", message.ThreadID).
		Count(&count).Error; err != nil {
		log.Printf("[MessageRepository] Database error checking thread %s: %v", message.ThreadID, err)
		return nil, errors.New("database error checking thread existence")
	}
	if count == 0 {
		return nil, ErrThreadNotFound
	}

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		log.Printf("[MessageRepository] Database error during message creation for thread %s: %v", message.ThreadID, err)
		return nil, errors.New("database error creating message")
	}

	log.Printf("[MessageRepository] Message created: %s thread=%s role=%s", message.ID, message.ThreadID, message.Role)
	return message, nil
}

// List pages messages with a keyset cursor over (created_at, id). The
// cursor is a message id; order decides whether rows strictly before or
// strictly after it are returned. has_more comes from the limit+1 probe.
func (r *gormMessageRepository) List(ctx context.Context, threadID, cursor string, limit int, order string) ([]domain.Message, bool, error) {
	if threadID == "" {
		return nil, false, errors.New("invalid thread ID")
	}
	if limit <= 0 {
		return nil, false, errors.New("invalid limit: must be positive")
	}
	if order != OrderAsc && order != OrderDesc {
		return nil, false, errors.New("invalid order: must be asc or desc")
	}

	q := r.db.WithContext(ctx).Where("thread_id = ?", threadID)

	if cursor != "" {
		var pivot domain.Message
		err := r.db.WithContext(ctx).
			Where("thread_id = ? AND id = ?", threadID, cursor).
			First(&pivot).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[MessageRepository] Database error resolving cursor %s: %v", cursor, err)
				return nil, false, errors.New("database error resolving cursor")
			}
			// Dead cursor (row expired since the last page): page from the start.
		} else if order == OrderDesc {
			q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", pivot.CreatedAt, pivot.CreatedAt, pivot.ID)
		} else {
			q = q.Where("created_at > ? OR (created_at = ? AND id > ?)", pivot.CreatedAt, pivot.CreatedAt, pivot.ID)
		}
	}

	if order == OrderDesc {
		q = q.Order("created_at DESC, id DESC")
	} else {
		q = q.Order("created_at ASC, id ASC")
	}

	var messages []domain.Message
	if err := q.Limit(limit + 1).Find(&messages).Error; err != nil {
		log.Printf("[MessageRepository] Database error listing messages for thread %s: %v", threadID, err)
		return nil, false, errors.New("database error fetching messages")
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	return messages, hasMore, nil
}

// Get fetches a single message scoped to its thread.
func (r *gormMessageRepository) Get(ctx context.Context, threadID, messageID string) (*domain.Message, error) {
	if threadID == "" || messageID == "" {
		return nil, ErrMessageNotFound
	}

	var message domain.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND id = ?", threadID, messageID).
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		log.Printf("[MessageRepository] Get database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return &message, nil
}

// FindByIDs fetches the given messages of a thread in chronological
// order. IDs that do not resolve are silently absent from the result.
func (r *gormMessageRepository) FindByIDs(ctx context.Context, threadID string, messageIDs []string) ([]domain.Message, error) {
	if threadID == "" {
		return nil, errors.New("invalid thread ID")
	}
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND id IN ?", threadID, messageIDs).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error fetching messages by IDs for thread %s: %v", threadID, err)
		return nil, errors.New("database error fetching messages")
	}
	return messages, nil
}

// FindRecent returns the most recent limit messages in chronological
// order, for context assembly.
func (r *gormMessageRepository) FindRecent(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	if threadID == "" {
		return nil, errors.New("invalid thread ID")
	}
	if limit <= 0 {
		return nil, errors.New("invalid limit: must be positive")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error finding recent messages for thread %s: %v", threadID, err)
		return nil, errors.New("database error finding recent messages")
	}

	// Reverse to oldest→newest.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Delete hard-deletes a message row. Only the expiry sweep uses this;
// messages are otherwise immutable.
func (r *gormMessageRepository) Delete(ctx context.Context, messageID string) error {
	if messageID == "" {
		return errors.New("invalid message ID")
	}

	result := r.db.WithContext(ctx).Where("id = ?", messageID).Delete(&domain.Message{})
	if result.Error != nil {
		log.Printf("[MessageRepository] Database error deleting message %s: %v", messageID, result.Error)
		return errors.New("database error deleting message")
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}

	log.Printf("[MessageRepository] Message deleted: %s", messageID)
	return nil
}

// FindExpiredImages scans for image messages whose expiry has passed.
func (r *gormMessageRepository) FindExpiredImages(ctx context.Context, now time.Time) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("content_type = ? AND expires_at IS NOT NULL AND expires_at < ?", domain.ContentTypeImage, now).
		Find(&messages).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error scanning expired images: %v", err)
		return nil, errors.New("database error scanning expired images")
	}
	return messages, nil
}

func (r *gormMessageRepository) CountByThreadID(ctx context.Context, threadID string) (int64, error) {
	if threadID == "" {
		return 0, errors.New("invalid thread ID")
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("thread_id = ?", threadID).
		Count(&count).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error counting messages for thread %s: %v", threadID, err)
		return 0, errors.New("database error counting messages")
	}
	return count, nil
}

// FindLastByThreadID returns the newest message of a thread, or nil when
// the thread has none. Used for the thread-list projection.
func (r *gormMessageRepository) FindLastByThreadID(ctx context.Context, threadID string) (*domain.Message, error) {
	if threadID == "" {
		return nil, errors.New("invalid thread ID")
	}

	var message domain.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Printf("[MessageRepository] Database error finding last message for thread %s: %v", threadID, err)
		return nil, errors.New("database error finding last message")
	}
	return &message, nil
}

// ===== VALIDATION HELPERS =====

func (r *gormMessageRepository) validateMessageInput(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if message.ThreadID == "" {
		return errors.New("thread ID is required")
	}
	if err := r.validateRole(message.Role); err != nil {
		return fmt.Errorf("role validation: %w", err)
	}
	if strings.TrimSpace(message.Content) == "" {
		return errors.New("message content cannot be empty")
	}
	if len(message.Content) > maxContentLength {
		return fmt.Errorf("message content too long (max %d characters)", maxContentLength)
	}
	if message.ContentType != "" &&
		message.ContentType != domain.ContentTypeText &&
		message.ContentType != domain.ContentTypeImage {
		return errors.New("invalid content type")
	}
	if message.ContentType == domain.ContentTypeImage && message.ImageURL == "" {
		return errors.New("image messages require an image URL")
	}
	return nil
}

func (r *gormMessageRepository) validateRole(role string) error {
	switch role {
	case domain.RoleUser, domain.RoleCharacter, domain.RoleSystem:
		return nil
	default:
		return errors.New("invalid message role")
	}
}
