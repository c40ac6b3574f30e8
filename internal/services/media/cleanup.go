// File: internal/services/media/cleanup.go
package media

import (
	"context"
	"time"
)

// ReclaimExpired deletes every image message whose expiry has passed,
// along with its stored file. File removal is best effort; a failed
// file delete is logged and the row is removed anyway so the sweep
// converges. Safe to call repeatedly.
func (s *Service) ReclaimExpired(ctx context.Context) (int, error) {
	expired, err := s.messageRepo.FindExpiredImages(ctx, time.Now().UTC())
	if err != nil {
		return 0, NewInternalError("reclaim_expired", "could not list expired images", err)
	}

	reclaimed := 0
	for _, msg := range expired {
		if msg.ImageURL != "" {
			if err := s.storage.DeleteImage(msg.ImageURL); err != nil {
				s.logger.Warn("failed to delete expired image file", "message_id", msg.ID, "url", msg.ImageURL, "error", err)
			}
		}
		if err := s.messageRepo.Delete(ctx, msg.ID); err != nil {
			s.logger.Error("failed to delete expired image record", "message_id", msg.ID, "error", err)
			continue
		}
		reclaimed++
	}

	if reclaimed > 0 {
		s.logger.Info("expired scene images reclaimed", "count", reclaimed)
	}
	return reclaimed, nil
}

// RunSweeper runs ReclaimExpired immediately and then on every tick
// until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context) {
	if _, err := s.ReclaimExpired(ctx); err != nil {
		s.logger.Error("startup image sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ReclaimExpired(ctx); err != nil {
				s.logger.Error("image sweep failed", "error", err)
			}
		}
	}
}
