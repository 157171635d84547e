package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ModerationLogStorage implements the ModerationLogStorage interface for Badger
type ModerationLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewModerationLogStorage creates a new ModerationLogStorage instance
func NewModerationLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ModerationLogStorage {
	return &ModerationLogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ModerationLogStorage) SaveLog(ctx context.Context, log *models.ModerationLog) error {
	if log.ID == "" {
		return fmt.Errorf("moderation log ID is required")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(log.ID, log); err != nil {
		return fmt.Errorf("failed to save moderation log: %w", err)
	}
	return nil
}

func (s *ModerationLogStorage) GetLog(ctx context.Context, id string) (*models.ModerationLog, error) {
	var log models.ModerationLog
	if err := s.db.Store().Get(id, &log); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("moderation log not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get moderation log: %w", err)
	}
	return &log, nil
}

func (s *ModerationLogStorage) UpdateAppealStatus(ctx context.Context, id string, status models.AppealStatus) error {
	var log models.ModerationLog
	if err := s.db.Store().Get(id, &log); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("moderation log not found: %s", id)
		}
		return err
	}

	log.AppealStatus = status
	if status == models.AppealPending {
		now := time.Now()
		log.AppealedAt = &now
	}

	return s.SaveLog(ctx, &log)
}

func (s *ModerationLogStorage) CountByContent(ctx context.Context, contentType, contentID string) (int, int, error) {
	logs, err := s.ListByContent(ctx, contentType, contentID)
	if err != nil {
		return 0, 0, err
	}

	failed := 0
	for _, log := range logs {
		if log.Decision == models.DecisionFail {
			failed++
		}
	}
	return len(logs), failed, nil
}

func (s *ModerationLogStorage) ListByContent(ctx context.Context, contentType, contentID string) ([]*models.ModerationLog, error) {
	var logs []models.ModerationLog
	query := badgerhold.Where("ContentType").Eq(contentType).
		And("ContentID").Eq(contentID).
		SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&logs, query); err != nil {
		return nil, fmt.Errorf("failed to list moderation logs: %w", err)
	}

	result := make([]*models.ModerationLog, len(logs))
	for i := range logs {
		result[i] = &logs[i]
	}
	return result, nil
}
