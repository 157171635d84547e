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

// InterventionLogStorage implements the InterventionLogStorage interface for Badger
type InterventionLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewInterventionLogStorage creates a new InterventionLogStorage instance
func NewInterventionLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.InterventionLogStorage {
	return &InterventionLogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *InterventionLogStorage) SaveLog(ctx context.Context, log *models.InterventionLog) error {
	if log.ID == "" {
		return fmt.Errorf("intervention log ID is required")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(log.ID, log); err != nil {
		return fmt.Errorf("failed to save intervention log: %w", err)
	}
	return nil
}

func (s *InterventionLogStorage) ListByContent(ctx context.Context, contentType, contentID string) ([]*models.InterventionLog, error) {
	var logs []models.InterventionLog
	query := badgerhold.Where("ContentType").Eq(contentType).
		And("ContentID").Eq(contentID).
		SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&logs, query); err != nil {
		return nil, fmt.Errorf("failed to list intervention logs: %w", err)
	}

	result := make([]*models.InterventionLog, len(logs))
	for i := range logs {
		result[i] = &logs[i]
	}
	return result, nil
}
