package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// complaintDedup is the uniqueness record for user complaints, keyed on
// (content type, content id, complainant). Creator appeals are exempt.
type complaintDedup struct {
	ID          string `badgerhold:"key"`
	ComplaintID string
}

// ComplaintStorage implements the ComplaintStorage interface for Badger
type ComplaintStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// Serializes the exists-check-then-insert pair for the dedup record
	dedupMu sync.Mutex
}

// NewComplaintStorage creates a new ComplaintStorage instance
func NewComplaintStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ComplaintStorage {
	return &ComplaintStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ComplaintStorage) SaveComplaint(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		return fmt.Errorf("complaint ID is required")
	}
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = time.Now()
	}

	if complaint.Type == models.ComplaintTypeUser {
		s.dedupMu.Lock()
		defer s.dedupMu.Unlock()

		key := complaint.DedupKey()
		var existing complaintDedup
		err := s.db.Store().Get(key, &existing)
		if err == nil {
			return fmt.Errorf("%w for %s", models.ErrDuplicateComplaint, key)
		}
		if err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to check complaint uniqueness: %w", err)
		}

		if err := s.db.Store().Insert(key, &complaintDedup{ID: key, ComplaintID: complaint.ID}); err != nil {
			return fmt.Errorf("failed to record complaint key: %w", err)
		}
	}

	if err := s.db.Store().Upsert(complaint.ID, complaint); err != nil {
		return fmt.Errorf("failed to save complaint: %w", err)
	}
	return nil
}

func (s *ComplaintStorage) Exists(ctx context.Context, contentType, contentID, complainantID string) (bool, error) {
	key := contentType + "|" + contentID + "|" + complainantID
	var existing complaintDedup
	err := s.db.Store().Get(key, &existing)
	if err == nil {
		return true, nil
	}
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to check complaint existence: %w", err)
}

func (s *ComplaintStorage) CountByContent(ctx context.Context, contentType, contentID string) (int, error) {
	count, err := s.db.Store().Count(&models.Complaint{},
		badgerhold.Where("ContentType").Eq(contentType).And("ContentID").Eq(contentID))
	if err != nil {
		return 0, fmt.Errorf("failed to count complaints: %w", err)
	}
	return int(count), nil
}

func (s *ComplaintStorage) ListByContent(ctx context.Context, contentType, contentID string) ([]*models.Complaint, error) {
	var complaints []models.Complaint
	query := badgerhold.Where("ContentType").Eq(contentType).
		And("ContentID").Eq(contentID).
		SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&complaints, query); err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}

	result := make([]*models.Complaint, len(complaints))
	for i := range complaints {
		result[i] = &complaints[i]
	}
	return result, nil
}
