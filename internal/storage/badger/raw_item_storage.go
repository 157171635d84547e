package badger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RawItemStorage implements the RawItemStorage interface for Badger
type RawItemStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// BadgerHold gives us atomic writes per record but not compare-and-swap,
	// so the pending->processing claim is serialized here. See ClaimForProcessing.
	claimMu sync.Mutex
}

// NewRawItemStorage creates a new RawItemStorage instance
func NewRawItemStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RawItemStorage {
	return &RawItemStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RawItemStorage) SaveItem(ctx context.Context, item *models.RawItem) error {
	if item.ID == "" {
		return fmt.Errorf("item ID is required")
	}

	if err := s.db.Store().Upsert(item.ID, item); err != nil {
		return fmt.Errorf("failed to save raw item: %w", err)
	}
	return nil
}

func (s *RawItemStorage) GetItem(ctx context.Context, id string) (*models.RawItem, error) {
	var item models.RawItem
	if err := s.db.Store().Get(id, &item); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("raw item not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get raw item: %w", err)
	}
	return &item, nil
}

func (s *RawItemStorage) ListPendingClassification(ctx context.Context, limit int) ([]*models.RawItem, error) {
	var items []models.RawItem
	query := badgerhold.Where("ClassificationStatus").Eq(models.ClassificationPending).SortBy("CollectedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list pending items: %w", err)
	}

	result := make([]*models.RawItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

// ListReadyForProcessing returns classified, unprocessed items in priority
// order: breaking=1, high=2, normal=3, low=4, anything else last; ties
// broken by collection order. Priority rank is computed, so the sort
// happens here rather than in the index.
func (s *RawItemStorage) ListReadyForProcessing(ctx context.Context, limit int) ([]*models.RawItem, error) {
	var items []models.RawItem
	query := badgerhold.Where("ClassificationStatus").Eq(models.ClassificationClassified).
		And("ProcessingStatus").Eq(models.ProcessingPending).
		SortBy("CollectedAt")
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list ready items: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PriorityRank() < items[j].PriorityRank()
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	result := make([]*models.RawItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

// ClaimForProcessing atomically transitions an item from pending to
// processing. A second runner re-reading the item under the same lock
// observes the first runner's write and loses the claim.
func (s *RawItemStorage) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	var item models.RawItem
	if err := s.db.Store().Get(id, &item); err != nil {
		if err == badgerhold.ErrNotFound {
			return false, fmt.Errorf("raw item not found: %s", id)
		}
		return false, err
	}

	if !item.CanProcess() {
		return false, nil
	}

	now := time.Now()
	item.ProcessingStatus = models.ProcessingInProgress
	item.ProcessingStartedAt = &now

	if err := s.db.Store().Upsert(item.ID, &item); err != nil {
		return false, fmt.Errorf("failed to claim item: %w", err)
	}
	return true, nil
}

func (s *RawItemStorage) ReclaimStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	threshold := time.Now().Add(-staleAfter)

	var items []models.RawItem
	query := badgerhold.Where("ProcessingStatus").Eq(models.ProcessingInProgress)
	if err := s.db.Store().Find(&items, query); err != nil {
		return 0, fmt.Errorf("failed to find in-flight items: %w", err)
	}

	reclaimed := 0
	for i := range items {
		item := &items[i]
		if item.ProcessingStartedAt == nil || item.ProcessingStartedAt.After(threshold) {
			continue
		}

		item.ProcessingStatus = models.ProcessingPending
		item.ProcessingStartedAt = nil
		if err := s.db.Store().Upsert(item.ID, item); err != nil {
			s.logger.Warn().Err(err).Str("item_id", item.ID).Msg("Failed to reclaim stale item")
			continue
		}
		reclaimed++
	}

	return reclaimed, nil
}
