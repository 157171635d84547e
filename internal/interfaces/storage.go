package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/praeco/internal/models"
)

// RawItemStorage persists collected items and their pipeline state
type RawItemStorage interface {
	SaveItem(ctx context.Context, item *models.RawItem) error
	GetItem(ctx context.Context, id string) (*models.RawItem, error)

	// ListPendingClassification returns items awaiting classification,
	// oldest first, up to limit.
	ListPendingClassification(ctx context.Context, limit int) ([]*models.RawItem, error)

	// ListReadyForProcessing returns classified items with
	// processing_status=pending ordered by priority rank then collection
	// order, up to limit.
	ListReadyForProcessing(ctx context.Context, limit int) ([]*models.RawItem, error)

	// ClaimForProcessing atomically transitions an item from pending to
	// processing. Returns false when another runner already won the claim
	// or the item is no longer eligible.
	ClaimForProcessing(ctx context.Context, id string) (bool, error)

	// ReclaimStale returns items stuck in processing longer than staleAfter
	// back to pending. Returns the number of items reclaimed.
	ReclaimStale(ctx context.Context, staleAfter time.Duration) (int, error)
}

// ModerationLogStorage persists moderation verdicts
type ModerationLogStorage interface {
	SaveLog(ctx context.Context, log *models.ModerationLog) error
	GetLog(ctx context.Context, id string) (*models.ModerationLog, error)
	UpdateAppealStatus(ctx context.Context, id string, status models.AppealStatus) error

	// CountByContent returns total and failed verdict counts for all
	// moderation logs recorded against one content instance.
	CountByContent(ctx context.Context, contentType, contentID string) (total int, failed int, err error)

	// ListByContent returns the verdict history for one content instance,
	// newest first.
	ListByContent(ctx context.Context, contentType, contentID string) ([]*models.ModerationLog, error)
}

// ComplaintStorage persists complaints and creator appeals
type ComplaintStorage interface {
	// SaveComplaint inserts a complaint. For user complaints it enforces
	// uniqueness on (content type, content id, complainant) and returns
	// models-level duplicate detection via Exists.
	SaveComplaint(ctx context.Context, complaint *models.Complaint) error
	Exists(ctx context.Context, contentType, contentID, complainantID string) (bool, error)
	CountByContent(ctx context.Context, contentType, contentID string) (int, error)
	ListByContent(ctx context.Context, contentType, contentID string) ([]*models.Complaint, error)
}

// InterventionLogStorage persists intervention evaluation snapshots
type InterventionLogStorage interface {
	SaveLog(ctx context.Context, log *models.InterventionLog) error
	ListByContent(ctx context.Context, contentType, contentID string) ([]*models.InterventionLog, error)
}

// ContentStorage persists published content variants.
// Save accepts any Content variant; Get resolves a polymorphic
// (content type, content id) reference back to its variant.
type ContentStorage interface {
	SaveContent(ctx context.Context, content models.Content) error
	GetContent(ctx context.Context, contentType, contentID string) (models.Content, error)
	ListVisibleArticles(ctx context.Context, limit int) ([]*models.Article, error)
	ListCommentsByParent(ctx context.Context, parentType, parentID string) ([]*models.Comment, error)
}

// KeyValueStorage is generic key/value storage for runtime settings and
// credentials (SMTP, API keys).
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value, description string) error
	Delete(ctx context.Context, key string) error
}

// UserStorage resolves content owners to notification recipients
type UserStorage interface {
	GetEmail(ctx context.Context, userID string) (string, error)
	SaveUser(ctx context.Context, user *models.User) error
}

// StorageManager aggregates all storage interfaces behind one handle
type StorageManager interface {
	RawItems() RawItemStorage
	ModerationLogs() ModerationLogStorage
	Complaints() ComplaintStorage
	InterventionLogs() InterventionLogStorage
	Contents() ContentStorage
	KeyValue() KeyValueStorage
	Users() UserStorage
	Close() error
}
