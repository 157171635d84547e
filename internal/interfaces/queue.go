package interfaces

import (
	"context"

	"github.com/ternarybob/praeco/internal/models"
)

// QueueManager is a durable at-least-once job queue.
// Messages become invisible for the visibility timeout once received and
// are redelivered when not deleted in time; messages exceeding the maximum
// receive count are dead-lettered.
type QueueManager interface {
	Enqueue(ctx context.Context, msg models.QueueMessage) error
	Close() error
}
