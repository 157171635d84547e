package interfaces

import (
	"context"

	"github.com/ternarybob/praeco/internal/models"
)

// ModerationService is the AI moderation gate.
// Moderate returns true when the content is publishable/visible, false
// when rejected. AI-provider failures fall open (return true); the error
// return is reserved for storage failures.
type ModerationService interface {
	Moderate(ctx context.Context, content models.Content, trigger, userID, regionID string) (bool, error)
}
