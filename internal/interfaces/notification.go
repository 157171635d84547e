package interfaces

import "context"

// Notification is one templated message for one recipient
type Notification struct {
	To       string            // Recipient email
	Template string            // Template identifier ("moderation_rejected", "content_removed")
	Subject  string
	Fields   map[string]string // Template interpolation values
}

// NotificationService dispatches notifications to content owners.
// Fire-and-forget from the pipeline's perspective: failures are logged by
// implementations, never propagated into pipeline state.
type NotificationService interface {
	Send(ctx context.Context, n Notification) error
}
