package models

import "time"

// ComplaintType distinguishes reader complaints from creator appeals
type ComplaintType string

const (
	ComplaintTypeUser          ComplaintType = "user"
	ComplaintTypeCreatorAppeal ComplaintType = "creator_appeal"
)

// Complaint is one user-filed complaint or creator appeal against a piece
// of content. User complaints are unique on (content type, content id,
// complainant) — the storage layer enforces the key.
type Complaint struct {
	ID              string        `json:"id" badgerhold:"key"`
	ContentType     string        `json:"content_type" badgerhold:"index"`
	ContentID       string        `json:"content_id" badgerhold:"index"`
	ComplainantID   string        `json:"complainant_id"`
	Type            ComplaintType `json:"type"`
	Reason          string        `json:"reason"`
	Text            string        `json:"text,omitempty"`
	ModerationLogID string        `json:"moderation_log_id,omitempty"` // Set for creator appeals
	CreatedAt       time.Time     `json:"created_at"`
}

// DedupKey is the uniqueness key for user complaints
func (c *Complaint) DedupKey() string {
	return c.ContentType + "|" + c.ContentID + "|" + c.ComplainantID
}
