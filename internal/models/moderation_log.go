package models

import "time"

// Decision is a moderation verdict
type Decision string

const (
	DecisionPass Decision = "pass"
	DecisionFail Decision = "fail"
)

// AppealStatus tracks the creator-appeal state machine on a moderation log.
// Empty means no appeal has been filed.
type AppealStatus string

const (
	AppealNone       AppealStatus = ""
	AppealPending    AppealStatus = "pending"
	AppealOverturned AppealStatus = "overturned"
	AppealUpheld     AppealStatus = "upheld"
)

// ModerationModelError is recorded as the model identifier when the AI
// provider failed and the gate fell open.
const ModerationModelError = "error"

// ModerationLog is one verdict for one content instance. Re-moderating the
// same content creates a new log; logs are never updated except for the
// appeal state machine, which is advanced only by the complaint service.
type ModerationLog struct {
	ID          string   `json:"id" badgerhold:"key"`
	ContentType string   `json:"content_type" badgerhold:"index"`
	ContentID   string   `json:"content_id" badgerhold:"index"`
	UserID      string   `json:"user_id,omitempty"`
	RegionID    string   `json:"region_id,omitempty"`
	Trigger     string   `json:"trigger"`
	Snapshot    string   `json:"snapshot"` // Exact text sent to the AI provider, kept for audit
	Decision    Decision `json:"decision"`

	ViolationSection     string `json:"violation_section,omitempty"`
	ViolationExplanation string `json:"violation_explanation,omitempty"`

	Model     string        `json:"model"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at" badgerhold:"index"`

	AppealStatus AppealStatus `json:"appeal_status,omitempty"`
	AppealedAt   *time.Time   `json:"appealed_at,omitempty"`
}

// CanAppeal reports whether a creator appeal may still be filed
func (l *ModerationLog) CanAppeal() bool {
	return l.AppealStatus == AppealNone
}
