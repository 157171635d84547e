package complaints

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/praeco/internal/common"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/models"
)

// Service records user complaints and creator appeals.
//
// Appeal resolution (overturned/upheld) is a downstream reviewer workflow;
// this service only records the request and advances the log's appeal
// state to pending.
type Service struct {
	complaints interfaces.ComplaintStorage
	logs       interfaces.ModerationLogStorage
	logger     arbor.ILogger
}

// NewService creates a new complaint service
func NewService(
	complaints interfaces.ComplaintStorage,
	logs interfaces.ModerationLogStorage,
	logger arbor.ILogger,
) *Service {
	return &Service{
		complaints: complaints,
		logs:       logs,
		logger:     logger,
	}
}

// FileComplaint records a user complaint against a piece of content.
// Returns models.ErrDuplicateComplaint when the same user has already
// complained about the same content; a duplicate is rejected, never
// silently merged.
func (s *Service) FileComplaint(ctx context.Context, contentType, contentID, userID, reason, text string) (*models.Complaint, error) {
	if contentType == "" || contentID == "" {
		return nil, fmt.Errorf("content type and id are required")
	}
	if userID == "" {
		return nil, fmt.Errorf("complainant id is required")
	}
	if reason == "" {
		return nil, fmt.Errorf("reason is required")
	}

	exists, err := s.complaints.Exists(ctx, contentType, contentID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing complaints: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s/%s by %s", models.ErrDuplicateComplaint, contentType, contentID, userID)
	}

	complaint := &models.Complaint{
		ID:            common.NewComplaintID(),
		ContentType:   contentType,
		ContentID:     contentID,
		ComplainantID: userID,
		Type:          models.ComplaintTypeUser,
		Reason:        reason,
		Text:          text,
		CreatedAt:     time.Now(),
	}

	// The storage key enforces uniqueness again under concurrent filers
	if err := s.complaints.SaveComplaint(ctx, complaint); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("complaint_id", complaint.ID).
		Str("content_type", contentType).
		Str("content_id", contentID).
		Str("reason", reason).
		Msg("Complaint filed")

	return complaint, nil
}

// FileAppeal records a creator appeal against a moderation verdict.
// Returns models.ErrNotAuthorized when the requesting user did not author
// the moderated content, and models.ErrDuplicateAppeal when the log
// already carries an appeal. On success the log's appeal status becomes
// pending and a creator_appeal complaint references the same content.
func (s *Service) FileAppeal(ctx context.Context, moderationLogID, creatorID, appealText string) (*models.Complaint, error) {
	if moderationLogID == "" {
		return nil, fmt.Errorf("moderation log id is required")
	}
	if creatorID == "" {
		return nil, fmt.Errorf("creator id is required")
	}

	log, err := s.logs.GetLog(ctx, moderationLogID)
	if err != nil {
		return nil, fmt.Errorf("failed to load moderation log: %w", err)
	}

	// Ownership check against the user recorded on the verdict
	if log.UserID == "" || log.UserID != creatorID {
		return nil, fmt.Errorf("%w: user %s did not author content %s/%s",
			models.ErrNotAuthorized, creatorID, log.ContentType, log.ContentID)
	}

	if !log.CanAppeal() {
		return nil, fmt.Errorf("%w: log %s already has appeal status %q",
			models.ErrDuplicateAppeal, log.ID, log.AppealStatus)
	}

	if err := s.logs.UpdateAppealStatus(ctx, log.ID, models.AppealPending); err != nil {
		return nil, fmt.Errorf("failed to update appeal status: %w", err)
	}

	complaint := &models.Complaint{
		ID:              common.NewComplaintID(),
		ContentType:     log.ContentType,
		ContentID:       log.ContentID,
		ComplainantID:   creatorID,
		Type:            models.ComplaintTypeCreatorAppeal,
		Reason:          "moderation_appeal",
		Text:            appealText,
		ModerationLogID: log.ID,
		CreatedAt:       time.Now(),
	}

	if err := s.complaints.SaveComplaint(ctx, complaint); err != nil {
		return nil, fmt.Errorf("failed to save appeal complaint: %w", err)
	}

	s.logger.Info().
		Str("complaint_id", complaint.ID).
		Str("moderation_log_id", log.ID).
		Str("content_type", log.ContentType).
		Str("content_id", log.ContentID).
		Msg("Creator appeal filed")

	return complaint, nil
}
