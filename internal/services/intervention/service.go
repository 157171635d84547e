package intervention

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/praeco/internal/common"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/models"
)

// Service is the post-publication intervention monitor. Given the comment
// health of a piece of published content it decides to protect it, flag it
// for enhanced monitoring, or remove it.
//
// The decision is a pure function of the civil-discourse ratio against the
// two configured thresholds; the only side effects are the always-written
// audit log, the visibility change on removal, and the owner notification.
type Service struct {
	logs       interfaces.InterventionLogStorage
	contents   interfaces.ContentStorage
	complaints interfaces.ComplaintStorage
	users      interfaces.UserStorage
	notifier   interfaces.NotificationService
	config     *common.InterventionConfig
	logger     arbor.ILogger
}

// NewService creates a new intervention monitor
func NewService(
	logs interfaces.InterventionLogStorage,
	contents interfaces.ContentStorage,
	complaints interfaces.ComplaintStorage,
	users interfaces.UserStorage,
	notifier interfaces.NotificationService,
	config *common.InterventionConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		logs:       logs,
		contents:   contents,
		complaints: complaints,
		users:      users,
		notifier:   notifier,
		config:     config,
		logger:     logger,
	}
}

// RunIntervention evaluates one piece of published content.
// An InterventionLog is always persisted regardless of branch. The
// removed outcome sets the content's visibility exactly once: content
// already removed is logged but not mutated again.
func (s *Service) RunIntervention(ctx context.Context, content models.Content, signal string, commentCount, failedComments, complaintCount int) (*models.InterventionLog, error) {
	ratio := models.CivilDiscourseRatio(commentCount, failedComments)

	log := &models.InterventionLog{
		ID:                   common.NewInterventionLogID(),
		ContentType:          content.ContentType(),
		ContentID:            content.ContentID(),
		Signal:               signal,
		TotalComments:        commentCount,
		CompliantComments:    commentCount - failedComments,
		NonCompliantComments: failedComments,
		Ratio:                ratio,
		ComplaintCount:       complaintCount,
		CreatedAt:            time.Now(),
	}

	switch {
	case ratio >= s.config.ProtectedThreshold:
		log.Outcome = models.OutcomeProtected
		log.Reason = fmt.Sprintf("civil discourse ratio %.2f meets protected threshold %.2f", ratio, s.config.ProtectedThreshold)

	case ratio >= s.config.MonitoringThreshold:
		log.Outcome = models.OutcomeEnhancedMonitoring
		log.Reason = fmt.Sprintf("civil discourse ratio %.2f below protected threshold %.2f, flagged for closer scrutiny", ratio, s.config.ProtectedThreshold)

	default:
		log.Outcome = models.OutcomeRemoved
		log.Reason = fmt.Sprintf("civil discourse ratio %.2f below monitoring threshold %.2f with %d complaints", ratio, s.config.MonitoringThreshold, complaintCount)

		if err := s.removeContent(ctx, content, log.Reason); err != nil {
			return nil, err
		}
		s.notifyRemoval(ctx, content, log.Reason)
	}

	if err := s.logs.SaveLog(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to save intervention log: %w", err)
	}

	s.logger.Info().
		Str("log_id", log.ID).
		Str("content_type", log.ContentType).
		Str("content_id", log.ContentID).
		Str("outcome", string(log.Outcome)).
		Float64("ratio", ratio).
		Int("complaints", complaintCount).
		Msg("Intervention evaluated")

	return log, nil
}

// ScanVisibleArticles aggregates comment health for every visible article
// and feeds each through RunIntervention. Returns (evaluated, removed)
// counts. A single article's evaluation failure is logged and skipped.
func (s *Service) ScanVisibleArticles(ctx context.Context, signal string) (int, int, error) {
	articles, err := s.contents.ListVisibleArticles(ctx, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list visible articles: %w", err)
	}

	evaluated := 0
	removed := 0
	for _, article := range articles {
		comments, err := s.contents.ListCommentsByParent(ctx, article.ContentType(), article.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("article_id", article.ID).Msg("Failed to list comments, skipping article")
			continue
		}

		failed := 0
		for _, c := range comments {
			if c.ModerationStatus == models.ModerationRejected {
				failed++
			}
		}

		complaintCount, err := s.complaints.CountByContent(ctx, article.ContentType(), article.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("article_id", article.ID).Msg("Failed to count complaints, skipping article")
			continue
		}

		log, err := s.RunIntervention(ctx, article, signal, len(comments), failed, complaintCount)
		if err != nil {
			s.logger.Error().Err(err).Str("article_id", article.ID).Msg("Intervention evaluation failed")
			continue
		}

		evaluated++
		if log.Outcome == models.OutcomeRemoved {
			removed++
		}
	}

	s.logger.Info().
		Int("evaluated", evaluated).
		Int("removed", removed).
		Msg("Intervention scan completed")

	return evaluated, removed, nil
}

// removeContent revokes visibility when the variant supports it, at most
// once per content instance.
func (s *Service) removeContent(ctx context.Context, content models.Content, reason string) error {
	removable, ok := content.(models.Removable)
	if !ok {
		s.logger.Warn().
			Str("content_type", content.ContentType()).
			Str("content_id", content.ContentID()).
			Msg("Removed outcome on content without visibility support")
		return nil
	}

	if alreadyRemoved(content) {
		s.logger.Debug().
			Str("content_id", content.ContentID()).
			Msg("Content already removed, skipping visibility change")
		return nil
	}

	removable.SetVisibility(models.VisibilityRemoved, reason)
	if err := s.contents.SaveContent(ctx, content); err != nil {
		return fmt.Errorf("failed to save removed content: %w", err)
	}
	return nil
}

// alreadyRemoved reports whether a variant's visibility is already revoked
func alreadyRemoved(content models.Content) bool {
	switch c := content.(type) {
	case *models.Article:
		return c.Visibility == models.VisibilityRemoved
	case *models.Event:
		return c.Visibility == models.VisibilityRemoved
	default:
		return false
	}
}

// notifyRemoval sends a best-effort removal notification to the content
// owner. Skipped silently when no email resolves.
func (s *Service) notifyRemoval(ctx context.Context, content models.Content, reason string) {
	ownerID := content.OwnerID()
	if ownerID == "" {
		return
	}

	email, err := s.users.GetEmail(ctx, ownerID)
	if err != nil || email == "" {
		return
	}

	n := interfaces.Notification{
		To:       email,
		Template: "content_removed",
		Subject:  "Your content has been removed",
		Fields: map[string]string{
			"content_type": content.ContentType(),
			"content_id":   content.ContentID(),
			"reason":       reason,
		},
	}

	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn().
			Err(err).
			Str("content_id", content.ContentID()).
			Msg("Failed to send removal notification")
	}
}
