package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/praeco/internal/common"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/models"
)

// verdict is the internal 3-way outcome of one moderation call. It is
// collapsed to a bool at the public boundary: providerError falls open.
type verdict int

const (
	verdictPass verdict = iota
	verdictFail
	verdictProviderError
)

// Service is the AI moderation gate. Every call is independent; the only
// persistent state is the ModerationLog written per call.
//
// Fail-open: a provider failure or malformed response never blocks
// publication. The failure is recorded in the log (model="error") and the
// content passes.
type Service struct {
	logs       interfaces.ModerationLogStorage
	contents   interfaces.ContentStorage
	users      interfaces.UserStorage
	llmService interfaces.LLMService
	notifier   interfaces.NotificationService
	config     *common.ModerationConfig
	logger     arbor.ILogger
}

// moderationResult represents the LLM's verdict response
type moderationResult struct {
	Decision             string `json:"decision"`
	ViolationSection     string `json:"violation_section,omitempty"`
	ViolationExplanation string `json:"violation_explanation,omitempty"`
}

// NewService creates a new moderation gate
func NewService(
	logs interfaces.ModerationLogStorage,
	contents interfaces.ContentStorage,
	users interfaces.UserStorage,
	llmService interfaces.LLMService,
	notifier interfaces.NotificationService,
	config *common.ModerationConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		logs:       logs,
		contents:   contents,
		users:      users,
		llmService: llmService,
		notifier:   notifier,
		config:     config,
		logger:     logger,
	}
}

// Moderate runs one content instance through the AI gate.
// Returns true when the content is publishable/visible, false when
// rejected. The error return is reserved for storage failures; AI-layer
// failures fall open and never surface here.
//
// A ModerationLog is always written, except when moderation is globally
// disabled, which short-circuits to pass with no log.
func (s *Service) Moderate(ctx context.Context, content models.Content, trigger, userID, regionID string) (bool, error) {
	if !s.config.Enabled {
		s.logger.Debug().
			Str("content_type", content.ContentType()).
			Str("content_id", content.ContentID()).
			Msg("Moderation disabled, passing without log")
		return true, nil
	}

	snapshot := content.Snapshot()
	prompt := buildPrompt(content.ContentType(), snapshot)

	log := &models.ModerationLog{
		ID:          common.NewModerationLogID(),
		ContentType: content.ContentType(),
		ContentID:   content.ContentID(),
		UserID:      userID,
		RegionID:    regionID,
		Trigger:     trigger,
		Snapshot:    snapshot,
		CreatedAt:   time.Now(),
	}

	startTime := time.Now()
	result, v := s.callProvider(ctx, prompt)
	log.Duration = time.Since(startTime)

	switch v {
	case verdictProviderError:
		// Fail-open: availability over strict enforcement. The error is
		// recorded in the log so the audit trail shows the gate was down.
		log.Decision = models.DecisionPass
		log.Model = models.ModerationModelError
		log.ViolationExplanation = result.ViolationExplanation

		if err := s.logs.SaveLog(ctx, log); err != nil {
			return true, fmt.Errorf("failed to save moderation log: %w", err)
		}

		s.logger.Warn().
			Str("log_id", log.ID).
			Str("content_type", log.ContentType).
			Str("content_id", log.ContentID).
			Msg("Moderation provider failed, content passed fail-open")
		return true, nil

	case verdictFail:
		log.Decision = models.DecisionFail
		log.Model = s.llmService.ModelName()
		log.ViolationSection = result.ViolationSection
		log.ViolationExplanation = result.ViolationExplanation

		if err := s.logs.SaveLog(ctx, log); err != nil {
			return false, fmt.Errorf("failed to save moderation log: %w", err)
		}

		if err := s.rejectContent(ctx, content); err != nil {
			return false, err
		}
		s.notifyRejection(ctx, content, log)

		s.logger.Info().
			Str("log_id", log.ID).
			Str("content_type", log.ContentType).
			Str("content_id", log.ContentID).
			Str("violation_section", log.ViolationSection).
			Dur("duration", log.Duration).
			Msg("Content rejected by moderation")
		return false, nil

	default:
		log.Decision = models.DecisionPass
		log.Model = s.llmService.ModelName()

		if err := s.logs.SaveLog(ctx, log); err != nil {
			return true, fmt.Errorf("failed to save moderation log: %w", err)
		}

		s.logger.Debug().
			Str("log_id", log.ID).
			Str("content_type", log.ContentType).
			Str("content_id", log.ContentID).
			Dur("duration", log.Duration).
			Msg("Content passed moderation")
		return true, nil
	}
}

// callProvider performs the bounded AI call and parses the verdict.
// On any provider or parse failure the returned result carries the error
// message in ViolationExplanation for the audit log.
func (s *Service) callProvider(ctx context.Context, prompt string) (moderationResult, verdict) {
	timeout := common.MustDuration(s.config.Timeout)
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	response, err := s.llmService.Chat(callCtx, []interfaces.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Moderation AI call failed")
		return moderationResult{
			ViolationExplanation: fmt.Sprintf("moderation provider error: %s", err.Error()),
		}, verdictProviderError
	}

	var result moderationResult
	if err := json.Unmarshal([]byte(extractJSON(response)), &result); err != nil {
		s.logger.Error().Err(err).Str("response", response).Msg("Failed to parse moderation response")
		return moderationResult{
			ViolationExplanation: fmt.Sprintf("malformed moderation response: %s", err.Error()),
		}, verdictProviderError
	}

	if result.Decision == "" {
		s.logger.Error().Str("response", response).Msg("Moderation response missing decision field")
		return moderationResult{
			ViolationExplanation: "malformed moderation response: decision field missing",
		}, verdictProviderError
	}

	// Only an exact (case-insensitive) "fail" rejects; anything else passes
	if strings.EqualFold(strings.TrimSpace(result.Decision), string(models.DecisionFail)) {
		return result, verdictFail
	}
	return result, verdictPass
}

// rejectContent marks the variant rejected when it carries a moderation
// status field, and persists it.
func (s *Service) rejectContent(ctx context.Context, content models.Content) error {
	moderatable, ok := content.(models.ModeratableStatus)
	if !ok {
		return nil
	}

	moderatable.SetModerationStatus(models.ModerationRejected)
	if err := s.contents.SaveContent(ctx, content); err != nil {
		return fmt.Errorf("failed to save rejected content: %w", err)
	}
	return nil
}

// notifyRejection sends a best-effort rejection notification to the
// content owner. Skipped silently when no email resolves; a send failure
// is logged, never propagated.
func (s *Service) notifyRejection(ctx context.Context, content models.Content, log *models.ModerationLog) {
	ownerID := log.UserID
	if ownerID == "" {
		ownerID = content.OwnerID()
	}
	if ownerID == "" {
		return
	}

	email, err := s.users.GetEmail(ctx, ownerID)
	if err != nil || email == "" {
		return
	}

	n := interfaces.Notification{
		To:       email,
		Template: "moderation_rejected",
		Subject:  "Your content was not published",
		Fields: map[string]string{
			"content_type": content.ContentType(),
			"content_id":   content.ContentID(),
			"section":      log.ViolationSection,
			"explanation":  log.ViolationExplanation,
		},
	}

	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn().
			Err(err).
			Str("content_id", content.ContentID()).
			Msg("Failed to send rejection notification")
	}
}

// extractJSON extracts JSON from a response, handling markdown code blocks
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```") {
		lines := strings.Split(response, "\n")
		var jsonLines []string
		inCodeBlock := false

		for _, line := range lines {
			if strings.HasPrefix(line, "```") {
				if inCodeBlock {
					break
				}
				inCodeBlock = true
				continue
			}
			if inCodeBlock {
				jsonLines = append(jsonLines, line)
			}
		}

		if len(jsonLines) > 0 {
			return strings.Join(jsonLines, "\n")
		}
	}

	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx >= 0 && endIdx > startIdx {
		return response[startIdx : endIdx+1]
	}

	return response
}
