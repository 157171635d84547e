package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/praeco/internal/common"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/models"
)

// Service performs LLM-based classification of raw items: category,
// editorial priority, generation tier, and event extraction.
type Service struct {
	items      interfaces.RawItemStorage
	llmService interfaces.LLMService
	config     *common.ClassificationConfig
	throttle   *rate.Limiter
	logger     arbor.ILogger
}

// classificationResult represents the LLM's classification response
type classificationResult struct {
	Category     string          `json:"category"`
	Priority     string          `json:"priority"`
	Tier         string          `json:"tier"`
	HasEvent     bool            `json:"has_event"`
	EventPayload json.RawMessage `json:"event_payload,omitempty"`
}

const classifyPromptTemplate = `You are the triage desk of a regional news platform. Classify the collected item below for editorial processing.

Source: %s
Title: %s

Content (truncated):
%s

Classify this item and return ONLY valid JSON (no markdown, no explanation):
{
  "category": "short topical category, e.g. civic, business, sports, crime, weather",
  "priority": "breaking|high|normal|low",
  "tier": "brief|standard|full",
  "has_event": true or false,
  "event_payload": {"title": "...", "description": "...", "venue": "...", "starts_at": "RFC3339 timestamp"}
}

Guidelines:
- priority: how urgently readers need this. "breaking" is reserved for safety and major civic disruption.
- tier: generation depth. "brief" for routine notices, "full" for substantive stories worth long-form treatment.
- has_event: true only when the item describes a concrete upcoming public event with a time and place.
- event_payload: include only when has_event is true; omit otherwise.`

const maxContentLength = 6000

// NewService creates a new classification service
func NewService(
	items interfaces.RawItemStorage,
	llmService interfaces.LLMService,
	config *common.ClassificationConfig,
	logger arbor.ILogger,
) *Service {
	throttle := common.MustDuration(config.Throttle)
	var limiter *rate.Limiter
	if throttle > 0 {
		limiter = rate.NewLimiter(rate.Every(throttle), 1)
	}

	return &Service{
		items:      items,
		llmService: llmService,
		config:     config,
		throttle:   limiter,
		logger:     logger,
	}
}

// Classify classifies a single pending item.
//
// LLM and parse failures never escape: they are recorded on the item as
// classification_failed with the error message, and the item is saved.
// The returned error is reserved for storage failures, which the caller
// treats as systemic.
func (s *Service) Classify(ctx context.Context, item *models.RawItem) error {
	if item.ClassificationStatus != models.ClassificationPending {
		return fmt.Errorf("item %s is not pending classification (status=%s)", item.ID, item.ClassificationStatus)
	}

	s.logger.Debug().
		Str("item_id", item.ID).
		Str("source", item.Source).
		Msg("Starting item classification")

	prompt := s.buildPrompt(item)

	response, err := s.callLLMWithRetry(ctx, prompt)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("item_id", item.ID).
			Msg("LLM classification failed after retries")
		return s.markFailed(ctx, item, err)
	}

	result, err := parseClassification(response)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("item_id", item.ID).
			Str("response", response).
			Msg("Failed to parse classification response")
		return s.markFailed(ctx, item, err)
	}

	now := time.Now()
	item.Category = result.Category
	item.Priority = models.Priority(strings.ToLower(result.Priority))
	item.Tier = models.Tier(strings.ToLower(result.Tier))
	item.HasEvent = result.HasEvent
	if result.HasEvent {
		item.EventPayload = result.EventPayload
	}
	item.ClassificationStatus = models.ClassificationClassified
	item.ClassificationError = ""
	item.ClassifiedAt = &now

	if err := s.items.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("failed to save classified item: %w", err)
	}

	s.logger.Info().
		Str("item_id", item.ID).
		Str("category", item.Category).
		Str("priority", string(item.Priority)).
		Str("tier", string(item.Tier)).
		Bool("has_event", item.HasEvent).
		Msg("Item classified successfully")

	return nil
}

// ClassifyBatch pulls up to the configured batch size of pending items
// and classifies them sequentially. A single item's failure is recorded
// on the item and never aborts the batch.
// Returns (classified, failed) counts.
func (s *Service) ClassifyBatch(ctx context.Context) (int, int, error) {
	items, err := s.items.ListPendingClassification(ctx, s.config.BatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list pending items: %w", err)
	}

	if len(items) == 0 {
		s.logger.Debug().Msg("No items pending classification")
		return 0, 0, nil
	}

	s.logger.Info().
		Int("count", len(items)).
		Msg("Starting classification batch")

	classified := 0
	failed := 0
	for _, item := range items {
		if s.throttle != nil {
			if err := s.throttle.Wait(ctx); err != nil {
				return classified, failed, fmt.Errorf("batch cancelled: %w", err)
			}
		}

		if err := s.Classify(ctx, item); err != nil {
			return classified, failed, err
		}

		if item.ClassificationStatus == models.ClassificationClassified {
			classified++
		} else {
			failed++
		}
	}

	s.logger.Info().
		Int("classified", classified).
		Int("failed", failed).
		Msg("Classification batch completed")

	return classified, failed, nil
}

// markFailed records a classification failure on the item
func (s *Service) markFailed(ctx context.Context, item *models.RawItem, cause error) error {
	item.ClassificationStatus = models.ClassificationFailed
	item.ClassificationError = cause.Error()

	if err := s.items.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("failed to save classification failure: %w", err)
	}
	return nil
}

// buildPrompt constructs the classification prompt from the item
func (s *Service) buildPrompt(item *models.RawItem) string {
	return fmt.Sprintf(classifyPromptTemplate,
		item.Source,
		item.Title,
		truncateContent(item.Body, maxContentLength),
	)
}

// truncateContent truncates content to maxLen characters
func truncateContent(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "\n... [truncated]"
}

// callLLMWithRetry calls the LLM service with exponential backoff retry logic
func (s *Service) callLLMWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := s.config.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	initialBackoff := common.MustDuration(s.config.RetryBackoff)
	if initialBackoff <= 0 {
		initialBackoff = time.Second
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			s.logger.Debug().
				Int("attempt", i+1).
				Int("max_retries", maxRetries).
				Msg("Retrying LLM call")
		}

		response, err := s.llmService.Chat(ctx, []interfaces.Message{
			{Role: "user", Content: prompt},
		})
		if err == nil {
			return response, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		if i < maxRetries-1 {
			backoffDuration := initialBackoff << uint(i)
			s.logger.Warn().
				Err(err).
				Dur("backoff", backoffDuration).
				Int("attempt", i+1).
				Msg("LLM call failed, backing off")

			select {
			case <-time.After(backoffDuration):
			case <-ctx.Done():
				return "", fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			}
		}
	}

	return "", fmt.Errorf("LLM call failed after %d attempts: %w", maxRetries, lastErr)
}

// parseClassification parses the LLM response into a classificationResult
func parseClassification(response string) (*classificationResult, error) {
	jsonStr := extractJSON(response)

	var result classificationResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	if result.Category == "" {
		return nil, fmt.Errorf("category is required but was empty")
	}
	if result.Priority == "" {
		return nil, fmt.Errorf("priority is required but was empty")
	}
	if result.HasEvent && len(result.EventPayload) == 0 {
		return nil, fmt.Errorf("has_event is true but event_payload is missing")
	}

	return &result, nil
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

	// No code fences: take the outermost JSON object if one is present
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx >= 0 && endIdx > startIdx {
		return response[startIdx : endIdx+1]
	}

	return response
}
