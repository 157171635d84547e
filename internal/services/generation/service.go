package generation

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

// Stats summarizes one processing batch
type Stats struct {
	Routed   int // Items claimed and attempted
	Articles int // Articles generated
	Events   int // Event records created
	Failed   int // Items marked processing_failed
}

// Service is the routing and generation engine. It consumes classified
// items in priority order and turns each into a published article (and
// optionally an event record) at the item's assigned tier.
//
// Partial-failure isolation: one item's failure is recorded on that item
// and never aborts the batch or rolls back prior successes.
type Service struct {
	items      interfaces.RawItemStorage
	contents   interfaces.ContentStorage
	queue      interfaces.QueueManager
	llmService interfaces.LLMService
	gate       interfaces.ModerationService
	config     *common.GenerationConfig
	throttle   *rate.Limiter
	logger     arbor.ILogger
}

// generatedArticle represents the LLM's generation response
type generatedArticle struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// eventPayload is the opaque event data written during classification
type eventPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Venue       string `json:"venue"`
	StartsAt    string `json:"starts_at"`
}

// analyzeStoryPayload is the follow-on job payload
type analyzeStoryPayload struct {
	ArticleID string `json:"article_id"`
	RawItemID string `json:"raw_item_id"`
}

// Prompt depth per tier. Brief is a reader notice, standard a normal news
// item, full a long-form treatment.
const (
	briefPromptTemplate = `You are a news desk editor. Write a brief notice (2-3 sentences) from the collected item below. Plain, factual, no speculation.

Category: %s
Source material:
%s

Return ONLY valid JSON (no markdown, no explanation):
{"title": "headline under 80 characters", "body": "the notice text"}`

	standardPromptTemplate = `You are a news desk editor. Write a standard news article (3-5 paragraphs) from the collected item below. Lead with the most newsworthy fact, attribute claims to the source material, no speculation.

Category: %s
Source material:
%s

Return ONLY valid JSON (no markdown, no explanation):
{"title": "headline under 80 characters", "body": "the article text with paragraphs separated by blank lines"}`

	fullPromptTemplate = `You are a news desk editor. Write a full-length feature article (6-10 paragraphs) from the collected item below. Open with a narrative lead, cover background and context, attribute every claim to the source material, close with what happens next. No speculation beyond the source material.

Category: %s
Source material:
%s

Return ONLY valid JSON (no markdown, no explanation):
{"title": "headline under 80 characters", "body": "the article text with paragraphs separated by blank lines"}`
)

// JobTypeAnalyzeStory is the follow-on job enqueued per generated article
const JobTypeAnalyzeStory = "analyze_story"

// NewService creates a new routing and generation engine.
// The moderation gate may be nil, in which case generated content is
// published without a gate check.
func NewService(
	items interfaces.RawItemStorage,
	contents interfaces.ContentStorage,
	queue interfaces.QueueManager,
	llmService interfaces.LLMService,
	gate interfaces.ModerationService,
	config *common.GenerationConfig,
	logger arbor.ILogger,
) *Service {
	throttle := common.MustDuration(config.Throttle)
	var limiter *rate.Limiter
	if throttle > 0 {
		limiter = rate.NewLimiter(rate.Every(throttle), 1)
	}

	return &Service{
		items:      items,
		contents:   contents,
		queue:      queue,
		llmService: llmService,
		gate:       gate,
		config:     config,
		throttle:   limiter,
		logger:     logger,
	}
}

// ProcessBatch pulls up to the configured batch size of classified,
// pending items in priority order and processes each independently.
//
// The returned error is reserved for systemic failures (store
// unreachable); per-item failures land in Stats.Failed.
func (s *Service) ProcessBatch(ctx context.Context) (*Stats, error) {
	items, err := s.items.ListReadyForProcessing(ctx, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list items ready for processing: %w", err)
	}

	stats := &Stats{}
	if len(items) == 0 {
		s.logger.Debug().Msg("No items ready for processing")
		return stats, nil
	}

	s.logger.Info().
		Int("count", len(items)).
		Msg("Starting processing batch")

	for _, item := range items {
		// Atomic pending -> processing claim; a concurrent runner that
		// already claimed this item makes us skip it, not fail it.
		claimed, err := s.items.ClaimForProcessing(ctx, item.ID)
		if err != nil {
			return stats, fmt.Errorf("failed to claim item %s: %w", item.ID, err)
		}
		if !claimed {
			s.logger.Debug().
				Str("item_id", item.ID).
				Msg("Item no longer claimable, skipping")
			continue
		}
		item.ProcessingStatus = models.ProcessingInProgress
		stats.Routed++

		if s.throttle != nil {
			if err := s.throttle.Wait(ctx); err != nil {
				return stats, fmt.Errorf("batch cancelled: %w", err)
			}
		}

		if err := s.processItem(ctx, item, stats); err != nil {
			// Isolated: record on the item, keep going
			stats.Failed++
			if saveErr := s.markFailed(ctx, item, err); saveErr != nil {
				return stats, saveErr
			}
			s.logger.Error().
				Err(err).
				Str("item_id", item.ID).
				Msg("Item processing failed")
		}
	}

	s.logger.Info().
		Int("routed", stats.Routed).
		Int("articles", stats.Articles).
		Int("events", stats.Events).
		Int("failed", stats.Failed).
		Msg("Processing batch completed")

	return stats, nil
}

// processItem generates content for one claimed item and marks it
// processed. Any returned error is recorded by the caller as
// processing_failed on this item only.
func (s *Service) processItem(ctx context.Context, item *models.RawItem, stats *Stats) error {
	tier := item.ValidTier()

	s.logger.Debug().
		Str("item_id", item.ID).
		Str("priority", string(item.Priority)).
		Str("tier", string(tier)).
		Msg("Processing item")

	article, err := s.generateArticle(ctx, item, tier)
	if err != nil {
		return err
	}
	if err := s.contents.SaveContent(ctx, article); err != nil {
		return fmt.Errorf("failed to save generated article: %w", err)
	}
	stats.Articles++

	// Gate generated content before it is considered published. A
	// rejection is not a processing failure: the item produced content
	// and the gate recorded its verdict.
	if s.gate != nil {
		allowed, err := s.gate.Moderate(ctx, article, "generation", article.AuthorID, item.RegionID)
		if err != nil {
			return err
		}
		if !allowed {
			s.logger.Info().
				Str("item_id", item.ID).
				Str("article_id", article.ID).
				Msg("Generated article rejected by moderation gate")
		}
	}

	var eventID string
	if item.HasEvent && len(item.EventPayload) > 0 {
		event, err := s.createEvent(ctx, item)
		if err != nil {
			return err
		}
		eventID = event.ID
		stats.Events++
	}

	now := time.Now()
	item.ProcessingStatus = models.ProcessingProcessed
	item.ProcessingError = ""
	item.ProcessedAt = &now
	item.ArticleID = article.ID
	item.EventID = eventID
	if err := s.items.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("failed to save processed item: %w", err)
	}

	s.enqueueAnalyzeStory(ctx, article.ID, item.ID)

	s.logger.Info().
		Str("item_id", item.ID).
		Str("article_id", article.ID).
		Str("event_id", eventID).
		Str("tier", string(tier)).
		Msg("Item processed successfully")

	return nil
}

// generateArticle runs the tiered LLM generation for one item
func (s *Service) generateArticle(ctx context.Context, item *models.RawItem, tier models.Tier) (*models.Article, error) {
	prompt := buildGenerationPrompt(item, tier)

	response, err := s.llmService.Chat(ctx, []interfaces.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("article generation failed: %w", err)
	}

	var generated generatedArticle
	if err := json.Unmarshal([]byte(extractJSON(response)), &generated); err != nil {
		return nil, fmt.Errorf("failed to parse generation response: %w", err)
	}
	if generated.Title == "" || generated.Body == "" {
		return nil, fmt.Errorf("generation response missing title or body")
	}

	return &models.Article{
		ID:          common.NewArticleID(),
		Title:       generated.Title,
		Body:        generated.Body,
		Category:    item.Category,
		Tier:        tier,
		RawItemID:   item.ID,
		Visibility:  models.VisibilityVisible,
		PublishedAt: time.Now(),
	}, nil
}

// createEvent materializes the event payload captured during classification
func (s *Service) createEvent(ctx context.Context, item *models.RawItem) (*models.Event, error) {
	var payload eventPayload
	if err := json.Unmarshal(item.EventPayload, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse event payload: %w", err)
	}
	if payload.Title == "" {
		return nil, fmt.Errorf("event payload missing title")
	}

	var startsAt time.Time
	if payload.StartsAt != "" {
		parsed, err := time.Parse(time.RFC3339, payload.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("invalid event starts_at %q: %w", payload.StartsAt, err)
		}
		startsAt = parsed
	}

	event := &models.Event{
		ID:          common.NewEventID(),
		Title:       payload.Title,
		Description: payload.Description,
		Venue:       payload.Venue,
		StartsAt:    startsAt,
		RawItemID:   item.ID,
		Visibility:  models.VisibilityVisible,
		CreatedAt:   time.Now(),
	}
	if err := s.contents.SaveContent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to save event: %w", err)
	}

	return event, nil
}

// enqueueAnalyzeStory fires the follow-on analysis job. Fire-and-forget:
// an enqueue failure is logged, never a processing failure.
func (s *Service) enqueueAnalyzeStory(ctx context.Context, articleID, rawItemID string) {
	payload, err := json.Marshal(analyzeStoryPayload{ArticleID: articleID, RawItemID: rawItemID})
	if err != nil {
		s.logger.Warn().Err(err).Str("article_id", articleID).Msg("Failed to marshal analyze_story payload")
		return
	}

	msg := models.QueueMessage{Type: JobTypeAnalyzeStory, Payload: payload}
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		s.logger.Warn().
			Err(err).
			Str("article_id", articleID).
			Msg("Failed to enqueue analyze_story job")
	}
}

// markFailed records a processing failure on the item
func (s *Service) markFailed(ctx context.Context, item *models.RawItem, cause error) error {
	item.ProcessingStatus = models.ProcessingFailed
	item.ProcessingError = cause.Error()

	if err := s.items.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("failed to save processing failure: %w", err)
	}
	return nil
}

// buildGenerationPrompt selects the prompt depth for a tier
func buildGenerationPrompt(item *models.RawItem, tier models.Tier) string {
	source := fmt.Sprintf("%s\n\n%s", item.Title, item.Body)

	switch tier {
	case models.TierBrief:
		return fmt.Sprintf(briefPromptTemplate, item.Category, source)
	case models.TierFull:
		return fmt.Sprintf(fullPromptTemplate, item.Category, source)
	default:
		return fmt.Sprintf(standardPromptTemplate, item.Category, source)
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
