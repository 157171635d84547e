package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/praeco/internal/common"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/models"
	"github.com/ternarybob/praeco/internal/queue"
	"github.com/ternarybob/praeco/internal/services/classifier"
	"github.com/ternarybob/praeco/internal/services/generation"
	"github.com/ternarybob/praeco/internal/services/intervention"
)

// Job types routed through the queue
const (
	TypeClassifyBatch    = "classify_batch"
	TypeClassifyItem     = "classify_item"
	TypeProcessBatch     = "process_batch"
	TypeInterventionScan = "intervention_scan"
	TypeReclaimStale     = "reclaim_stale"
	TypeAnalyzeStory     = generation.JobTypeAnalyzeStory
)

// classifyItemPayload targets one item for classification
type classifyItemPayload struct {
	ItemID string `json:"item_id"`
}

// analyzeStoryPayload mirrors the payload enqueued by the generation engine
type analyzeStoryPayload struct {
	ArticleID string `json:"article_id"`
	RawItemID string `json:"raw_item_id"`
}

// Handlers binds the pipeline services to queue job types
type Handlers struct {
	classifier   *classifier.Service
	generator    *generation.Service
	intervention *intervention.Service
	items        interfaces.RawItemStorage
	keyValue     interfaces.KeyValueStorage
	config       *common.Config
	logger       arbor.ILogger
}

// NewHandlers creates the job handler set
func NewHandlers(
	classifierSvc *classifier.Service,
	generatorSvc *generation.Service,
	interventionSvc *intervention.Service,
	items interfaces.RawItemStorage,
	keyValue interfaces.KeyValueStorage,
	config *common.Config,
	logger arbor.ILogger,
) *Handlers {
	return &Handlers{
		classifier:   classifierSvc,
		generator:    generatorSvc,
		intervention: interventionSvc,
		items:        items,
		keyValue:     keyValue,
		config:       config,
		logger:       logger,
	}
}

// RegisterAll wires every job type into the worker pool with its retry
// policy. Batch drivers run single-attempt: their failures are already
// isolated per item. classify_item is idempotent until the final status
// write and retries with exponential backoff.
func (h *Handlers) RegisterAll(pool *queue.WorkerPool) {
	pool.RegisterHandler(TypeClassifyBatch, h.ClassifyBatch, queue.SingleAttempt)
	pool.RegisterHandler(TypeProcessBatch, h.ProcessBatch, queue.SingleAttempt)
	pool.RegisterHandler(TypeInterventionScan, h.InterventionScan, queue.SingleAttempt)
	pool.RegisterHandler(TypeReclaimStale, h.ReclaimStale, queue.SingleAttempt)
	pool.RegisterHandler(TypeAnalyzeStory, h.AnalyzeStory, queue.SingleAttempt)

	pool.RegisterHandler(TypeClassifyItem, h.ClassifyItem, queue.RetryPolicy{
		MaxAttempts: h.config.Classification.MaxRetries,
		Backoff:     common.MustDuration(h.config.Classification.RetryBackoff),
		Exponential: true,
	})
}

// ClassifyBatch runs one classification batch
func (h *Handlers) ClassifyBatch(ctx context.Context, msg *queue.Message) error {
	classified, failed, err := h.classifier.ClassifyBatch(ctx)
	if err != nil {
		return err
	}
	if classified > 0 || failed > 0 {
		h.logger.Info().
			Int("classified", classified).
			Int("failed", failed).
			Msg("classify_batch completed")
	}
	return nil
}

// ClassifyItem classifies one targeted item. Already-classified items are
// acknowledged without work so queue redeliveries stay idempotent.
func (h *Handlers) ClassifyItem(ctx context.Context, msg *queue.Message) error {
	var payload classifyItemPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid classify_item payload: %w", err)
	}
	if payload.ItemID == "" {
		return fmt.Errorf("classify_item payload missing item_id")
	}

	item, err := h.items.GetItem(ctx, payload.ItemID)
	if err != nil {
		return fmt.Errorf("failed to load item %s: %w", payload.ItemID, err)
	}

	if item.ClassificationStatus != models.ClassificationPending {
		h.logger.Debug().
			Str("item_id", item.ID).
			Str("status", string(item.ClassificationStatus)).
			Msg("Item no longer pending, acknowledging classify_item")
		return nil
	}

	return h.classifier.Classify(ctx, item)
}

// ProcessBatch runs one routing/generation batch
func (h *Handlers) ProcessBatch(ctx context.Context, msg *queue.Message) error {
	stats, err := h.generator.ProcessBatch(ctx)
	if err != nil {
		return err
	}
	if stats.Routed > 0 {
		h.logger.Info().
			Int("routed", stats.Routed).
			Int("articles", stats.Articles).
			Int("events", stats.Events).
			Int("failed", stats.Failed).
			Msg("process_batch completed")
	}
	return nil
}

// InterventionScan evaluates comment health for every visible article
func (h *Handlers) InterventionScan(ctx context.Context, msg *queue.Message) error {
	evaluated, removed, err := h.intervention.ScanVisibleArticles(ctx, "scheduled_scan")
	if err != nil {
		return err
	}
	if evaluated > 0 {
		h.logger.Info().
			Int("evaluated", evaluated).
			Int("removed", removed).
			Msg("intervention_scan completed")
	}
	return nil
}

// ReclaimStale returns items stuck in processing past the staleness
// window back to pending, so a later batch can pick them up.
func (h *Handlers) ReclaimStale(ctx context.Context, msg *queue.Message) error {
	staleAfter := common.MustDuration(h.config.Generation.StaleAfter)
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}

	reclaimed, err := h.items.ReclaimStale(ctx, staleAfter)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		h.logger.Warn().
			Int("reclaimed", reclaimed).
			Dur("stale_after", staleAfter).
			Msg("Reclaimed items stuck in processing")
	}
	return nil
}

// AnalyzeStory records the follow-on analysis request for a generated
// article. The analysis itself runs in a downstream editorial tool; this
// handler only marks the article as queued for it.
func (h *Handlers) AnalyzeStory(ctx context.Context, msg *queue.Message) error {
	var payload analyzeStoryPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid analyze_story payload: %w", err)
	}
	if payload.ArticleID == "" {
		return fmt.Errorf("analyze_story payload missing article_id")
	}

	key := "story_analysis:" + payload.ArticleID
	if err := h.keyValue.Set(ctx, key, time.Now().Format(time.RFC3339), "Story potential analysis requested"); err != nil {
		return fmt.Errorf("failed to record analysis request: %w", err)
	}

	h.logger.Info().
		Str("article_id", payload.ArticleID).
		Str("raw_item_id", payload.RawItemID).
		Msg("Story potential analysis requested")
	return nil
}
