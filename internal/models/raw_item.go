package models

import (
	"encoding/json"
	"time"
)

// ClassificationStatus represents the classification state of a raw item
type ClassificationStatus string

const (
	ClassificationPending    ClassificationStatus = "pending"
	ClassificationClassified ClassificationStatus = "classified"
	ClassificationFailed     ClassificationStatus = "classification_failed"
)

// ProcessingStatus represents the routing/generation state of a raw item
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingProcessed  ProcessingStatus = "processed"
	ProcessingFailed     ProcessingStatus = "processing_failed"
)

// Priority is the editorial priority assigned during classification.
// Lower rank is serviced first.
type Priority string

const (
	PriorityBreaking Priority = "breaking"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Tier is the generation depth chosen during classification
type Tier string

const (
	TierBrief    Tier = "brief"
	TierStandard Tier = "standard"
	TierFull     Tier = "full"
)

// RawItem represents one collected candidate piece of content.
//
// Lifecycle:
//   - Created by a collector with ClassificationStatus=pending
//   - Classification fields are written only by the classifier service
//   - Processing fields are written only by the generation service
//   - Never deleted, only superseded by new collections
//
// Invariant: ProcessingStatus may only leave pending once
// ClassificationStatus=classified. A processed item always carries a
// non-empty ArticleID.
type RawItem struct {
	ID          string            `json:"id" badgerhold:"key"`
	Source      string            `json:"source"`     // Collector identifier ("rss", "wire", "scrape", "civic")
	SourceURL   string            `json:"source_url"` // Origin URL when the collector has one
	RegionID    string            `json:"region_id"`  // Optional target region filter for batch drivers
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CollectedAt time.Time         `json:"collected_at" badgerhold:"index"`

	// Classification fields (classifier-owned)
	Category             string               `json:"category,omitempty"`
	Priority             Priority             `json:"priority,omitempty"`
	Tier                 Tier                 `json:"tier,omitempty"`
	HasEvent             bool                 `json:"has_event"`
	EventPayload         json.RawMessage      `json:"event_payload,omitempty"`
	ClassificationStatus ClassificationStatus `json:"classification_status" badgerhold:"index"`
	ClassificationError  string               `json:"classification_error,omitempty"`
	ClassifiedAt         *time.Time           `json:"classified_at,omitempty"`

	// Processing fields (generation-owned)
	ProcessingStatus    ProcessingStatus `json:"processing_status" badgerhold:"index"`
	ProcessingError     string           `json:"processing_error,omitempty"`
	ProcessingStartedAt *time.Time       `json:"processing_started_at,omitempty"`
	ProcessedAt         *time.Time       `json:"processed_at,omitempty"`
	ArticleID           string           `json:"article_id,omitempty"`
	EventID             string           `json:"event_id,omitempty"`
}

// PriorityRank maps a priority to its service order.
// breaking=1, high=2, normal=3, low=4, anything else last.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityBreaking:
		return 1
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 3
	case PriorityLow:
		return 4
	default:
		return 5
	}
}

// PriorityRank returns the service order for the item's assigned priority
func (i *RawItem) PriorityRank() int {
	return PriorityRank(i.Priority)
}

// CanProcess reports whether the item is eligible for routing/generation
func (i *RawItem) CanProcess() bool {
	return i.ClassificationStatus == ClassificationClassified &&
		i.ProcessingStatus == ProcessingPending
}

// ValidTier normalizes the item's tier, defaulting to standard
func (i *RawItem) ValidTier() Tier {
	switch i.Tier {
	case TierBrief, TierFull:
		return i.Tier
	default:
		return TierStandard
	}
}
