package models

import (
	"fmt"
	"strings"
	"time"
)

// Content type discriminators used in polymorphic references
// (moderation logs, complaints, intervention logs).
const (
	ContentTypeArticle = "article"
	ContentTypeComment = "comment"
	ContentTypeEvent   = "event"
	ContentTypeListing = "listing"
	ContentTypeAd      = "ad_creative"
)

// ModerationState values written to content that supports a moderation status
const (
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

// Visibility values for published content
const (
	VisibilityVisible = "visible"
	VisibilityRemoved = "removed"
)

// Content is the tagged union over every moderatable content type.
// Each variant exposes a uniform snapshot used for AI moderation calls;
// the snapshot is what gets sent to the provider and persisted for audit,
// never the raw object.
type Content interface {
	ContentType() string
	ContentID() string
	OwnerID() string
	Snapshot() string
}

// ModeratableStatus is implemented by variants that carry a moderation
// status field. Callers type-switch on this instead of probing for the
// field at runtime.
type ModeratableStatus interface {
	SetModerationStatus(status string)
}

// Removable is implemented by variants whose visibility can be revoked
// after publication.
type Removable interface {
	SetVisibility(visibility, reason string)
}

// Article is a published editorial article generated from a raw item
type Article struct {
	ID               string    `json:"id" badgerhold:"key"`
	AuthorID         string    `json:"author_id"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	Category         string    `json:"category"`
	Tier             Tier      `json:"tier"`
	RawItemID        string    `json:"raw_item_id" badgerhold:"index"`
	ModerationStatus string    `json:"moderation_status,omitempty"`
	Visibility       string    `json:"visibility" badgerhold:"index"`
	RemovalReason    string    `json:"removal_reason,omitempty"`
	PublishedAt      time.Time `json:"published_at"`
}

func (a *Article) ContentType() string { return ContentTypeArticle }
func (a *Article) ContentID() string   { return a.ID }
func (a *Article) OwnerID() string     { return a.AuthorID }

func (a *Article) Snapshot() string {
	return fmt.Sprintf("%s\n\n%s", a.Title, a.Body)
}

func (a *Article) SetModerationStatus(status string) { a.ModerationStatus = status }

func (a *Article) SetVisibility(visibility, reason string) {
	a.Visibility = visibility
	a.RemovalReason = reason
}

// Comment is a reader comment on published content
type Comment struct {
	ID               string    `json:"id" badgerhold:"key"`
	AuthorID         string    `json:"author_id"`
	ParentType       string    `json:"parent_type"` // Content type of the parent (usually article)
	ParentID         string    `json:"parent_id" badgerhold:"index"`
	Body             string    `json:"body"`
	ModerationStatus string    `json:"moderation_status,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (c *Comment) ContentType() string { return ContentTypeComment }
func (c *Comment) ContentID() string   { return c.ID }
func (c *Comment) OwnerID() string     { return c.AuthorID }
func (c *Comment) Snapshot() string    { return c.Body }

func (c *Comment) SetModerationStatus(status string) { c.ModerationStatus = status }

// Event is a calendar event extracted from a raw item during generation
type Event struct {
	ID            string    `json:"id" badgerhold:"key"`
	CreatorID     string    `json:"creator_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Venue         string    `json:"venue"`
	StartsAt      time.Time `json:"starts_at"`
	RawItemID     string    `json:"raw_item_id" badgerhold:"index"`
	Visibility    string    `json:"visibility"`
	RemovalReason string    `json:"removal_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (e *Event) ContentType() string { return ContentTypeEvent }
func (e *Event) ContentID() string   { return e.ID }
func (e *Event) OwnerID() string     { return e.CreatorID }

func (e *Event) Snapshot() string {
	return strings.TrimSpace(fmt.Sprintf("%s\n%s\nVenue: %s", e.Title, e.Description, e.Venue))
}

func (e *Event) SetVisibility(visibility, reason string) {
	e.Visibility = visibility
	e.RemovalReason = reason
}

// Listing is a directory/classified listing
type Listing struct {
	ID               string `json:"id" badgerhold:"key"`
	OwnerUserID      string `json:"owner_user_id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	ModerationStatus string `json:"moderation_status,omitempty"`
}

func (l *Listing) ContentType() string { return ContentTypeListing }
func (l *Listing) ContentID() string   { return l.ID }
func (l *Listing) OwnerID() string     { return l.OwnerUserID }

func (l *Listing) Snapshot() string {
	return fmt.Sprintf("%s\n%s", l.Name, l.Description)
}

func (l *Listing) SetModerationStatus(status string) { l.ModerationStatus = status }

// AdCreative is an advertiser-supplied creative
type AdCreative struct {
	ID               string `json:"id" badgerhold:"key"`
	AdvertiserID     string `json:"advertiser_id"`
	Headline         string `json:"headline"`
	Body             string `json:"body"`
	ModerationStatus string `json:"moderation_status,omitempty"`
}

func (a *AdCreative) ContentType() string { return ContentTypeAd }
func (a *AdCreative) ContentID() string   { return a.ID }
func (a *AdCreative) OwnerID() string     { return a.AdvertiserID }

func (a *AdCreative) Snapshot() string {
	return fmt.Sprintf("%s\n%s", a.Headline, a.Body)
}

func (a *AdCreative) SetModerationStatus(status string) { a.ModerationStatus = status }
