package common

import (
	"github.com/google/uuid"
)

// NewItemID generates a unique raw item ID with the "item_" prefix
func NewItemID() string {
	return "item_" + uuid.New().String()
}

// NewModerationLogID generates a unique moderation log ID with the "mod_" prefix
func NewModerationLogID() string {
	return "mod_" + uuid.New().String()
}

// NewComplaintID generates a unique complaint ID with the "cmp_" prefix
func NewComplaintID() string {
	return "cmp_" + uuid.New().String()
}

// NewInterventionLogID generates a unique intervention log ID with the "int_" prefix
func NewInterventionLogID() string {
	return "int_" + uuid.New().String()
}

// NewArticleID generates a unique article ID with the "art_" prefix
func NewArticleID() string {
	return "art_" + uuid.New().String()
}

// NewEventID generates a unique event ID with the "evt_" prefix
func NewEventID() string {
	return "evt_" + uuid.New().String()
}
