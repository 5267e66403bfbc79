package models

import "time"

// Event types
const (
	EventTypePurchaseCompleted = "PURCHASE_COMPLETED"
	EventTypeRelationToggled   = "RELATION_TOGGLED"
	EventTypeRatingSubmitted   = "RATING_SUBMITTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PurchaseCompletedEvent published after a reservation is applied.
type PurchaseCompletedEvent struct {
	BaseEvent
	UserID    int64    `json:"user_id"`
	ItemID    int64    `json:"item_id"`
	Kind      ItemKind `json:"kind"`
	Quantity  int      `json:"quantity"`
	Remaining int      `json:"remaining"`
}

// RelationToggledEvent published after a membership toggle settles.
type RelationToggledEvent struct {
	BaseEvent
	UserID  int64        `json:"user_id"`
	ItemID  int64        `json:"item_id"`
	Kind    RelationKind `json:"kind"`
	Present bool         `json:"present"`
}

// RatingSubmittedEvent published after a rating upsert.
type RatingSubmittedEvent struct {
	BaseEvent
	UserID   int64 `json:"user_id"`
	SongID   int64 `json:"song_id"`
	Rating   int   `json:"rating"`
	Replaced bool  `json:"replaced"`
}
