package models

import (
	"database/sql"
	"time"
)

// ItemKind identifies the countable resource a catalog item carries.
type ItemKind string

const (
	ItemKindEventSeats ItemKind = "event-seats"
	ItemKindMerchUnits ItemKind = "merch-units"
)

// Valid reports whether the kind is one the ledger knows about.
func (k ItemKind) Valid() bool {
	return k == ItemKindEventSeats || k == ItemKindMerchUnits
}

// RelationKind identifies a user-to-item membership relation.
type RelationKind string

const (
	RelationLikedSong       RelationKind = "liked-song"
	RelationWishlistedMerch RelationKind = "wishlisted-merch"
	RelationReservedShow    RelationKind = "reserved-show"
)

func (k RelationKind) Valid() bool {
	switch k {
	case RelationLikedSong, RelationWishlistedMerch, RelationReservedShow:
		return true
	}
	return false
}

// InventoryItem is a catalog entry with a finite countable resource.
// Available only ever decreases through reservation; catalog management
// writes the initial value out of band.
type InventoryItem struct {
	ItemID    int64     `db:"item_id" json:"item_id"`
	Kind      ItemKind  `db:"kind" json:"kind"`
	Available int       `db:"available" json:"available"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Relation is the (user, item, kind) membership triple. Its existence in
// the relations table is the whole state.
type Relation struct {
	UserID    int64        `db:"user_id" json:"user_id"`
	ItemID    int64        `db:"item_id" json:"item_id"`
	Kind      RelationKind `db:"kind" json:"kind"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Rating is a per-(user, song) evaluation; at most one live record per
// identity, a resubmission replaces the whole record.
type Rating struct {
	UserID      int64          `db:"user_id" json:"user_id"`
	SongID      int64          `db:"song_id" json:"song_id"`
	Rating      int            `db:"rating" json:"rating"`
	Comment     sql.NullString `db:"comment" json:"comment,omitempty"`
	SubmittedAt time.Time      `db:"submitted_at" json:"submitted_at"`
}

// RatingAggregate is derived, never stored: mean and count over all
// rating records for a song. Count 0 reports Average 0.
type RatingAggregate struct {
	Average float64 `db:"average" json:"average"`
	Count   int     `db:"count" json:"count"`
}

// Purchase is a history row recorded asynchronously from purchase events.
type Purchase struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ItemID    int64     `db:"item_id" json:"item_id"`
	Kind      ItemKind  `db:"kind" json:"kind"`
	Quantity  int       `db:"quantity" json:"quantity"`
	EventID   string    `db:"event_id" json:"event_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
