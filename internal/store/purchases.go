package store

import (
	"context"

	"storefront/internal/models"
)

// RecordPurchase inserts a purchase history row. The event id carries a
// unique constraint so replaying the same purchase event is a no-op.
func (s *Store) RecordPurchase(ctx context.Context, p *models.Purchase) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO purchases (user_id, item_id, kind, quantity, event_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (event_id) DO NOTHING`,
		p.UserID, p.ItemID, p.Kind, p.Quantity, p.EventID)
	return err
}

// HasPurchased reports whether a user has any recorded purchase of an item
func (s *Store) HasPurchased(ctx context.Context, userID, itemID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM purchases WHERE user_id = $1 AND item_id = $2)",
		userID, itemID)
	return exists, err
}

// GetPurchasesByUserID retrieves purchase history for a user
func (s *Store) GetPurchasesByUserID(ctx context.Context, userID int64) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.SelectContext(ctx, &purchases,
		"SELECT * FROM purchases WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return purchases, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
