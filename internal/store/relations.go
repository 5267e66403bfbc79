package store

import (
	"context"

	"storefront/internal/models"
)

// AddMembership inserts the (user, item, kind) triple if absent. Returns
// true when the row was added, false when it was already present. The
// insert-if-absent is a single ON CONFLICT statement, atomic per key.
func (s *Store) AddMembership(ctx context.Context, userID, itemID int64, kind models.RelationKind) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO relations (user_id, item_id, kind)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, item_id, kind) DO NOTHING`,
		userID, itemID, kind)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RemoveMembership deletes the triple if present. Returns true when a row
// was removed, false when it was already absent.
func (s *Store) RemoveMembership(ctx context.Context, userID, itemID int64, kind models.RelationKind) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM relations WHERE user_id = $1 AND item_id = $2 AND kind = $3",
		userID, itemID, kind)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListMemberships retrieves the item ids a user holds for one relation kind
func (s *Store) ListMemberships(ctx context.Context, userID int64, kind models.RelationKind) ([]int64, error) {
	var itemIDs []int64
	err := s.db.SelectContext(ctx, &itemIDs,
		"SELECT item_id FROM relations WHERE user_id = $1 AND kind = $2",
		userID, kind)
	return itemIDs, err
}
