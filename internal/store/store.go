package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// ConditionalDecrement subtracts amount from an item's available count only
// if the result stays non-negative. The check and the subtraction are one
// UPDATE statement; success or refusal is decided entirely by that statement,
// never by a separate read. On refusal the unchanged current value is read
// back for reporting only.
func (s *Store) ConditionalDecrement(ctx context.Context, itemID int64, amount int) (applied bool, remaining int, err error) {
	err = s.db.GetContext(ctx, &remaining,
		`UPDATE inventory
		 SET available = available - $2, updated_at = NOW()
		 WHERE item_id = $1 AND available >= $2
		 RETURNING available`,
		itemID, amount)
	if err == nil {
		return true, remaining, nil
	}
	if err != sql.ErrNoRows {
		return false, 0, fmt.Errorf("conditional decrement failed: %w", err)
	}

	var current int
	err = s.db.GetContext(ctx, &current,
		"SELECT available FROM inventory WHERE item_id = $1", itemID)
	if err == sql.ErrNoRows {
		return false, 0, ErrNotFound
	}
	if err != nil {
		return false, 0, err
	}
	return false, current, nil
}

// GetAvailable retrieves the available count for an item
func (s *Store) GetAvailable(ctx context.Context, itemID int64) (int, error) {
	var available int
	err := s.db.GetContext(ctx, &available,
		"SELECT available FROM inventory WHERE item_id = $1", itemID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return available, nil
}

// GetItem retrieves a full inventory row
func (s *Store) GetItem(ctx context.Context, itemID int64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM inventory WHERE item_id = $1", itemID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListInventory retrieves all inventory rows, used to seed the cache at startup
func (s *Store) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.db.SelectContext(ctx, &items, "SELECT * FROM inventory ORDER BY item_id")
	return items, err
}
