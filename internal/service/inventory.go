package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CounterCache is the fast-path serialization point for inventory counters.
// The reserve call must be a single atomic check-and-subtract.
type CounterCache interface {
	ReserveUnits(ctx context.Context, itemID int64, quantity int) (applied bool, value int, found bool, err error)
	GetAvailable(ctx context.Context, itemID int64) (int, bool, error)
	InitInventory(ctx context.Context, itemID int64, available int) error
}

// CounterStore is the durable side of the counters.
type CounterStore interface {
	ConditionalDecrement(ctx context.Context, itemID int64, amount int) (applied bool, remaining int, err error)
	GetAvailable(ctx context.Context, itemID int64) (int, error)
	ListInventory(ctx context.Context) ([]models.InventoryItem, error)
}

// ReserveResult reports the outcome of one reservation attempt. On success
// Remaining is the new counter value; on refusal it is the unchanged
// available count, returned verbatim so callers can report it.
type ReserveResult struct {
	Applied   bool
	Remaining int
}

// InventoryPool owns the inventory counters. No other component mutates
// them; readers go through GetAvailable, never the raw keys.
type InventoryPool struct {
	cache  CounterCache
	store  CounterStore
	logger *zap.Logger
}

// NewInventoryPool creates a new inventory pool
func NewInventoryPool(cache CounterCache, store CounterStore) *InventoryPool {
	return &InventoryPool{
		cache:  cache,
		store:  store,
		logger: util.GetLogger(),
	}
}

// Reserve decrements an item's counter by quantity, or refuses without any
// effect. The decision is made by one conditional-decrement call on the
// cache, falling back to the single-statement database decrement when the
// cache is unreachable or cold. There is never an application-level branch
// between a read and a write.
func (p *InventoryPool) Reserve(ctx context.Context, itemID int64, quantity int) (*ReserveResult, error) {
	ctx, span := util.StartSpan(ctx, "InventoryPool.Reserve")
	defer span.End()

	applied, value, found, err := p.cache.ReserveUnits(ctx, itemID, quantity)
	if err != nil {
		p.logger.Warn("cache reservation failed, falling back to database",
			zap.Int64("item_id", itemID),
			zap.Error(err))
		return p.reserveDurable(ctx, itemID, quantity)
	}

	if !found {
		// Counter not seeded in the cache; the durable store decides.
		return p.reserveDurable(ctx, itemID, quantity)
	}

	if !applied {
		return &ReserveResult{Applied: false, Remaining: value}, nil
	}

	go p.syncDecrement(itemID, quantity)

	return &ReserveResult{Applied: true, Remaining: value}, nil
}

// reserveDurable applies the conditional decrement on the database
func (p *InventoryPool) reserveDurable(ctx context.Context, itemID int64, quantity int) (*ReserveResult, error) {
	applied, remaining, err := p.store.ConditionalDecrement(ctx, itemID, quantity)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &ReserveResult{Applied: applied, Remaining: remaining}, nil
}

// syncDecrement replays a cache-applied reservation on the durable counter
func (p *InventoryPool) syncDecrement(itemID int64, quantity int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	applied, _, err := p.store.ConditionalDecrement(ctx, itemID, quantity)
	if err != nil {
		p.logger.Error("failed to sync reservation to database",
			zap.Int64("item_id", itemID),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return
	}
	if !applied {
		p.logger.Error("durable counter drifted below cache",
			zap.Int64("item_id", itemID),
			zap.Int("quantity", quantity))
	}
}

// GetAvailable reports an item's available count
func (p *InventoryPool) GetAvailable(ctx context.Context, itemID int64) (int, error) {
	available, found, err := p.cache.GetAvailable(ctx, itemID)
	if err == nil && found {
		return available, nil
	}
	if err != nil {
		p.logger.Warn("cache read failed, falling back to database",
			zap.Int64("item_id", itemID),
			zap.Error(err))
	}

	available, err = p.store.GetAvailable(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return available, nil
}

// SyncInventoryToCache seeds the cache counters from the database
func (p *InventoryPool) SyncInventoryToCache(ctx context.Context) error {
	p.logger.Info("Starting inventory sync to cache")

	items, err := p.store.ListInventory(ctx)
	if err != nil {
		return fmt.Errorf("failed to list inventory: %w", err)
	}

	for _, item := range items {
		if err := p.cache.InitInventory(ctx, item.ItemID, item.Available); err != nil {
			p.logger.Error("Failed to seed cache counter",
				zap.Int64("item_id", item.ItemID),
				zap.Error(err))
		}
	}

	p.logger.Info("Inventory sync completed", zap.Int("count", len(items)))
	return nil
}
