package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCounterCache is a mutex-guarded in-memory counter cache.
type mockCounterCache struct {
	mu       sync.Mutex
	counters map[int64]int
	failAll  bool
}

func newMockCounterCache() *mockCounterCache {
	return &mockCounterCache{counters: make(map[int64]int)}
}

func (m *mockCounterCache) ReserveUnits(ctx context.Context, itemID int64, quantity int) (bool, int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return false, 0, false, errors.New("cache down")
	}

	current, ok := m.counters[itemID]
	if !ok {
		return false, 0, false, nil
	}
	if current >= quantity {
		m.counters[itemID] = current - quantity
		return true, current - quantity, true, nil
	}
	return false, current, true, nil
}

func (m *mockCounterCache) GetAvailable(ctx context.Context, itemID int64) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return 0, false, errors.New("cache down")
	}
	current, ok := m.counters[itemID]
	return current, ok, nil
}

func (m *mockCounterCache) InitInventory(ctx context.Context, itemID int64, available int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[itemID] = available
	return nil
}

// mockCounterStore is a mutex-guarded in-memory durable counter.
type mockCounterStore struct {
	mu       sync.Mutex
	counters map[int64]int
}

func newMockCounterStore() *mockCounterStore {
	return &mockCounterStore{counters: make(map[int64]int)}
}

func (m *mockCounterStore) ConditionalDecrement(ctx context.Context, itemID int64, amount int) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.counters[itemID]
	if !ok {
		return false, 0, store.ErrNotFound
	}
	if current >= amount {
		m.counters[itemID] = current - amount
		return true, current - amount, nil
	}
	return false, current, nil
}

func (m *mockCounterStore) GetAvailable(ctx context.Context, itemID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.counters[itemID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return current, nil
}

func (m *mockCounterStore) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]models.InventoryItem, 0, len(m.counters))
	for id, available := range m.counters {
		items = append(items, models.InventoryItem{ItemID: id, Available: available})
	}
	return items, nil
}

func newTestPool(itemID int64, available int) (*InventoryPool, *mockCounterCache, *mockCounterStore) {
	cache := newMockCounterCache()
	durable := newMockCounterStore()
	cache.counters[itemID] = available
	durable.counters[itemID] = available
	return NewInventoryPool(cache, durable), cache, durable
}

func TestReserve_Success(t *testing.T) {
	pool, cache, _ := newTestPool(1, 10)

	result, err := pool.Reserve(context.Background(), 1, 3)
	require.NoError(t, err)

	assert.True(t, result.Applied)
	assert.Equal(t, 7, result.Remaining)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.Equal(t, 7, cache.counters[1])
}

func TestReserve_Insufficient(t *testing.T) {
	pool, cache, _ := newTestPool(1, 2)

	result, err := pool.Reserve(context.Background(), 1, 5)
	require.NoError(t, err)

	assert.False(t, result.Applied)
	assert.Equal(t, 2, result.Remaining)

	// Refusal has no effect on the counter.
	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.Equal(t, 2, cache.counters[1])
}

func TestReserve_UnknownItem(t *testing.T) {
	pool, _, _ := newTestPool(1, 10)

	_, err := pool.Reserve(context.Background(), 99, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestReserve_CacheErrorFallsBackToStore(t *testing.T) {
	pool, cache, durable := newTestPool(1, 10)
	cache.failAll = true

	result, err := pool.Reserve(context.Background(), 1, 4)
	require.NoError(t, err)

	assert.True(t, result.Applied)
	assert.Equal(t, 6, result.Remaining)

	durable.mu.Lock()
	defer durable.mu.Unlock()
	assert.Equal(t, 6, durable.counters[1])
}

func TestReserve_ColdCacheUsesStore(t *testing.T) {
	cache := newMockCounterCache()
	durable := newMockCounterStore()
	durable.counters[1] = 5
	pool := NewInventoryPool(cache, durable)

	result, err := pool.Reserve(context.Background(), 1, 2)
	require.NoError(t, err)

	assert.True(t, result.Applied)
	assert.Equal(t, 3, result.Remaining)
}

func TestReserve_ConcurrentExhaustion(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	pool, cache, _ := newTestPool(1, initialStock)

	var applied atomic.Int32
	var refused atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := pool.Reserve(context.Background(), 1, 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result.Applied {
				applied.Add(1)
			} else {
				refused.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(initialStock), applied.Load())
	assert.Equal(t, int32(totalRequests-initialStock), refused.Load())

	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.Equal(t, 0, cache.counters[1])
}

func TestGetAvailable(t *testing.T) {
	pool, _, _ := newTestPool(1, 7)

	available, err := pool.GetAvailable(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 7, available)

	_, err = pool.GetAvailable(context.Background(), 99)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestGetAvailable_CacheErrorFallsBackToStore(t *testing.T) {
	pool, cache, durable := newTestPool(1, 7)
	cache.failAll = true
	durable.counters[1] = 4

	available, err := pool.GetAvailable(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, available)
}

func TestSyncInventoryToCache(t *testing.T) {
	cache := newMockCounterCache()
	durable := newMockCounterStore()
	durable.counters[1] = 5
	durable.counters[2] = 9
	pool := NewInventoryPool(cache, durable)

	err := pool.SyncInventoryToCache(context.Background())
	require.NoError(t, err)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.Equal(t, 5, cache.counters[1])
	assert.Equal(t, 9, cache.counters[2])
}
