package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ratingKey struct {
	userID int64
	songID int64
}

type ratingRecord struct {
	rating      int
	comment     sql.NullString
	submittedAt time.Time
}

// mockRatingStore keeps at most one record per (user, song) and computes
// the aggregate the way the SQL AVG/COUNT query does.
type mockRatingStore struct {
	mu         sync.Mutex
	records    map[ratingKey]ratingRecord
	aggregates int
}

func newMockRatingStore() *mockRatingStore {
	return &mockRatingStore{records: make(map[ratingKey]ratingRecord)}
}

func (m *mockRatingStore) UpsertRating(ctx context.Context, userID, songID int64, rating int, comment sql.NullString, submittedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ratingKey{userID, songID}
	_, replaced := m.records[key]
	m.records[key] = ratingRecord{rating: rating, comment: comment, submittedAt: submittedAt}
	return replaced, nil
}

func (m *mockRatingStore) GetRatingAggregate(ctx context.Context, songID int64) (*models.RatingAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.aggregates++

	var sum, count int
	for key, rec := range m.records {
		if key.songID == songID {
			sum += rec.rating
			count++
		}
	}
	agg := &models.RatingAggregate{Count: count}
	if count > 0 {
		agg.Average = float64(sum) / float64(count)
	}
	return agg, nil
}

// mockAggregateCache is a mutex-guarded byte cache; TTLs are ignored.
type mockAggregateCache struct {
	mu      sync.Mutex
	entries map[int64][]byte
}

func newMockAggregateCache() *mockAggregateCache {
	return &mockAggregateCache{entries: make(map[int64][]byte)}
}

func (m *mockAggregateCache) GetAggregate(ctx context.Context, songID int64) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[songID]
	return data, ok, nil
}

func (m *mockAggregateCache) SetAggregate(ctx context.Context, songID int64, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[songID] = data
	return nil
}

func (m *mockAggregateCache) InvalidateAggregate(ctx context.Context, songID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, songID)
	return nil
}

func strptr(s string) *string { return &s }

func TestSubmit_BoundaryRejection(t *testing.T) {
	store := newMockRatingStore()
	svc := NewRatingService(store, nil, nil, 0)
	ctx := context.Background()

	for _, rating := range []int{0, 6, -3, 100} {
		_, err := svc.Submit(ctx, 1, 10, rating, nil)
		assert.ErrorIs(t, err, ErrInvalidRating, "rating=%d", rating)
	}

	// Rejection happens before any store call.
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.records)
}

func TestSubmit_UpsertReplaces(t *testing.T) {
	store := newMockRatingStore()
	svc := NewRatingService(store, nil, nil, 0)
	ctx := context.Background()

	replaced, err := svc.Submit(ctx, 1, 10, 3, nil)
	require.NoError(t, err)
	assert.False(t, replaced)

	replaced, err = svc.Submit(ctx, 1, 10, 5, strptr("great"))
	require.NoError(t, err)
	assert.True(t, replaced)

	store.mu.Lock()
	rec := store.records[ratingKey{1, 10}]
	assert.Len(t, store.records, 1)
	store.mu.Unlock()

	assert.Equal(t, 5, rec.rating)
	assert.Equal(t, sql.NullString{String: "great", Valid: true}, rec.comment)

	agg, err := svc.Aggregate(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 5.0, agg.Average)
	assert.Equal(t, 1, agg.Count)
}

func TestSubmit_UnsetCommentClearsPrior(t *testing.T) {
	store := newMockRatingStore()
	svc := NewRatingService(store, nil, nil, 0)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, 10, 4, strptr("loved it"))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, 1, 10, 2, nil)
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	rec := store.records[ratingKey{1, 10}]
	assert.Equal(t, 2, rec.rating)
	assert.False(t, rec.comment.Valid)
}

func TestAggregate_Empty(t *testing.T) {
	store := newMockRatingStore()
	svc := NewRatingService(store, nil, nil, 0)

	agg, err := svc.Aggregate(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, 0.0, agg.Average)
	assert.Equal(t, 0, agg.Count)
}

func TestAggregate_FullPrecision(t *testing.T) {
	store := newMockRatingStore()
	svc := NewRatingService(store, nil, nil, 0)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, 10, 4, nil)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, 2, 10, 5, nil)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, 3, 10, 5, nil)
	require.NoError(t, err)

	agg, err := svc.Aggregate(ctx, 10)
	require.NoError(t, err)
	assert.InDelta(t, 14.0/3.0, agg.Average, 1e-9)
	assert.Equal(t, 3, agg.Count)
}

func TestAggregate_CacheServesAndInvalidates(t *testing.T) {
	store := newMockRatingStore()
	cache := newMockAggregateCache()
	svc := NewRatingService(store, cache, nil, time.Minute)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, 10, 4, nil)
	require.NoError(t, err)

	agg, err := svc.Aggregate(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.Count)

	// Second read is served from the cache without touching the store.
	_, err = svc.Aggregate(ctx, 10)
	require.NoError(t, err)

	store.mu.Lock()
	assert.Equal(t, 1, store.aggregates)
	store.mu.Unlock()

	// A new submission invalidates before returning, so the next read
	// recomputes.
	_, err = svc.Submit(ctx, 2, 10, 2, nil)
	require.NoError(t, err)

	agg, err = svc.Aggregate(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.Count)
	assert.InDelta(t, 3.0, agg.Average, 1e-9)

	store.mu.Lock()
	assert.Equal(t, 2, store.aggregates)
	store.mu.Unlock()
}
