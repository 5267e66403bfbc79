package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_units.lua
var reserveUnitsScript string

// claimTTL bounds how long a single-purchase claim can outlive its
// purchase row when history recording lags behind.
const claimTTL = 24 * time.Hour

type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
}

// NewClient creates a new Redis client with the reserve script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		reserveScript: redis.NewScript(reserveUnitsScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func inventoryKey(itemID int64) string {
	return fmt.Sprintf("inventory:%d", itemID)
}

// ReserveUnits atomically decrements an item's counter by quantity when the
// result stays non-negative. The compare and the decrement run as one Lua
// script, so no caller ever observes an intermediate state.
// found=false means the counter is not cached here at all.
func (c *Client) ReserveUnits(ctx context.Context, itemID int64, quantity int) (applied bool, value int, found bool, err error) {
	result, err := c.reserveScript.Run(ctx, c.rdb, []string{inventoryKey(itemID)}, quantity).Result()
	if err != nil {
		return false, 0, false, fmt.Errorf("reserve units script failed: %w", err)
	}

	vals, ok := result.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, false, fmt.Errorf("unexpected script result type")
	}

	status, ok1 := vals[0].(int64)
	count, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, false, fmt.Errorf("unexpected script result type")
	}

	switch status {
	case 1:
		return true, int(count), true, nil
	case 0:
		return false, int(count), true, nil
	default:
		return false, 0, false, nil
	}
}

// GetAvailable reads the cached counter. found=false when the key is absent.
func (c *Client) GetAvailable(ctx context.Context, itemID int64) (int, bool, error) {
	val, err := c.rdb.Get(ctx, inventoryKey(itemID)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// InitInventory seeds the counter for an item
func (c *Client) InitInventory(ctx context.Context, itemID int64, available int) error {
	return c.rdb.Set(ctx, inventoryKey(itemID), available, 0).Err()
}

// ClaimPurchase claims the (user, item) pair for single-purchase mode.
// Returns false when the pair is already claimed.
func (c *Client) ClaimPurchase(ctx context.Context, userID, itemID int64) (bool, error) {
	key := fmt.Sprintf("purchase-claim:%d:%d", userID, itemID)
	return c.rdb.SetNX(ctx, key, 1, claimTTL).Result()
}

// ReleaseClaim releases a claim after a failed reservation
func (c *Client) ReleaseClaim(ctx context.Context, userID, itemID int64) error {
	key := fmt.Sprintf("purchase-claim:%d:%d", userID, itemID)
	return c.rdb.Del(ctx, key).Err()
}

func aggregateKey(songID int64) string {
	return fmt.Sprintf("rating-agg:%d", songID)
}

// GetAggregate reads a cached rating aggregate payload for a song
func (c *Client) GetAggregate(ctx context.Context, songID int64) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, aggregateKey(songID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// SetAggregate caches a rating aggregate payload with a TTL
func (c *Client) SetAggregate(ctx context.Context, songID int64, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, aggregateKey(songID), data, ttl).Err()
}

// InvalidateAggregate drops the cached aggregate for a song
func (c *Client) InvalidateAggregate(ctx context.Context, songID int64) error {
	return c.rdb.Del(ctx, aggregateKey(songID)).Err()
}
