package redisclient

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func getClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client, err := NewClient(addr, "", 0)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestReserveUnits_Success(t *testing.T) {
	client := getClient(t)
	ctx := context.Background()

	client.rdb.Del(ctx, inventoryKey(1001))
	if err := client.InitInventory(ctx, 1001, 10); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	applied, value, found, err := client.ReserveUnits(ctx, 1001, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || !applied {
		t.Errorf("expected applied reservation, got applied=%v found=%v", applied, found)
	}
	if value != 7 {
		t.Errorf("expected remaining 7, got %d", value)
	}
}

func TestReserveUnits_Insufficient(t *testing.T) {
	client := getClient(t)
	ctx := context.Background()

	client.rdb.Del(ctx, inventoryKey(1002))
	if err := client.InitInventory(ctx, 1002, 5); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	applied, value, found, err := client.ReserveUnits(ctx, 1002, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || applied {
		t.Errorf("expected refusal, got applied=%v found=%v", applied, found)
	}
	if value != 5 {
		t.Errorf("expected unchanged available 5, got %d", value)
	}
}

func TestReserveUnits_MissingKey(t *testing.T) {
	client := getClient(t)
	ctx := context.Background()

	client.rdb.Del(ctx, inventoryKey(1003))

	_, _, found, err := client.ReserveUnits(ctx, 1003, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected found=false for missing key")
	}
}

func TestReserveUnits_Concurrent(t *testing.T) {
	client := getClient(t)
	ctx := context.Background()

	initialStock := 20
	totalRequests := 50

	client.rdb.Del(ctx, inventoryKey(1004))
	if err := client.InitInventory(ctx, 1004, initialStock); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, _, _, err := client.ReserveUnits(ctx, 1004, 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if applied {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d applied reservations, got %d", initialStock, successCount.Load())
	}

	available, found, err := client.GetAvailable(ctx, 1004)
	if err != nil || !found {
		t.Fatalf("failed to read counter: found=%v err=%v", found, err)
	}
	if available != 0 {
		t.Errorf("expected 0 remaining, got %d", available)
	}
}

func TestClaimPurchase(t *testing.T) {
	client := getClient(t)
	ctx := context.Background()

	client.rdb.Del(ctx, "purchase-claim:7:1005")

	ok, err := client.ClaimPurchase(ctx, 7, 1005)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first claim to succeed")
	}

	ok, err = client.ClaimPurchase(ctx, 7, 1005)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second claim to fail")
	}

	if err := client.ReleaseClaim(ctx, 7, 1005); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	ok, err = client.ClaimPurchase(ctx, 7, 1005)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected claim to succeed after release")
	}
}

func TestAggregateCache(t *testing.T) {
	client := getClient(t)
	ctx := context.Background()

	client.rdb.Del(ctx, aggregateKey(2001))

	_, found, err := client.GetAggregate(ctx, 2001)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected miss on empty cache")
	}

	payload := []byte(`{"average":4.5,"count":2}`)
	if err := client.SetAggregate(ctx, 2001, payload, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	data, found, err := client.GetAggregate(ctx, 2001)
	if err != nil || !found {
		t.Fatalf("expected hit: found=%v err=%v", found, err)
	}
	if string(data) != string(payload) {
		t.Errorf("unexpected payload: %s", data)
	}

	if err := client.InvalidateAggregate(ctx, 2001); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	_, found, err = client.GetAggregate(ctx, 2001)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected miss after invalidation")
	}
}
