package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryCache_SetThenGet(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	cache := repository.NewMemoryCacheWithClock(clock.Now)
	ctx := context.Background()

	if err := cache.Set(ctx, "cg:bitcoin:usd", []byte(`{"bitcoin":{}}`), 30*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, ok, err := cache.Get(ctx, "cg:bitcoin:usd")
	if err != nil || !ok {
		t.Fatalf("Expected hit, got ok=%v err=%v", ok, err)
	}
	if string(val) != `{"bitcoin":{}}` {
		t.Errorf("Unexpected value %s", val)
	}
}

func TestMemoryCache_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	cache := repository.NewMemoryCacheWithClock(clock.Now)
	ctx := context.Background()

	cache.Set(ctx, "k", []byte("v"), 30*time.Second)

	clock.Advance(29 * time.Second)
	if _, ok, _ := cache.Get(ctx, "k"); !ok {
		t.Error("Entry should still be valid before ttl elapses")
	}

	clock.Advance(time.Second)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("Entry should be absent once ttl has elapsed")
	}
	if cache.Len() != 0 {
		t.Errorf("Expired entry should be dropped on read, len=%d", cache.Len())
	}
}

func TestMemoryCache_OverwriteAndInvalidate(t *testing.T) {
	cache := repository.NewMemoryCache()
	ctx := context.Background()

	buf := []byte("first")
	cache.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'X'

	val, _, _ := cache.Get(ctx, "k")
	if string(val) != "first" {
		t.Errorf("Cache must not alias caller's slice, got %s", val)
	}

	cache.Set(ctx, "k", []byte("second"), time.Minute)
	val, _, _ = cache.Get(ctx, "k")
	if string(val) != "second" {
		t.Errorf("Expected overwrite, got %s", val)
	}

	cache.Invalidate(ctx, "k")
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("Invalidated key should be absent")
	}
}

func TestRedisCache_SetGetExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := repository.NewRedisCache(rdb)
	defer cache.Close()
	ctx := context.Background()

	if err := cache.Set(ctx, "av:quote:MSFT", []byte(`{"Global Quote":{}}`), 30*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, ok, err := cache.Get(ctx, "av:quote:MSFT")
	if err != nil || !ok || string(val) != `{"Global Quote":{}}` {
		t.Fatalf("Expected hit, got %s ok=%v err=%v", val, ok, err)
	}

	if !mr.Exists("cache:av:quote:MSFT") {
		t.Error("Expected prefixed key in Redis")
	}

	mr.FastForward(30 * time.Second)
	if _, ok, _ := cache.Get(ctx, "av:quote:MSFT"); ok {
		t.Error("Entry should expire after ttl")
	}
}

func TestRedisCache_MissAndInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := repository.NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("Expected clean miss, got ok=%v err=%v", ok, err)
	}

	cache.Set(ctx, "k", []byte("v"), time.Minute)
	cache.Invalidate(ctx, "k")
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("Invalidated key should be absent")
	}
}
