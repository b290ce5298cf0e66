package kv

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/colaxr/SuifengTVDM/internal/config"
)

func redisAvailable(t *testing.T) redis.UniversalClient {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:6379",
		DialTimeout: 100 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func newTestCluster(t *testing.T, prefix string) *ClusterStore {
	t.Helper()
	client := redisAvailable(t)
	store := NewClusterStoreWithClient(client, config.ClusterConfig{
		MaxRetries:     2,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		ScanBatchSize:  100,
	})
	t.Cleanup(func() {
		store.DeleteByPrefix(context.Background(), prefix)
		store.Close()
	})
	return store
}

func TestClusterScanAndGet(t *testing.T) {
	prefix := "sftv:test:scan:"
	store := newTestCluster(t, prefix)
	ctx := context.Background()

	client := store.Client().(*RetryingClient)
	client.Set(ctx, prefix+"a", []byte("1"), time.Minute)
	client.Set(ctx, prefix+"b", []byte("22"), time.Minute)

	keys, err := client.ScanKeys(ctx, prefix, 10)
	if err != nil {
		t.Fatalf("ScanKeys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != prefix+"a" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	val, err := client.Get(ctx, prefix+"a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(val) != "1" {
		t.Errorf("unexpected value: %q", val)
	}

	if _, err := client.Get(ctx, prefix+"missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClusterMGet(t *testing.T) {
	prefix := "sftv:test:mget:"
	store := newTestCluster(t, prefix)
	ctx := context.Background()

	client := store.Client().(*RetryingClient)
	client.Set(ctx, prefix+"a", []byte("one"), time.Minute)
	client.Set(ctx, prefix+"c", []byte("three"), time.Minute)

	vals, err := client.MGet(ctx, prefix+"a", prefix+"b", prefix+"c")
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if string(vals[0]) != "one" {
		t.Errorf("vals[0] = %q", vals[0])
	}
	if vals[1] != nil {
		t.Errorf("missing key should be nil, got %q", vals[1])
	}
	if string(vals[2]) != "three" {
		t.Errorf("vals[2] = %q", vals[2])
	}
}

func TestClusterDeleteByPrefix(t *testing.T) {
	prefix := "sftv:test:del:"
	store := newTestCluster(t, prefix)
	ctx := context.Background()

	client := store.Client().(*RetryingClient)
	client.Set(ctx, prefix+"netdisk-search-a", []byte("1"), time.Minute)
	client.Set(ctx, prefix+"netdisk-search-b", []byte("2"), time.Minute)
	client.Set(ctx, prefix+"douban-movie-1", []byte("3"), time.Minute)

	if err := store.DeleteByPrefix(ctx, prefix+"netdisk-search"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}

	keys, err := client.ScanKeys(ctx, prefix, 10)
	if err != nil {
		t.Fatalf("ScanKeys: %v", err)
	}
	if len(keys) != 1 || keys[0] != prefix+"douban-movie-1" {
		t.Errorf("expected only the douban key to survive, got %v", keys)
	}
}

func TestClusterDeleteByPrefixEmpty(t *testing.T) {
	// Deleting a prefix with zero matches is not an error.
	prefix := "sftv:test:delempty:"
	store := newTestCluster(t, prefix)

	if err := store.DeleteByPrefix(context.Background(), prefix); err != nil {
		t.Fatalf("DeleteByPrefix on empty prefix: %v", err)
	}
}

func TestClusterResolvesAsBatchConvention(t *testing.T) {
	prefix := "sftv:test:resolve:"
	store := newTestCluster(t, prefix)

	p := Resolve(store)
	if p.Kind != KindBatch {
		t.Fatalf("expected KindBatch, got %v", p.Kind)
	}
	if !p.CanEnumerate() {
		t.Error("cluster profile must enumerate")
	}
}

func TestClusterRetryGivesUp(t *testing.T) {
	store := &ClusterStore{
		maxRetries:     2,
		initialBackoff: time.Millisecond,
		maxBackoff:     5 * time.Millisecond,
	}

	attempts := 0
	err := store.Retry(context.Background(), func() error {
		attempts++
		return errors.New("still down")
	})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if attempts != 3 { // initial call + 2 retries
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestClusterRetryStopsOnCancel(t *testing.T) {
	store := &ClusterStore{
		maxRetries:     10,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := store.Retry(ctx, func() error {
		attempts++
		return errors.New("down")
	})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if attempts > 2 {
		t.Errorf("expected retries to stop promptly, got %d attempts", attempts)
	}
}
