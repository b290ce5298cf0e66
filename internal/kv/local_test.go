package kv

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/colaxr/SuifengTVDM/internal/config"
)

func newTestLocal(t *testing.T) *LocalStore {
	t.Helper()
	return NewLocalStore(config.LocalConfig{MaxEntries: 100, TTL: time.Minute})
}

func TestLocalGetSet(t *testing.T) {
	s := newTestLocal(t)
	s.Set("cache:douban-movie-1", []byte("meta"))

	got, err := s.Get(context.Background(), "cache:douban-movie-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "meta" {
		t.Errorf("unexpected value: %q", got)
	}
}

func TestLocalMiss(t *testing.T) {
	s := newTestLocal(t)
	_, err := s.Get(context.Background(), "cache:nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalKeysFiltersByPrefix(t *testing.T) {
	s := newTestLocal(t)
	s.Set("cache:danmu-cache-1", []byte("a"))
	s.Set("cache:danmu-cache-2", []byte("b"))
	s.Set("session:user-1", []byte("c"))

	keys := s.Keys("cache:")
	sort.Strings(keys)
	want := []string{"cache:danmu-cache-1", "cache:danmu-cache-2"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d: expected %q, got %q", i, want[i], keys[i])
		}
	}
}

func TestLocalDeleteByPrefix(t *testing.T) {
	s := newTestLocal(t)
	s.Set("cache:netdisk-search-a", []byte("1"))
	s.Set("cache:netdisk-search-b", []byte("2"))
	s.Set("cache:douban-movie-1", []byte("3"))

	s.DeleteByPrefix("cache:netdisk-search")

	if got := s.Keys("cache:netdisk-search"); len(got) != 0 {
		t.Errorf("expected no netdisk keys, got %v", got)
	}
	if got := s.Keys("cache:douban-"); len(got) != 1 {
		t.Errorf("douban key should survive, got %v", got)
	}
}

func TestLocalPurge(t *testing.T) {
	s := newTestLocal(t)
	s.Set("cache:a", []byte("1"))
	s.Set("cache:b", []byte("2"))

	s.Purge()
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", s.Len())
	}
}

func TestLocalTTLExpiry(t *testing.T) {
	s := NewLocalStore(config.LocalConfig{MaxEntries: 10, TTL: 20 * time.Millisecond})
	s.Set("cache:short-lived", []byte("x"))

	time.Sleep(50 * time.Millisecond)

	if _, err := s.Get(context.Background(), "cache:short-lived"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expired entry to miss, got %v", err)
	}
}

func TestLocalResolvesAsBareGet(t *testing.T) {
	// When configuration names no primary backend the local store is
	// all there is; as a handle it only offers single reads, so the
	// adapter classifies it as the degraded convention.
	s := newTestLocal(t)
	p := Resolve(s)
	if p.Kind != KindBareGet {
		t.Fatalf("expected KindBareGet, got %v", p.Kind)
	}
	if p.CanEnumerate() {
		t.Error("degraded convention must not enumerate")
	}
}
