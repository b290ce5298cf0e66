package kv

import (
	"context"
	"strings"
	"sync"

	expirable "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/colaxr/SuifengTVDM/internal/config"
)

// LocalStore is the in-process fallback store: a TTL-bounded LRU map.
// It supports direct key listing and single-item reads only, no bulk
// fetch, and is the secondary source the statistics fallback and the
// best-effort local eviction use.
type LocalStore struct {
	lru *expirable.LRU[string, []byte]
	mu  sync.Mutex // protects DeleteByPrefix atomicity
}

// NewLocalStore creates a local store from configuration.
func NewLocalStore(cfg config.LocalConfig) *LocalStore {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &LocalStore{
		lru: expirable.NewLRU[string, []byte](maxEntries, nil, cfg.TTL),
	}
}

// Get fetches one value. A miss is ErrNotFound.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := s.lru.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return val, nil
}

// Set stores a value.
func (s *LocalStore) Set(key string, val []byte) {
	s.lru.Add(key, val)
}

// Keys returns all live keys under prefix.
func (s *LocalStore) Keys(prefix string) []string {
	var keys []string
	for _, key := range s.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

// DeleteByPrefix removes all keys under prefix.
func (s *LocalStore) DeleteByPrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.lru.Remove(key)
		}
	}
}

// Purge removes every entry.
func (s *LocalStore) Purge() {
	s.lru.Purge()
}

// Len returns the number of live entries.
func (s *LocalStore) Len() int {
	return s.lru.Len()
}
