package kv

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/colaxr/SuifengTVDM/internal/config"
	"github.com/colaxr/SuifengTVDM/internal/logging"
)

// ClusterStore is the clustered key-value backend. Its operations live
// on a nested RetryingClient, and the store itself contributes a
// generic retry wrapper; together they form the batch convention the
// adapter probes for.
type ClusterStore struct {
	client *RetryingClient

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewClusterStore connects a clustered store from configuration.
func NewClusterStore(cfg config.ClusterConfig) *ClusterStore {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
	})
	return NewClusterStoreWithClient(rdb, cfg)
}

// NewClusterStoreWithClient wraps an existing client, which tests use
// to point at a single local instance.
func NewClusterStoreWithClient(rdb redis.UniversalClient, cfg config.ClusterConfig) *ClusterStore {
	batch := cfg.ScanBatchSize
	if batch <= 0 {
		batch = scanBatchSize
	}
	return &ClusterStore{
		client:         &RetryingClient{rdb: rdb, scanBatch: batch},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}
}

// Client exposes the nested client object.
func (s *ClusterStore) Client() any {
	return s.client
}

// Retry runs op with exponential backoff until it succeeds, the retry
// budget is spent, or ctx is cancelled.
func (s *ClusterStore) Retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	if s.initialBackoff > 0 {
		bo.InitialInterval = s.initialBackoff
	}
	if s.maxBackoff > 0 {
		bo.MaxInterval = s.maxBackoff
	}
	bo.MaxElapsedTime = 0

	return backoff.Retry(op,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.maxRetries)), ctx))
}

// DeleteByPrefix removes every key under prefix via paged SCAN+DEL.
func (s *ClusterStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	rdb := s.client.rdb
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+"*", s.client.scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// SweepExpired walks the whole keyspace touching each page with
// EXISTS, which forces the engine's lazy expiration to collect any
// entry past its TTL.
func (s *ClusterStore) SweepExpired(ctx context.Context) error {
	rdb := s.client.rdb
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, "*", s.client.scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Exists(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close releases the underlying connections.
func (s *ClusterStore) Close() error {
	return s.client.rdb.Close()
}

// RetryingClient is the nested client of a ClusterStore. It carries
// the read operations the adapter consumes: batch key listing,
// bulk get, and single get.
type RetryingClient struct {
	rdb       redis.UniversalClient
	scanBatch int64
}

// ScanKeys enumerates all keys under prefix in cursor pages of
// batchSize.
func (c *RetryingClient) ScanKeys(ctx context.Context, prefix string, batchSize int64) ([]string, error) {
	if batchSize <= 0 {
		batchSize = c.scanBatch
	}

	var keys []string
	var cursor uint64
	for {
		page, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", batchSize).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// MGet fetches many values in one round trip. Missing keys come back
// as nil elements.
func (c *RetryingClient) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	raw, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	vals := make([][]byte, len(raw))
	for i, v := range raw {
		switch t := v.(type) {
		case string:
			vals[i] = []byte(t)
		case []byte:
			vals[i] = t
		case nil:
			// missing
		default:
			logging.Warn("Unexpected MGET element type, treating as missing",
				zap.String("key", keys[i]))
		}
	}
	return vals, nil
}

// Get fetches one value. A miss is ErrNotFound.
func (c *RetryingClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value with a TTL. Zero ttl means no expiration.
func (c *RetryingClient) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}
