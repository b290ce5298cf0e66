package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/colaxr/SuifengTVDM/internal/config"
)

// ServerlessStore is the HTTP key-value backend. It exposes listing
// and reads directly on itself (the list convention), with every call
// guarded by a circuit breaker so a misbehaving remote degrades to
// fast failures instead of piling up requests.
type ServerlessStore struct {
	base    string
	token   string
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewServerlessStore creates a client for the HTTP key-value service.
func NewServerlessStore(cfg config.ServerlessConfig) *ServerlessStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ServerlessStore{
		base:  cfg.URL,
		token: cfg.Token,
		httpc: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name: "serverless-kv",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				// A miss is a valid answer, not a backend failure.
				return err == nil || errors.Is(err, ErrNotFound)
			},
			Timeout: 10 * time.Second,
		}),
	}
}

// Keys enumerates all keys under prefix.
func (s *ServerlessStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	body, err := s.do(ctx, http.MethodGet, "/keys?prefix="+url.QueryEscape(prefix), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Keys []string `json:"keys"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode keys response: %w", err)
	}
	return resp.Keys, nil
}

// MGet fetches many values in one request. Missing keys come back as
// nil elements.
func (s *ServerlessStore) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	payload, err := json.Marshal(struct {
		Keys []string `json:"keys"`
	}{Keys: keys})
	if err != nil {
		return nil, err
	}

	body, err := s.do(ctx, http.MethodPost, "/mget", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Values []*string `json:"values"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode mget response: %w", err)
	}
	if len(resp.Values) != len(keys) {
		return nil, fmt.Errorf("mget returned %d values for %d keys", len(resp.Values), len(keys))
	}

	vals := make([][]byte, len(keys))
	for i, v := range resp.Values {
		if v != nil {
			vals[i] = []byte(*v)
		}
	}
	return vals, nil
}

// Get fetches one value. A miss is ErrNotFound.
func (s *ServerlessStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.do(ctx, http.MethodGet, "/get/"+url.PathEscape(key), nil)
}

// Set stores a value.
func (s *ServerlessStore) Set(ctx context.Context, key string, val []byte) error {
	_, err := s.do(ctx, http.MethodPost, "/set/"+url.PathEscape(key), val)
	return err
}

// DeleteByPrefix removes every key under prefix. The service does not
// report a deletion count.
func (s *ServerlessStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	_, err := s.do(ctx, http.MethodDelete, "/keys?prefix="+url.QueryEscape(prefix), nil)
	return err
}

// SweepExpired asks the service to collect expired entries store-wide.
func (s *ServerlessStore) SweepExpired(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodPost, "/sweep", nil)
	return err
}

func (s *ServerlessStore) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	return s.breaker.Execute(func() ([]byte, error) {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, s.base+path, reqBody)
		if err != nil {
			return nil, err
		}
		if s.token != "" {
			req.Header.Set("Authorization", "Bearer "+s.token)
		}

		resp, err := s.httpc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("serverless kv %s %s: status %d", method, path, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
}
