// Package kv defines the capability surface of the cache backing
// stores and the adapter that resolves an opaque storage handle into a
// usable access profile.
//
// The backends expose deliberately non-uniform client APIs: the
// clustered engine hides its operations behind a nested retrying
// client, the serverless HTTP service exposes them directly, and a
// degraded handle may only support single-key reads. Resolve probes a
// handle against these conventions in a fixed, documented order and
// returns the first that matches.
package kv

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("kv: key not found")

// ErrUnsupported is returned by Profile operations that the resolved
// convention cannot serve.
var ErrUnsupported = errors.New("kv: operation unsupported by backend")

// Capability interfaces probed by Resolve. Handles implement whichever
// subset their backend supports; none are mandatory.
type (
	// Getter fetches a single value. A missing key is ErrNotFound.
	Getter interface {
		Get(ctx context.Context, key string) ([]byte, error)
	}

	// MultiGetter fetches many values in one round trip. The result
	// is positional; a nil element marks a missing key.
	MultiGetter interface {
		MGet(ctx context.Context, keys ...string) ([][]byte, error)
	}

	// KeyLister enumerates all keys under a prefix.
	KeyLister interface {
		Keys(ctx context.Context, prefix string) ([]string, error)
	}

	// BatchKeyLister enumerates keys under a prefix in paged batches,
	// the convention of cursor-based cluster scans.
	BatchKeyLister interface {
		ScanKeys(ctx context.Context, prefix string, batchSize int64) ([]string, error)
	}

	// PrefixDeleter removes every key under a prefix. It does not
	// report how many keys matched.
	PrefixDeleter interface {
		DeleteByPrefix(ctx context.Context, prefix string) error
	}

	// ExpiredSweeper runs a store-wide sweep of expired entries.
	ExpiredSweeper interface {
		SweepExpired(ctx context.Context) error
	}

	// ClientProvider exposes a backend's nested client object, the
	// marker of the clustered retrying convention.
	ClientProvider interface {
		Client() any
	}

	// Retryer is a generic retry wrapper a handle may expose for its
	// listing and read operations.
	Retryer interface {
		Retry(ctx context.Context, op func() error) error
	}
)

// Kind identifies the calling convention a handle resolved to.
type Kind int

const (
	// KindUnsupported means no recognized convention was found.
	KindUnsupported Kind = iota
	// KindBatch is the clustered engine: nested client with batch key
	// listing, reads routed through the handle's retry wrapper.
	KindBatch
	// KindList is the serverless HTTP service: direct key listing and
	// (when present) multi-get on the handle itself.
	KindList
	// KindBareGet is the degraded convention: single-key reads only,
	// enumeration impossible.
	KindBareGet
)

func (k Kind) String() string {
	switch k {
	case KindBatch:
		return "batch"
	case KindList:
		return "list"
	case KindBareGet:
		return "bare-get"
	default:
		return "unsupported"
	}
}

// scanBatchSize is the page size handed to batch key listers.
const scanBatchSize = 100

// Profile is the resolved access strategy for one handle. It is built
// fresh on every top-level call and holds only borrowed function
// references, never state of its own.
type Profile struct {
	Kind Kind

	list  func(ctx context.Context, prefix string) ([]string, error)
	mget  func(ctx context.Context, keys ...string) ([][]byte, error)
	get   func(ctx context.Context, key string) ([]byte, error)
	del   func(ctx context.Context, prefix string) error
	sweep func(ctx context.Context) error
}

// CanEnumerate reports whether the profile supports full-namespace key
// listing. Statistics collection is impossible without it.
func (p Profile) CanEnumerate() bool {
	return p.list != nil
}

// ListKeys enumerates all keys under prefix.
func (p Profile) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if p.list == nil {
		return nil, ErrUnsupported
	}
	return p.list(ctx, prefix)
}

// FetchValues retrieves the values for keys, preferring the bulk path.
// Without a bulk path it falls back to sequential single-key reads,
// where an individual failure (including a plain miss) yields a nil
// element instead of aborting the whole fetch. The returned slice is
// positional with keys.
func (p Profile) FetchValues(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if p.mget != nil {
		vals, err := p.mget(ctx, keys...)
		if err != nil {
			return nil, err
		}
		if len(vals) != len(keys) {
			return nil, fmt.Errorf("kv: bulk fetch returned %d values for %d keys", len(vals), len(keys))
		}
		return vals, nil
	}
	if p.get == nil {
		return nil, ErrUnsupported
	}

	// One at a time: the degraded read path has no documented
	// concurrency limit to lean on.
	vals := make([][]byte, len(keys))
	for i, key := range keys {
		v, err := p.get(ctx, key)
		if err != nil {
			continue // missing marker, scan goes on
		}
		vals[i] = v
	}
	return vals, nil
}

// DeleteByPrefix invokes the backend's prefix delete primitive.
func (p Profile) DeleteByPrefix(ctx context.Context, prefix string) error {
	if p.del == nil {
		return ErrUnsupported
	}
	return p.del(ctx, prefix)
}

// SweepExpired invokes the backend's store-wide expired-entry sweep.
func (p Profile) SweepExpired(ctx context.Context) error {
	if p.sweep == nil {
		return ErrUnsupported
	}
	return p.sweep(ctx)
}

// probe inspects a handle for one calling convention.
type probe func(handle any) (Profile, bool)

// probes is the resolution order, a documented contract: the clustered
// nested-client convention wins over direct listing, which wins over
// bare gets. First match ends the search.
var probes = []probe{probeBatch, probeList, probeBareGet}

// Resolve inspects handle and returns the access profile for the first
// convention it satisfies, or an unsupported sentinel profile. It is
// read-only and never blocks.
func Resolve(handle any) Profile {
	if handle == nil {
		return Profile{Kind: KindUnsupported}
	}
	for _, pr := range probes {
		if p, ok := pr(handle); ok {
			return p
		}
	}
	return Profile{Kind: KindUnsupported}
}

// probeBatch matches handles that expose a nested client with batch
// key listing. Listing and single reads go through the handle's retry
// wrapper when it has one; bulk reads use the nested client's
// batch-get when present.
func probeBatch(handle any) (Profile, bool) {
	cp, ok := handle.(ClientProvider)
	if !ok {
		return Profile{}, false
	}
	inner := cp.Client()
	bl, ok := inner.(BatchKeyLister)
	if !ok {
		return Profile{}, false
	}

	retry := func(ctx context.Context, op func() error) error { return op() }
	if r, ok := handle.(Retryer); ok {
		retry = r.Retry
	}

	p := Profile{Kind: KindBatch}
	p.list = func(ctx context.Context, prefix string) ([]string, error) {
		var keys []string
		err := retry(ctx, func() error {
			var err error
			keys, err = bl.ScanKeys(ctx, prefix, scanBatchSize)
			return err
		})
		return keys, err
	}
	if mg, ok := inner.(MultiGetter); ok {
		p.mget = mg.MGet
	}
	if g, ok := inner.(Getter); ok {
		p.get = func(ctx context.Context, key string) ([]byte, error) {
			var val []byte
			err := retry(ctx, func() error {
				var err error
				val, err = g.Get(ctx, key)
				if errors.Is(err, ErrNotFound) {
					// A miss is a result, not a reason to retry.
					val = nil
					return nil
				}
				return err
			})
			if err != nil {
				return nil, err
			}
			if val == nil {
				return nil, ErrNotFound
			}
			return val, nil
		}
	}
	fillMutations(&p, handle)
	return p, true
}

// probeList matches handles that expose key listing directly.
func probeList(handle any) (Profile, bool) {
	kl, ok := handle.(KeyLister)
	if !ok {
		return Profile{}, false
	}

	p := Profile{Kind: KindList}
	p.list = kl.Keys
	if mg, ok := handle.(MultiGetter); ok {
		p.mget = mg.MGet
	}
	if g, ok := handle.(Getter); ok {
		p.get = g.Get
	}
	fillMutations(&p, handle)
	return p, true
}

// probeBareGet matches handles limited to single-key reads. The
// profile carries no listing function, so statistics collection
// reports itself unavailable rather than attempt a partial scan.
func probeBareGet(handle any) (Profile, bool) {
	g, ok := handle.(Getter)
	if !ok {
		return Profile{}, false
	}

	p := Profile{Kind: KindBareGet}
	p.get = g.Get
	fillMutations(&p, handle)
	return p, true
}

func fillMutations(p *Profile, handle any) {
	if d, ok := handle.(PrefixDeleter); ok {
		p.del = d.DeleteByPrefix
	}
	if s, ok := handle.(ExpiredSweeper); ok {
		p.sweep = s.SweepExpired
	}
}
