package cachestats

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/colaxr/SuifengTVDM/internal/kv"
	"github.com/colaxr/SuifengTVDM/internal/logging"
	"github.com/colaxr/SuifengTVDM/internal/metrics"
)

// Engine answers statistics and eviction requests against a primary
// storage handle with the in-process store as secondary source. It
// keeps no mutable state of its own, so concurrent calls are safe by
// construction; each collection owns its accumulator.
type Engine struct {
	handle  any
	local   *kv.LocalStore
	metrics *metrics.Collector
}

// New creates an engine. handle may be nil (no primary backend),
// local may be nil (no fallback source), metrics may be nil.
func New(handle any, local *kv.LocalStore, collector *metrics.Collector) *Engine {
	return &Engine{handle: handle, local: local, metrics: collector}
}

// Collect produces a statistics report from the primary backend, or
// nil when the backend cannot be enumerated or the scan fails. A nil
// report means "try another source", never "zero cache entries": an
// empty namespace yields a zeroed report instead.
func (e *Engine) Collect(ctx context.Context) *Report {
	started := time.Now()

	// The profile is derived fresh per call; backend identity may
	// change between process restarts.
	profile := kv.Resolve(e.handle)
	if !profile.CanEnumerate() {
		logging.Debug("Primary backend cannot enumerate keys",
			zap.String("convention", profile.Kind.String()))
		return nil
	}

	keys, err := profile.ListKeys(ctx, ScanPrefix)
	if err != nil {
		logging.Warn("Cache key enumeration failed", zap.Error(err))
		return nil
	}

	rep := newReport(SourcePrimary, "scanned "+profile.Kind.String()+" backend namespace")
	if len(keys) == 0 {
		e.recordScan(rep, started)
		return rep
	}

	vals, err := profile.FetchValues(ctx, keys)
	if err != nil {
		logging.Warn("Cache value fetch failed", zap.Error(err))
		return nil
	}

	for i, key := range keys {
		if vals[i] == nil {
			continue // listed but gone, or its fetch failed
		}
		rep.add(key, int64(len(vals[i])))
	}

	e.recordScan(rep, started)
	return rep
}

// CollectWithFallback never returns nil. When the primary backend is
// unavailable it reruns the same classification over the local store,
// which supports only direct listing and single reads; with no backend
// at all the result is a zeroed fallback-labeled report.
func (e *Engine) CollectWithFallback(ctx context.Context) *Report {
	if rep := e.Collect(ctx); rep != nil {
		return rep
	}

	started := time.Now()
	rep := newReport(SourceFallback, "primary backend unavailable, derived from local store")
	if e.local == nil {
		return rep
	}

	for _, key := range e.local.Keys(ScanPrefix) {
		val, err := e.local.Get(ctx, key)
		if err != nil {
			continue // expired between listing and read
		}
		rep.add(key, int64(len(val)))
	}

	e.recordScan(rep, started)
	return rep
}

// EvictCategory dispatches the backend's prefix delete primitive for
// the category and reports whether it executed. The primitive exposes
// no deletion count, so true says nothing about how many keys matched;
// deleting an empty category is still an executed eviction. For the
// netdisk category any matching local-store entries are removed as
// well, best-effort.
func (e *Engine) EvictCategory(ctx context.Context, cat Category) bool {
	prefix, ok := EvictionPrefix(cat)
	if !ok {
		return false
	}

	executed := true
	if err := kv.Resolve(e.handle).DeleteByPrefix(ctx, prefix); err != nil {
		logging.Warn("Cache eviction failed",
			zap.String("category", string(cat)),
			zap.Error(err))
		executed = false
	}

	if cat == CategoryNetdisk && e.local != nil {
		e.local.DeleteByPrefix(prefix)
	}

	if e.metrics != nil {
		e.metrics.RecordEviction(string(cat), executed)
	}
	return executed
}

// EvictAllExpired runs the backend's store-wide expired-entry sweep,
// with the same boolean contract as EvictCategory.
func (e *Engine) EvictAllExpired(ctx context.Context) bool {
	if err := kv.Resolve(e.handle).SweepExpired(ctx); err != nil {
		logging.Warn("Expired-entry sweep failed", zap.Error(err))
		if e.metrics != nil {
			e.metrics.RecordEviction("expired", false)
		}
		return false
	}
	if e.metrics != nil {
		e.metrics.RecordEviction("expired", true)
	}
	return true
}

func (e *Engine) recordScan(rep *Report, started time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordScan(rep.Source, time.Since(started))
	e.metrics.RecordKeys(string(CategoryDouban), rep.Douban.Count)
	e.metrics.RecordKeys(string(CategoryDanmu), rep.Danmu.Count)
	e.metrics.RecordKeys(string(CategoryNetdisk), rep.Netdisk.Count)
}
