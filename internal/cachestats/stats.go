// Package cachestats reports aggregate statistics about cache entries
// in the backing key-value store and deletes entries by category.
package cachestats

import (
	"time"

	"github.com/google/uuid"
)

// Category is one of the fixed cache kinds distinguished by key-naming
// convention.
type Category string

const (
	// CategoryDouban is the metadata cache (douban-<subtype>-<id>).
	CategoryDouban Category = "douban"
	// CategoryDanmu is the timed-overlay cache (danmu-cache-<id>,
	// plus one legacy single-blob key).
	CategoryDanmu Category = "danmu"
	// CategoryNetdisk is the external-search cache
	// (netdisk-search-<query>).
	CategoryNetdisk Category = "netdisk"
)

// Categories lists all categories in their fixed order.
var Categories = []Category{CategoryDouban, CategoryDanmu, CategoryNetdisk}

// ParseCategory maps a string to a known category.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryDouban, CategoryDanmu, CategoryNetdisk:
		return Category(s), true
	}
	return "", false
}

// Data-source labels carried in reports.
const (
	SourcePrimary  = "primary-backend"
	SourceFallback = "fallback-local-store"
)

// CategoryStats accumulates per-category counts. Size is the sum of
// value byte lengths of counted keys; Types is populated only for the
// douban category, keyed by sub-type label.
type CategoryStats struct {
	Count int            `json:"count"`
	Size  int64          `json:"size"`
	Types map[string]int `json:"types,omitempty"`
}

// Aggregate holds one CategoryStats per category plus their
// element-wise Total. Keys outside every category are excluded from
// Total as well.
type Aggregate struct {
	Douban  CategoryStats `json:"douban"`
	Danmu   CategoryStats `json:"danmu"`
	Netdisk CategoryStats `json:"netdisk"`
	Total   CategoryStats `json:"total"`
}

// add classifies one (key, value) pair and folds it into the
// aggregate. Unclassifiable keys are ignored.
func (a *Aggregate) add(key string, size int64) {
	cat, subtype, ok := Classify(key)
	if !ok {
		return
	}

	var cs *CategoryStats
	switch cat {
	case CategoryDouban:
		cs = &a.Douban
		if cs.Types == nil {
			cs.Types = make(map[string]int)
		}
		cs.Types[subtype]++
	case CategoryDanmu:
		cs = &a.Danmu
	case CategoryNetdisk:
		cs = &a.Netdisk
	default:
		return
	}

	cs.Count++
	cs.Size += size
	a.Total.Count++
	a.Total.Size += size
}

// Report is the result of one statistics collection. It is built once
// per request and never mutated afterwards.
type Report struct {
	Aggregate

	Source      string    `json:"source"`
	Note        string    `json:"note"`
	GeneratedAt time.Time `json:"generated_at"`
	ID          string    `json:"id"`
}

func newReport(source, note string) *Report {
	return &Report{
		Source:      source,
		Note:        note,
		GeneratedAt: time.Now().UTC(),
		ID:          uuid.New().String(),
	}
}
