package cachestats

import "strings"

// ScanPrefix marks every key this module considers a cache entry.
const ScanPrefix = "cache:"

// Key-naming prefixes, relative to ScanPrefix.
const (
	doubanPrefix  = "douban-"
	danmuPrefix   = "danmu-cache"
	netdiskPrefix = "netdisk-search"

	// legacyDanmuKey is the pre-split single-blob overlay key some
	// deployments still carry.
	legacyDanmuKey = "danmu"
)

// Classify maps a full cache key to its category. Rules are evaluated
// in order, first match wins; keys outside the scan prefix or matching
// no rule report ok=false. For douban keys the second dash-separated
// segment is returned as the sub-type label.
func Classify(key string) (cat Category, subtype string, ok bool) {
	suffix, found := strings.CutPrefix(key, ScanPrefix)
	if !found {
		return "", "", false
	}

	switch {
	case strings.HasPrefix(suffix, doubanPrefix):
		parts := strings.Split(suffix, "-")
		if len(parts) > 1 {
			subtype = parts[1]
		}
		return CategoryDouban, subtype, true
	case strings.HasPrefix(suffix, danmuPrefix), suffix == legacyDanmuKey:
		return CategoryDanmu, "", true
	case strings.HasPrefix(suffix, netdiskPrefix):
		return CategoryNetdisk, "", true
	}
	return "", "", false
}

// EvictionPrefix returns the full key prefix the delete primitive is
// dispatched with for a category.
func EvictionPrefix(cat Category) (string, bool) {
	switch cat {
	case CategoryDouban:
		return ScanPrefix + doubanPrefix, true
	case CategoryDanmu:
		// "cache:danmu" covers both danmu-cache-* keys and the legacy
		// literal key; nothing else in the namespace shares the stem.
		return ScanPrefix + legacyDanmuKey, true
	case CategoryNetdisk:
		return ScanPrefix + netdiskPrefix, true
	}
	return "", false
}
