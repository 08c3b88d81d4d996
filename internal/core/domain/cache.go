package domain

import "time"

const (
	// DefaultCacheTTL is how long a cached lookup result stays valid.
	DefaultCacheTTL = 5 * time.Minute
	// MinCacheTTL is the smallest accepted cache TTL.
	MinCacheTTL = time.Minute
)

// CachedVersion is the persisted lookup result for one dependency.
type CachedVersion struct {
	LatestVersion string    `json:"latest_version"`
	CachedAt      time.Time `json:"cached_at"`
}

// CacheEntry is the persisted freshness data for one project.
type CacheEntry struct {
	// Fingerprint is the lockfile hash at the time the entry was written.
	Fingerprint  uint64                   `json:"lock_file_hash"`
	Dependencies map[string]CachedVersion `json:"dependencies"`
}

// NewCacheEntry returns an empty entry bound to the given lockfile fingerprint.
func NewCacheEntry(fingerprint uint64) *CacheEntry {
	return &CacheEntry{
		Fingerprint:  fingerprint,
		Dependencies: make(map[string]CachedVersion),
	}
}

// Lookup returns the cached version for name if it has not expired at now.
func (e *CacheEntry) Lookup(name string, now time.Time, ttl time.Duration) (CachedVersion, bool) {
	if e == nil {
		return CachedVersion{}, false
	}
	v, ok := e.Dependencies[name]
	if !ok || v.LatestVersion == "" {
		return CachedVersion{}, false
	}
	if now.Sub(v.CachedAt) >= ttl {
		return CachedVersion{}, false
	}
	return v, true
}

// Covers reports whether every dependency has a valid cached version at now.
func (e *CacheEntry) Covers(deps []Dependency, now time.Time, ttl time.Duration) bool {
	for _, d := range deps {
		if _, ok := e.Lookup(d.Name, now, ttl); !ok {
			return false
		}
	}
	return e != nil
}
