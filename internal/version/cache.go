package version

import (
	"encoding/json"
	"time"

	"github.com/tockapp/tock/internal/store"
)

// cacheKey is the store key for the last check result.
const cacheKey = "updateCheck"

// cacheTTL bounds how long a check result is reused.
const cacheTTL = 6 * time.Hour

// CacheEntry is a stored check result.
type CacheEntry struct {
	LatestVersion  string    `json:"latest_version"`
	CurrentVersion string    `json:"current_version"`
	CheckedAt      time.Time `json:"checked_at"`
	HasUpdate      bool      `json:"has_update"`
}

// IsCacheValid reports whether entry was recorded for currentVersion within
// the TTL.
func IsCacheValid(entry *CacheEntry, currentVersion string) bool {
	if entry == nil || entry.CurrentVersion != currentVersion {
		return false
	}
	return time.Since(entry.CheckedAt) < cacheTTL
}

// LoadCache reads the stored entry. A missing entry returns nil, nil.
func LoadCache(b store.Backend) (*CacheEntry, error) {
	raw, ok, err := b.Get(cacheKey)
	if err != nil || !ok {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveCache stores entry.
func SaveCache(b store.Backend, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return b.Put(cacheKey, data)
}
