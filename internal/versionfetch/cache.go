package versionfetch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loonghao/vx/internal/provider"
)

// DefaultTTL is how long a cached version list is trusted before a refetch,
// unless VX_REFRESH forces one.
const DefaultTTL = 1 * time.Hour

// Cache persists fetched version lists as JSON files under a directory
// (typically ${VX_HOME}/cache/versions/), keyed by runtime name.
type Cache struct {
	dir string
	ttl time.Duration
}

// NewCache creates a Cache rooted at dir, creating it if necessary.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create version cache dir: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

type cacheEntry struct {
	FetchedAt time.Time              `json:"fetchedAt"`
	Versions  []provider.VersionInfo `json:"versions"`
}

func (c *Cache) path(runtime string) string {
	safe := strings.ReplaceAll(runtime, string(filepath.Separator), "_")
	return filepath.Join(c.dir, safe+".json")
}

// Get returns a cached version list for runtime if present and not older
// than the cache's TTL.
func (c *Cache) Get(runtime string) ([]provider.VersionInfo, bool) {
	data, err := os.ReadFile(c.path(runtime))
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if time.Since(entry.FetchedAt) > c.ttl {
		return nil, false
	}

	return entry.Versions, true
}

// Put stores versions for runtime, stamped with the current time.
func (c *Cache) Put(runtime string, versions []provider.VersionInfo, now time.Time) error {
	entry := cacheEntry{FetchedAt: now, Versions: versions}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal version cache entry: %w", err)
	}
	return os.WriteFile(c.path(runtime), data, 0644)
}

// Invalidate removes a runtime's cached entry. Fetcher does not call it:
// under VX_REFRESH it skips Get and overwrites the entry with Put.
func (c *Cache) Invalidate(runtime string) error {
	err := os.Remove(c.path(runtime))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
