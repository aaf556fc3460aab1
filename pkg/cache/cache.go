// Package cache provides a TTL key-value cache for fetched page content,
// persisted as a single JSON file. Callers must serialize access per key;
// there is no cross-process locking.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultTTL is how long a cached page stays valid.
const DefaultTTL = 24 * time.Hour

// Store is the key-value contract the fetcher consumes.
type Store interface {
	Get(key string) (string, bool)
	Put(key, content string) error
	EvictExpired() int
}

// entry is one cached page.
type entry struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// FileCache is a whole-file JSON cache mapping URL to content with a TTL.
type FileCache struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	entries map[string]entry
	logger  *slog.Logger
	now     func() time.Time
}

// NewFileCache loads (or initializes) a cache at path. A missing or corrupt
// file starts the cache empty; that is logged, not fatal.
func NewFileCache(path string, ttl time.Duration, logger *slog.Logger) *FileCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &FileCache{
		path:    path,
		ttl:     ttl,
		entries: make(map[string]entry),
		logger:  logger,
		now:     time.Now,
	}
	c.load()
	return c
}

func (c *FileCache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cache: read failed, starting empty", "path", c.path, "err", err)
		}
		return
	}
	var entries map[string]entry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("cache: corrupt file, starting empty", "path", c.path, "err", err)
		return
	}
	c.entries = entries
}

// Get returns the cached content for key if present and not expired.
func (c *FileCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.expired(e) {
		return "", false
	}
	return e.Content, true
}

// Put stores content under key with the current timestamp and persists the
// whole cache file. Persistence failures are returned so the caller can log
// them; the in-memory entry is kept either way.
func (c *FileCache) Put(key, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{Content: content, Timestamp: c.now().Unix()}
	return c.flush()
}

// EvictExpired drops expired entries and returns how many were removed.
// The file is rewritten only when something was evicted.
func (c *FileCache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		if err := c.flush(); err != nil {
			c.logger.Warn("cache: flush after evict failed", "err", err)
		}
	}
	return removed
}

// Len returns the number of entries, expired or not.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *FileCache) expired(e entry) bool {
	return c.now().Unix()-e.Timestamp >= int64(c.ttl/time.Second)
}

// flush writes the whole cache file. Must hold mu.
func (c *FileCache) flush() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("cache: mkdir: %w", err)
	}
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", c.path, err)
	}
	return nil
}
