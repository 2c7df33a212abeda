// Package timestamp provides a process-lifetime cache of file modification
// times, normalized to integer milliseconds since an arbitrary epoch.
//
// The cache exists so that a single build invocation does not re-stat a
// path while its entry is cached (the table is a bounded LRU, so an evicted
// path is stat'd again): the planner and the dependency-graph store both need
// "is this newer than that" answers for the same files, repeatedly, and
// disk stats are comparatively expensive on large trees.
package timestamp

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds the memoization table so a long --all invocation
// across many packages with many generated headers doesn't grow it without
// limit for the lifetime of the process.
const defaultCacheSize = 65536

// Cache memoizes file modification times for the duration of one invocation.
// Paths are normalized via weakly-canonical resolution before lookup: the
// canonical form of the longest existing prefix is joined with whatever
// suffix components don't yet exist, so a path to an object file that hasn't
// been created yet still normalizes stably.
type Cache struct {
	mu    sync.Mutex
	table *lru.Cache[string, int64]
}

// New creates an empty Cache.
func New() *Cache {
	table, err := lru.New[string, int64](defaultCacheSize)
	if err != nil {
		// Only non-nil for a non-positive size, which defaultCacheSize never is.
		panic(err)
	}
	return &Cache{table: table}
}

// TimestampOf returns path's modification time in milliseconds since an
// arbitrary epoch, or 0 if the path does not exist (or cannot be stat'd).
// Results are memoized until the next Invalidate or SetToNow for path, or
// until the LRU table evicts the entry.
func (c *Cache) TimestampOf(path string) int64 {
	key := normalize(path)

	c.mu.Lock()
	if v, ok := c.table.Get(key); ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	ts := statMillis(key)

	c.mu.Lock()
	c.table.Add(key, ts)
	c.mu.Unlock()
	return ts
}

// Exists reports whether path has a non-zero cached (or freshly stat'd)
// timestamp.
func (c *Cache) Exists(path string) bool {
	return c.TimestampOf(path) != 0
}

// SetToNow marks path as having just been written, without touching the
// filesystem. The planner uses this to suppress double-linking within a
// single run: once a link command for an output has been scheduled, the
// output is treated as up to date for the remainder of the invocation even
// though the link command may not have run yet.
func (c *Cache) SetToNow(path string) {
	key := normalize(path)
	c.mu.Lock()
	c.table.Add(key, nowMillis())
	c.mu.Unlock()
}

// Invalidate drops any cached entry for path, so the next TimestampOf call
// re-stats the filesystem.
func (c *Cache) Invalidate(path string) {
	key := normalize(path)
	c.mu.Lock()
	c.table.Remove(key)
	c.mu.Unlock()
}

// normalize resolves path to a weakly-canonical form: the canonical form of
// the longest existing ancestor, joined with whatever suffix components
// don't exist yet. This keeps not-yet-created object/output files stable
// cache keys across the invocation.
func normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	var suffix []string
	cur := abs
	for {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(append([]string{resolved}, suffix...)...)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs
		}
		suffix = append([]string{filepath.Base(cur)}, suffix...)
		cur = parent
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func statMillis(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	ms := info.ModTime().UnixMilli()
	if ms <= 0 {
		return 1
	}
	return ms
}
