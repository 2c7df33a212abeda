// Package repository implements the persistent repository-key ↔ integer-ID
// map spec.md §3 and §4.10 describe. It has the same load/mutate/flush
// shape as internal/packageid, keyed by "<type>#<url>" strings and backed by
// a JSON file instead of the two-line text format.
package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rebs-build/rebs/internal/scratch"
)

// fileFormat mirrors spec.md §3's JSON shape:
// { "repositoriesToIds": {key: id, …}, "nextRepositoryId": N }
type fileFormat struct {
	RepositoriesToIDs map[string]int `json:"repositoriesToIds"`
	NextRepositoryID  int            `json:"nextRepositoryId"`
}

// Registry is the in-memory, lazily-persisted repository_key → ID map.
type Registry struct {
	path string

	mu     sync.Mutex
	byKey  map[string]int
	nextID int
	dirty  bool
}

// Key formats a repository's persistent key from its type and URL.
func Key(repoType, url string) string {
	return fmt.Sprintf("%s#%s", repoType, url)
}

// Load reads the JSON-encoded map at path. A missing file or a parse
// failure is tolerated: Load returns an empty registry, matching the
// "loading is tolerant" requirement in spec.md §4.10.
func Load(path string) *Registry {
	r := &Registry{path: path, byKey: make(map[string]int)}

	data, err := os.ReadFile(path)
	if err != nil {
		return r
	}
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return r
	}
	if ff.RepositoriesToIDs != nil {
		r.byKey = ff.RepositoriesToIDs
	}
	r.nextID = ff.NextRepositoryID
	return r
}

// IDFromKey returns the existing ID for key, allocating a fresh one (and
// deleting any stale directory already sitting at that ID's repositories
// root — safety against collisions left behind by an interrupted earlier
// run) if key has never been seen before.
func (r *Registry) IDFromKey(key string, reposRoot scratch.Layout) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[key]; ok {
		return id
	}

	id := r.nextID
	r.nextID++
	r.byKey[key] = id
	r.dirty = true

	if err := scratch.RemoveIfExists(reposRoot.Package(id)); err != nil {
		// best-effort; the new allocation proceeds regardless.
		_ = err
	}
	if err := scratch.EnsureDir(reposRoot.Package(id)); err != nil {
		_ = err
	}
	return id
}

// Dirty reports whether the in-memory map has changed since Load/Flush.
func (r *Registry) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// Flush rewrites the JSON file if dirty; otherwise it is a no-op.
func (r *Registry) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty {
		return nil
	}

	ff := fileFormat{RepositoriesToIDs: r.byKey, NextRepositoryID: r.nextID}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("repository: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("repository: flush: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("repository: flush: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("repository: flush: %w", err)
	}
	r.dirty = false
	return nil
}
