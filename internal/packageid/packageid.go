// Package packageid implements the persistent package-path ↔ integer-ID map
// spec.md §3 and §4.3 describe: stable IDs across invocations, retirement of
// entries whose path no longer exists, and scratch-directory lifecycle tied
// to that retirement.
package packageid

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rebs-build/rebs/internal/scratch"
)

// Registry is the in-memory, lazily-persisted package_path → ID map.
// Zero value is not usable; construct with Load.
type Registry struct {
	path   string
	layout scratch.Layout
	logf   func(format string, args ...any)

	mu     sync.Mutex
	byPath map[string]int
	nextID int
	dirty  bool
}

// Load reads the persistent map at path (two lines per entry: path, then
// ID). Entries whose recorded path no longer exists on disk are dropped and
// their scratch directory removed; the map is marked dirty so a subsequent
// Flush writes the pruned map back. A missing or unreadable file is treated
// as an empty map (spec.md §7, PersistentFileReadError is non-fatal).
func Load(path string, layout scratch.Layout, logf func(string, ...any)) *Registry {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	r := &Registry{
		path:   path,
		layout: layout,
		logf:   logf,
		byPath: make(map[string]int),
	}

	raw, err := readPairs(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logf("packageid: read %s: %v", path, err)
		}
		return r
	}

	maxID := -1
	for p, id := range raw {
		if _, err := os.Stat(p); err != nil {
			if err := scratch.RemoveIfExists(layout.Package(id)); err != nil {
				logf("packageid: %v", err)
			}
			r.dirty = true
			continue
		}
		r.byPath[p] = id
		if err := scratch.EnsureDir(layout.Package(id)); err != nil {
			logf("packageid: %v", err)
		}
		if id > maxID {
			maxID = id
		}
	}
	r.nextID = maxID + 1
	return r
}

// IDFromPath returns the existing ID for path, allocating a fresh one (and
// creating its scratch directory) if path has never been seen before. A
// new allocation marks the map dirty; it reaches disk on the next Flush.
func (r *Registry) IDFromPath(path string) int {
	abs := absOrSelf(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPath[abs]; ok {
		return id
	}

	id := r.nextID
	r.nextID++
	r.byPath[abs] = id
	r.dirty = true

	if err := scratch.EnsureDir(r.layout.Package(id)); err != nil {
		r.logf("packageid: %v", err)
	}
	return id
}

// Dirty reports whether the in-memory map has changed since Load/Flush.
func (r *Registry) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// Flush rewrites the persistent file from the in-memory map if dirty;
// otherwise it is a no-op.
func (r *Registry) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty {
		return nil
	}

	if err := writePairs(r.path, r.byPath); err != nil {
		return fmt.Errorf("packageid: flush: %w", err)
	}
	r.dirty = false
	return nil
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// readPairs parses the two-line-per-entry format: path, then ID, repeated
// to EOF.
func readPairs(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]int)
	scanner := bufio.NewScanner(f)
	for {
		if !scanner.Scan() {
			break
		}
		p := scanner.Text()
		if !scanner.Scan() {
			break // trailing path with no ID: ignore the dangling entry.
		}
		var id int
		if _, err := fmt.Sscanf(scanner.Text(), "%d", &id); err != nil {
			continue
		}
		out[p] = id
	}
	return out, scanner.Err()
}

// writePairs writes the map via a temp-file-then-rename so a crash mid-write
// never leaves a truncated index behind.
func writePairs(path string, m map[string]int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for p, id := range m {
		fmt.Fprintf(w, "%s\n%d\n", p, id)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
