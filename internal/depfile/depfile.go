// Package depfile implements the per-package dependency graph store
// (spec.md §3, §4.6): a persistent map from object file to the list of
// source files the compiler reported it depends on, plus the parser for
// compiler-emitted Makefile-style dependency files.
package depfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rebs-build/rebs/internal/timestamp"
)

// Store is the per-package, lazily-loaded object_file → [dependency paths]
// map. One Store should be kept per package ID for the lifetime of an
// invocation; Get/Set/Flush are safe for concurrent use so compile workers
// can record dependencies without contending with the scheduler's progress
// reporting (spec.md §5: "dedicated mutex separate from the queue mutex").
type Store struct {
	mu      sync.Mutex
	path    string
	deps    map[string][]string
	dirty   bool
	loaded  bool
}

// New creates a Store bound to the per-package dependency file at path. The
// file is read lazily on first access, matching spec.md §4.6's "lazily
// loaded from the persistent file on first access per package ID".
func New(path string) *Store {
	return &Store{path: path, deps: make(map[string][]string)}
}

func (s *Store) ensureLoaded() {
	if s.loaded {
		return
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		return // PersistentFileReadError: non-fatal, treated as empty state.
	}
	for _, block := range strings.Split(string(data), "\n\n") {
		lines := strings.Split(strings.TrimRight(block, "\n"), "\n")
		if len(lines) == 0 || lines[0] == "" {
			continue
		}
		obj := lines[0]
		var deps []string
		for _, l := range lines[1:] {
			if l != "" {
				deps = append(deps, l)
			}
		}
		s.deps[obj] = deps
	}
}

// Dependencies returns the recorded dependency list for objectFile, or nil
// if no record exists.
func (s *Store) Dependencies(objectFile string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	return s.deps[objectFile]
}

// SetDependencies overwrites the recorded dependency list for objectFile.
// If the new list is element-wise equal to the stored one, the store is
// left unchanged (and not marked dirty) — spec.md §4.6.
func (s *Store) SetDependencies(objectFile string, deps []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	if equalSlices(s.deps[objectFile], deps) {
		return
	}
	s.deps[objectFile] = deps
	s.dirty = true
}

// IsStale reports whether objectFile needs recompilation, per spec.md
// §4.6: true if the object doesn't exist, threshold is newer than the
// object, there is no recorded dependency set, or any recorded dependency
// has disappeared (timestamp 0) or is newer than the object.
func (s *Store) IsStale(ts *timestamp.Cache, threshold int64, objectFile string) bool {
	objTS := ts.TimestampOf(objectFile)
	if objTS == 0 {
		return true
	}
	if threshold > objTS {
		return true
	}

	deps := s.Dependencies(objectFile)
	if deps == nil {
		return true
	}
	for _, d := range deps {
		dTS := ts.TimestampOf(d)
		if dTS == 0 || dTS > objTS {
			return true
		}
	}
	return false
}

// Flush rewrites the persistent file if dirty; otherwise it is a no-op.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	var b strings.Builder
	for obj, deps := range s.deps {
		b.WriteString(obj)
		b.WriteByte('\n')
		for _, d := range deps {
			b.WriteString(d)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("depfile: flush: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("depfile: flush: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("depfile: flush: %w", err)
	}
	s.dirty = false
	return nil
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ParseCompilerDepFile parses a compiler-emitted Makefile-style dependency
// stream (spec.md §4.6): everything up to and including the first ':' is
// the target and is discarded; the remainder is a whitespace-separated list
// of paths. A backslash immediately followed by a space is a literal space
// inside a path; any other bare backslash (typically at end-of-line) is a
// continuation and is dropped, letting the next line's tokens join the same
// list. Empty tokens are discarded. Paths are returned in encounter order.
// Input with no ':' is all target and yields no paths.
func ParseCompilerDepFile(data []byte) []string {
	text := string(data)
	idx := strings.IndexByte(text, ':')
	if idx < 0 {
		return nil
	}
	text = text[idx+1:]

	var paths []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			paths = append(paths, cur.String())
			cur.Reset()
		}
	}

	r := bufio.NewReader(strings.NewReader(text))
	for {
		b, err := r.ReadByte()
		if err != nil {
			break
		}
		switch b {
		case '\\':
			next, err2 := r.ReadByte()
			if err2 != nil {
				flush()
				continue
			}
			if next == ' ' {
				cur.WriteByte(' ')
			} else {
				// Bare backslash (line continuation): terminate the
				// current token and drop the backslash itself.
				flush()
				if next != '\n' && next != '\r' {
					_ = r.UnreadByte()
				}
			}
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			cur.WriteByte(b)
		}
	}
	flush()
	return paths
}
