// Package scratch implements the deterministic scratch-directory layout
// spec.md §4.2 describes: a per-optimization-level root, per-package
// subdirectories keyed by integer package ID, and an optimization-level-less
// root used for cached third-party repositories.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
)

// UniverseFile is the marker spec.md's GLOSSARY calls a "universe": its
// presence in the working directory forces scratch onto a local path
// instead of the system temp directory.
const UniverseFile = ".universe.rebs.jsonnet"

// LocalDirName is the scratch root used when a universe file is present.
const LocalDirName = ".rebs"

// Layout resolves scratch paths for one invocation. All Layout methods are
// pure path algebra; directory creation is a separate, best-effort step
// (EnsureDir below) so callers can compute a path without forcing
// it into existence.
type Layout struct {
	root string // system temp/rebs, or the local universe directory
	opt  string // optimization level name, e.g. "debug", "fast", "optimized"
}

// New resolves the scratch root for workDir and opt (the optimization level
// name). If workDir contains a universe marker file, the root is
// workDir/.rebs; otherwise it is os.TempDir()/rebs.
func New(workDir, opt string) Layout {
	root := filepath.Join(os.TempDir(), "rebs")
	if _, err := os.Stat(filepath.Join(workDir, UniverseFile)); err == nil {
		root = filepath.Join(workDir, LocalDirName)
	}
	return Layout{root: root, opt: opt}
}

// Root returns the optimization-level-less root, used to host cached
// third-party repositories shared across optimization levels.
func (l Layout) Root() string {
	return l.root
}

// Current returns root/optimization_level_name.
func (l Layout) Current() string {
	return filepath.Join(l.root, l.opt)
}

// Package returns the per-package scratch directory: current/<package id>.
func (l Layout) Package(packageID int) string {
	return filepath.Join(l.Current(), fmt.Sprintf("%d", packageID))
}

// Objects returns the intermediate-objects subdirectory of a package's
// scratch directory, per spec.md §6's persistent-state layout
// (<current>/<id>/objects/…).
func (l Layout) Objects(packageID int) string {
	return filepath.Join(l.Package(packageID), "objects")
}

// EnsureDir creates dir (and parents) if it doesn't exist. Failures are
// tolerated: the caller is expected to log them to the error channel and
// continue, per spec.md §4.2 ("All mkdirs are best-effort").
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("scratch: create %s: %w", dir, err)
	}
	return nil
}

// RemoveIfExists recursively deletes dir and tolerates a missing target.
func RemoveIfExists(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("scratch: remove %s: %w", dir, err)
	}
	return nil
}
