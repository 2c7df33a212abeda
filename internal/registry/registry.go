// Package registry resolves package short names and filesystem paths to
// absolute package directories, per spec.md §4.4.
package registry

import (
	"os"
	"path/filepath"
	"strings"
)

// Registry maps short package names to their resolved directory.
// Pre-registered (input) packages win over later directory scans: a path
// the user supplied explicitly is never shadowed by a same-named package
// discovered while scanning package_directories.
type Registry struct {
	byName map[string]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byName: make(map[string]string)}
}

// LooksLikePath reports whether a user-supplied argument should be treated
// as a filesystem path rather than a short name: it starts with "." or "/",
// or contains ":" (a drive letter or scheme).
func LooksLikePath(arg string) bool {
	if strings.HasPrefix(arg, ".") || strings.HasPrefix(arg, "/") {
		return true
	}
	return strings.Contains(arg, ":")
}

// PackageNameFromPath returns path's last component, used as the short name
// for a package registered by its directory.
func PackageNameFromPath(path string) string {
	return filepath.Base(filepath.Clean(path))
}

// Register records name → path unconditionally, overwriting any existing
// mapping. Callers register explicitly-supplied paths with Register, either
// before scanning or after it, so a scanned same-named package never wins.
func (r *Registry) Register(name, path string) {
	r.byName[name] = path
}

// RegisterIfAbsent records name → path only if name hasn't been seen yet
// (first-seen wins), matching the directory-scan pass in ScanDirectories.
func (r *Registry) RegisterIfAbsent(name, path string) {
	if _, ok := r.byName[name]; ok {
		return
	}
	r.byName[name] = path
}

// PathFromName returns the registered path for name, or "" if unknown.
func (r *Registry) PathFromName(name string) string {
	return r.byName[name]
}

// ScanDirectories walks each of dirs one level deep, registering every
// subdirectory not starting with "." under its filename, first-seen wins.
// A directory that cannot be read is skipped silently (spec.md §7:
// PersistentFileReadError-shaped conditions are non-fatal elsewhere in the
// system; the same tolerance applies to a misconfigured search root).
func (r *Registry) ScanDirectories(dirs []string) {
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			r.RegisterIfAbsent(e.Name(), filepath.Join(dir, e.Name()))
		}
	}
}

// Resolve turns a user-supplied name-or-path argument into an absolute
// package directory. Paths are returned as-is (absolutized); names are
// looked up in the registry and return "" if unknown (UnknownPackage,
// spec.md §7).
func (r *Registry) Resolve(arg string) string {
	if LooksLikePath(arg) {
		if abs, err := filepath.Abs(arg); err == nil {
			return abs
		}
		return arg
	}
	return r.PathFromName(arg)
}

// EnumerateInputPackages resolves the CLI args into package paths.
//
//   - If all is true, every registered package is returned regardless of
//     args.
//   - Otherwise each arg is resolved via Resolve; unresolvable names are
//     dropped from the result (the caller surfaces UnknownPackage for them
//     by re-checking emptiness if it needs a hard error).
//   - An empty args list resolves to the current working directory, unless
//     a universe marker is present there, in which case no implicit package
//     is emitted at all.
func (r *Registry) EnumerateInputPackages(args []string, all bool, hasUniverse bool) []string {
	if all {
		out := make([]string, 0, len(r.byName))
		for _, p := range r.byName {
			out = append(out, p)
		}
		return out
	}

	if len(args) == 0 {
		if hasUniverse {
			return nil
		}
		wd, err := os.Getwd()
		if err != nil {
			return nil
		}
		return []string{wd}
	}

	out := make([]string, 0, len(args))
	for _, a := range args {
		if p := r.Resolve(a); p != "" {
			out = append(out, p)
		}
	}
	return out
}
