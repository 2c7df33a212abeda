package metadata

import "errors"

// ErrUnknownPackage is returned when a package name does not resolve to a
// known path (spec.md §4.8: "missing metadata is fatal for this package").
var ErrUnknownPackage = errors.New("unknown package")

// ErrUnknownPackageType is returned when package_type is set to a value
// other than "application" or "library".
var ErrUnknownPackageType = errors.New("unrecognized package_type")

// ErrMissingDependency is returned when a declared dependency does not
// resolve to a known package.
var ErrMissingDependency = errors.New("dependency not found")

// ErrNonLibraryDependency is returned when a declared dependency resolves
// to an application, which spec.md §3 forbids as a dependency target.
var ErrNonLibraryDependency = errors.New("dependency is not a library")
