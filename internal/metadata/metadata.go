// Package metadata loads and consolidates per-package build descriptions
// (spec.md §3 PackageMetadata, §4.5). A Builder turns a short package name
// into a fully parsed Metadata record, then — on demand — walks its
// transitive library dependencies to produce the consolidated include
// directories, defines, dependency order, and (for applications) link
// object list the planner (C8) needs.
package metadata

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rebs-build/rebs/internal/configeval"
	"github.com/rebs-build/rebs/internal/packageid"
	"github.com/rebs-build/rebs/internal/placeholder"
	"github.com/rebs-build/rebs/internal/registry"
	"github.com/rebs-build/rebs/internal/scratch"
	"github.com/rebs-build/rebs/internal/timestamp"
)

// ConfigFileName is the per-package configuration file name, evaluated the
// same way the global configuration is (spec.md §1: "an already-evaluated
// tree").
const ConfigFileName = "package.rebs.jsonnet"

// Type is the package kind spec.md §3 names.
type Type int

const (
	Application Type = iota
	Library
)

func (t Type) String() string {
	if t == Library {
		return "library"
	}
	return "application"
}

// Metadata is one package's parsed and (eventually) consolidated build
// description.
type Metadata struct {
	Name string
	Type Type

	PackageID  int
	RootPath   string
	ScratchDir string

	BuildCommands map[string]string
	LinkerCommand string

	SourceDirectories []string

	PrivateIncludeDirectories []string
	PublicIncludeDirectories  []string

	PrivateDefines []string
	PublicDefines  []string

	IncludePriority int

	DependencyNames []string

	FilesToIgnore map[string]bool

	AssetDirectories      []string
	DestinationDirectory  string
	OutputExtension       string
	OutputPath            string

	ShouldSkip   bool
	NoOutputFile bool

	MetadataTimestamp int64

	consolidated bool

	ConsolidatedDefines            []string
	ConsolidatedDependencyOrder    []string
	ConsolidatedIncludeDirectories []string
	LinkObjects                    []string
}

// Builder loads and caches Metadata records for an invocation.
type Builder struct {
	PackageIDs   *packageid.Registry
	Layout       scratch.Layout
	Timestamps   *timestamp.Cache
	Packages     *registry.Registry
	Evaluator    *configeval.Evaluator
	Placeholders *placeholder.Scope

	// EvalOptions carries the optimization_level/target_architecture/
	// target_os external variables through to every per-package
	// evaluation (spec.md §6). The global configuration loader (C13)
	// passes only target_architecture and target_os; its
	// optimization_level is empty.
	EvalOptions configeval.Options

	// GlobalConfigPath and GlobalTree are the global configuration's
	// resolved path and raw evaluated tree (config.GlobalConfig.Path/
	// Tree). GlobalConfigPath's mtime is folded into every package's
	// MetadataTimestamp (spec.md §3); GlobalTree is the fallback tree
	// used when a package's own config file is absent (spec.md
	// GLOSSARY: the per-package config file is optional).
	GlobalConfigPath string
	GlobalTree       configeval.Tree

	mu    sync.Mutex
	cache map[string]*Metadata
}

// New creates a Builder bound to the given component collaborators.
func New(ids *packageid.Registry, layout scratch.Layout, ts *timestamp.Cache, packages *registry.Registry, eval *configeval.Evaluator, placeholders *placeholder.Scope) *Builder {
	return &Builder{
		PackageIDs:   ids,
		Layout:       layout,
		Timestamps:   ts,
		Packages:     packages,
		Evaluator:    eval,
		Placeholders: placeholders,
		cache:        make(map[string]*Metadata),
	}
}

// Load fetches (and parses, but does not consolidate) the metadata for a
// package by short name. Results are cached for the lifetime of the
// Builder, matching spec.md §3's "cached by name for the invocation".
func (b *Builder) Load(name string) (*Metadata, error) {
	b.mu.Lock()
	if m, ok := b.cache[name]; ok {
		b.mu.Unlock()
		return m, nil
	}
	b.mu.Unlock()

	path := b.Packages.PathFromName(name)
	if path == "" {
		path = b.Packages.Resolve(name)
	}
	if path == "" {
		return nil, fmt.Errorf("metadata: %w: %s", ErrUnknownPackage, name)
	}

	// The per-package config file is optional (spec.md GLOSSARY): a
	// package directory with no package.rebs.jsonnet falls back to the
	// global config tree, matching
	// _examples/original_source/source/config.cc:346's
	// `if (!DoesFileExist(config_path)) return global_config_file;`
	// instead of failing the package outright.
	configPath := filepath.Join(path, ConfigFileName)
	tree, err := b.Evaluator.Evaluate(configPath, b.EvalOptions)
	if err != nil {
		if !errors.Is(err, configeval.ErrConfigMissing) {
			return nil, fmt.Errorf("metadata: loading %s: %w", name, err)
		}
		tree = b.GlobalTree
	}

	packageID := b.PackageIDs.IDFromPath(path)

	m, err := parse(name, path, tree)
	if err != nil {
		return nil, err
	}
	m.PackageID = packageID
	m.ScratchDir = b.Layout.Package(packageID)

	// MetadataTimestamp is the max of the package's own config mtime and
	// the global config's mtime (spec.md §3), matching
	// _examples/original_source/source/config.cc:349's
	// `std::max(global_config_file_timestamp, GetTimestampOfFile(config_path))`.
	m.MetadataTimestamp = b.Timestamps.TimestampOf(configPath)
	if b.GlobalConfigPath != "" {
		if gts := b.Timestamps.TimestampOf(b.GlobalConfigPath); gts > m.MetadataTimestamp {
			m.MetadataTimestamp = gts
		}
	}

	if m.DestinationDirectory != "" && b.Placeholders != nil {
		m.DestinationDirectory = b.Placeholders.Expand(m.DestinationDirectory)
	}
	if m.DestinationDirectory != "" {
		m.OutputPath = filepath.Join(m.DestinationDirectory, name)
	} else {
		m.OutputPath = filepath.Join(m.ScratchDir, name)
	}
	if m.OutputExtension != "" {
		m.OutputPath += "." + m.OutputExtension
	}

	b.mu.Lock()
	b.cache[name] = m
	b.mu.Unlock()
	return m, nil
}

func mustAbs(base, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(base, rel)
}
