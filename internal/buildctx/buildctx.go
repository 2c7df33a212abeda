// Package buildctx bundles the collaborators the planner and scheduler
// share into a single value, per spec.md §9's design note: the source
// keeps several process-global mutable registries (IDs, timestamps,
// dependencies, metadata, placeholders); this package replaces that with
// one explicit context threaded through instead, which both removes
// hidden coupling and admits multiple independent invocations in-process
// for tests.
package buildctx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rebs-build/rebs/internal/config"
	"github.com/rebs-build/rebs/internal/configeval"
	"github.com/rebs-build/rebs/internal/depfile"
	"github.com/rebs-build/rebs/internal/metadata"
	"github.com/rebs-build/rebs/internal/packageid"
	"github.com/rebs-build/rebs/internal/placeholder"
	"github.com/rebs-build/rebs/internal/queue"
	"github.com/rebs-build/rebs/internal/registry"
	"github.com/rebs-build/rebs/internal/repository"
	"github.com/rebs-build/rebs/internal/scratch"
	"github.com/rebs-build/rebs/internal/timestamp"
)

// Context is the single value threaded through an invocation's planning
// and scheduling phases.
type Context struct {
	Layout       scratch.Layout
	Timestamps   *timestamp.Cache
	PackageIDs   *packageid.Registry
	Packages     *registry.Registry
	Repositories *repository.Registry
	Metadata     *metadata.Builder
	Queue        *queue.Queue
	Config       config.GlobalConfig
	Placeholders *placeholder.Scope
	Logger       io.Writer

	depMu     sync.Mutex
	depStores map[int]*depfile.Store
}

// Options bundles the inputs New needs to construct a Context.
type Options struct {
	WorkDir            string
	OptimizationLevel  string
	TargetArchitecture string
	TargetOS           string
	Config             config.GlobalConfig
	Evaluator          *configeval.Evaluator
	Logger             io.Writer
}

// New wires up C1-C4, C9, C10, and C5 against a fresh scratch layout, and
// an empty C7 queue sized to Config.ParallelTasks.
func New(opts Options) *Context {
	layout := scratch.New(opts.WorkDir, opts.OptimizationLevel)
	_ = scratch.EnsureDir(layout.Current())

	logger := opts.Logger
	if logger == nil {
		logger = os.Stderr
	}

	ts := timestamp.New()
	logf := func(format string, args ...any) { fmt.Fprintf(logger, format+"\n", args...) }

	ids := packageid.Load(filepath.Join(layout.Current(), "package_ids"), layout, logf)
	packages := registry.New()
	packages.ScanDirectories(opts.Config.PackageDirectories)
	repos := repository.Load(filepath.Join(layout.Root(), "repositories", "repositories.json"))

	root := placeholder.NewScope(nil).WithLogger(logger)
	root.Set("temp directory", layout.Current())

	c := &Context{
		Layout:       layout,
		Timestamps:   ts,
		PackageIDs:   ids,
		Packages:     packages,
		Repositories: repos,
		Placeholders: root,
		Config:       opts.Config,
		Logger:       logger,
		depStores:    make(map[int]*depfile.Store),
	}
	c.Metadata = metadata.New(ids, layout, ts, packages, opts.Evaluator, root)
	c.Metadata.EvalOptions = configeval.Options{
		OptimizationLevel:  opts.OptimizationLevel,
		TargetArchitecture: opts.TargetArchitecture,
		TargetOS:           opts.TargetOS,
	}
	c.Metadata.GlobalConfigPath = opts.Config.Path
	c.Metadata.GlobalTree = opts.Config.Tree
	c.Queue = queue.New(opts.Config.ParallelTasks, c.scratchDirForPackage, c.DepStore, ts)
	return c
}

// DepStore returns the per-package dependency store, creating it on first
// request.
func (c *Context) DepStore(packageID int) *depfile.Store {
	c.depMu.Lock()
	defer c.depMu.Unlock()
	if s, ok := c.depStores[packageID]; ok {
		return s
	}
	s := depfile.New(filepath.Join(c.Layout.Package(packageID), "dependencies"))
	c.depStores[packageID] = s
	return s
}

func (c *Context) scratchDirForPackage(packageID int) string {
	return c.Layout.Package(packageID)
}

// Flush writes back every dirty persistent index: package IDs,
// repositories, and every touched dependency store.
func (c *Context) Flush() error {
	if err := c.PackageIDs.Flush(); err != nil {
		return err
	}
	if err := c.Repositories.Flush(); err != nil {
		return err
	}
	c.depMu.Lock()
	defer c.depMu.Unlock()
	for _, s := range c.depStores {
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}
