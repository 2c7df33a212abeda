// Package planner implements the build-order walk spec.md §4.8 describes
// (C8): per-package source enumeration, staleness-driven compile command
// emission, link-list construction (including inherited dependency
// objects), asset copying, and the separate post-build Run-action phase.
// It is grounded on the teacher's internal/nebula worker-group recursion
// style (visited-set memoized recursive build), generalized from phase
// dependency ordering to package dependency ordering.
package planner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rebs-build/rebs/internal/buildctx"
	"github.com/rebs-build/rebs/internal/metadata"
	"github.com/rebs-build/rebs/internal/placeholder"
	"github.com/rebs-build/rebs/internal/queue"
	"github.com/rebs-build/rebs/internal/scratch"
)

// Planner walks input packages in dependency order, emitting compile,
// link, and asset-copy commands into the shared Context's queue.
type Planner struct {
	Ctx *buildctx.Context

	mu      sync.Mutex
	visited map[string]bool
}

// New creates a Planner bound to ctx.
func New(ctx *buildctx.Context) *Planner {
	return &Planner{Ctx: ctx, visited: make(map[string]bool)}
}

// BuildPackages runs build_package for every name, per spec.md §4.8. A
// per-package fatal error is logged and that package is skipped; other
// input packages still proceed. Returns false if any package failed.
func (p *Planner) BuildPackages(names []string) bool {
	ok := true
	for _, name := range names {
		if err := p.buildPackage(name); err != nil {
			fmt.Fprintf(p.Ctx.Logger, "rebs: %s: %v\n", name, err)
			ok = false
		}
	}
	return ok
}

func (p *Planner) buildPackage(name string) error {
	p.mu.Lock()
	if p.visited[name] {
		p.mu.Unlock()
		return nil
	}
	p.visited[name] = true
	p.mu.Unlock()

	meta, err := p.Ctx.Metadata.Load(name)
	if err != nil {
		return fmt.Errorf("fetching metadata: %w", err)
	}
	if err := p.Ctx.Metadata.Consolidate(meta); err != nil {
		return fmt.Errorf("consolidating: %w", err)
	}

	if meta.Type == metadata.Application {
		for _, dep := range meta.ConsolidatedDependencyOrder {
			if err := p.buildPackage(dep); err != nil {
				return err
			}
		}
	}

	if meta.ShouldSkip {
		return nil
	}

	if meta.NoOutputFile {
		return p.copyAssets(meta)
	}

	scope := placeholder.NewScope(p.Ctx.Placeholders)
	scope.Set("package name", meta.Name)
	scope.Set("cdefines", formatDefines(meta.ConsolidatedDefines))
	scope.Set("cincludes", formatIncludes(meta.ConsolidatedIncludeDirectories))
	scope.Set("shared_libraries", "")
	scope.Set("deps file", queue.DepsFilePlaceholder)

	objectsDir := p.Ctx.Layout.Objects(meta.PackageID)
	requiresLinking := false
	var linkList []string

	for _, srcDir := range meta.SourceDirectories {
		root := absUnder(meta.RootPath, srcDir)
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				return nil
			}
			tmpl, ok := meta.BuildCommands[filepath.Ext(path)]
			if !ok {
				return nil
			}
			if meta.FilesToIgnore[path] {
				return nil
			}

			rel, relErr := filepath.Rel(meta.RootPath, path)
			if relErr != nil {
				rel = filepath.Base(path)
			}
			objectFile := filepath.Join(objectsDir, rel+".o")
			linkList = append(linkList, objectFile)

			store := p.Ctx.DepStore(meta.PackageID)
			if store.IsStale(p.Ctx.Timestamps, meta.MetadataTimestamp, objectFile) {
				// Best-effort: a failed mkdir here surfaces as a
				// DirectoryCreateFailure diagnostic, not an abort — the
				// compile command below still gets queued and will fail
				// with its own, more specific error if the directory
				// genuinely couldn't be created.
				if mkErr := scratch.EnsureDir(filepath.Dir(objectFile)); mkErr != nil {
					fmt.Fprintf(p.Ctx.Logger, "rebs: %s: creating object directory: %v\n", meta.Name, mkErr)
				}
				cmdScope := placeholder.NewScope(scope)
				cmdScope.Set("in", quote(path))
				cmdScope.Set("out", quote(objectFile))
				p.Ctx.Queue.Enqueue(queue.Compile, queue.Command{
					Template:        cmdScope.Expand(tmpl),
					PackageID:       meta.PackageID,
					SourceFile:      path,
					DestinationFile: objectFile,
				})
				requiresLinking = true
			}
			return nil
		})
	}

	outputTS := p.Ctx.Timestamps.TimestampOf(meta.OutputPath)
	if outputTS == 0 {
		requiresLinking = true
	}
	for _, depObj := range meta.LinkObjects {
		linkList = append(linkList, depObj)
		if p.Ctx.Timestamps.TimestampOf(depObj) > outputTS {
			requiresLinking = true
		}
	}

	if requiresLinking {
		if mkErr := scratch.EnsureDir(filepath.Dir(meta.OutputPath)); mkErr != nil {
			fmt.Fprintf(p.Ctx.Logger, "rebs: %s: creating output directory: %v\n", meta.Name, mkErr)
		}
		p.Ctx.Timestamps.SetToNow(meta.OutputPath)
		linkScope := placeholder.NewScope(scope)
		linkScope.Set("in", quoteJoin(linkList))
		linkScope.Set("out", quote(meta.OutputPath))
		stage := queue.LinkLibrary
		if meta.Type == metadata.Application {
			stage = queue.LinkApplication
		}
		p.Ctx.Queue.Enqueue(stage, queue.Command{
			Template:        linkScope.Expand(meta.LinkerCommand),
			PackageID:       meta.PackageID,
			DestinationFile: meta.OutputPath,
		})
	}

	return p.copyAssets(meta)
}

func (p *Planner) copyAssets(meta *metadata.Metadata) error {
	if len(meta.AssetDirectories) == 0 || meta.DestinationDirectory == "" {
		return nil
	}
	for _, assetDir := range meta.AssetDirectories {
		root := absUnder(meta.RootPath, assetDir)
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = filepath.Base(path)
			}
			dest := filepath.Join(meta.DestinationDirectory, rel)
			if p.Ctx.Timestamps.TimestampOf(path) > p.Ctx.Timestamps.TimestampOf(dest) {
				p.Ctx.Queue.Enqueue(queue.CopyAssets, queue.Command{
					Template:        copyCommand(path, dest),
					PackageID:       meta.PackageID,
					SourceFile:      path,
					DestinationFile: dest,
				})
				p.Ctx.Timestamps.SetToNow(dest)
			}
			return nil
		})
	}
	return nil
}

func absUnder(root, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(root, rel)
}

func formatDefines(defines []string) string {
	parts := make([]string, 0, len(defines))
	for _, d := range defines {
		parts = append(parts, "-D"+d)
	}
	return strings.Join(parts, " ")
}

func formatIncludes(dirs []string) string {
	parts := make([]string, 0, len(dirs))
	for _, d := range dirs {
		parts = append(parts, `-I"`+d+`"`)
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	return `"` + s + `"`
}

func quoteJoin(paths []string) string {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, quote(p))
	}
	return strings.Join(parts, " ")
}

func copyCommand(src, dest string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf(`copy "%s" "%s"`, src, dest)
	}
	return fmt.Sprintf(`mkdir -p "%s" && cp "%s" "%s"`, filepath.Dir(dest), src, dest)
}
