package metadata

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rebs-build/rebs/internal/depdag"
)

// Consolidate runs the set-guarded BFS described in spec.md §4.5: it walks
// meta's transitive library dependencies, absorbing their public defines
// and public include directories (at the dependency's own priority), and,
// for an application root, their output objects into the link list. It
// runs at most once per Metadata; repeat calls are no-ops.
func (b *Builder) Consolidate(meta *Metadata) error {
	if meta.consolidated {
		return nil
	}

	positives := make([]string, 0)
	positiveSeen := make(map[string]bool)
	undefines := make(map[string]bool)
	addDefine := func(d string) {
		if strings.HasPrefix(d, "-") {
			undefines[strings.TrimPrefix(d, "-")] = true
			return
		}
		if !positiveSeen[d] {
			positiveSeen[d] = true
			positives = append(positives, d)
		}
	}
	for _, d := range meta.PrivateDefines {
		addDefine(d)
	}
	for _, d := range meta.PublicDefines {
		addDefine(d)
	}

	type includeEntry struct {
		priority int
		dir      string
	}
	var includes []includeEntry
	addInclude := func(dir string, priority int) {
		includes = append(includes, includeEntry{priority: priority, dir: dir})
	}
	for _, dir := range meta.PrivateIncludeDirectories {
		addInclude(mustAbs(meta.RootPath, dir), meta.IncludePriority)
	}
	for _, dir := range meta.PublicIncludeDirectories {
		addInclude(mustAbs(meta.RootPath, dir), meta.IncludePriority)
	}

	// graph guards the BFS below against a dependency cycle (C15):
	// AddEdge rejects any edge that would close a path back to an
	// ancestor, reporting the offending path instead of letting the
	// plain visited-map walk silently stop at the already-seen node.
	graph := depdag.New()

	type queueItem struct {
		parent string
		name   string
	}

	visited := make(map[string]bool)
	depOrder := make([]string, 0, len(meta.DependencyNames))
	queue := make([]queueItem, 0, len(meta.DependencyNames))
	for _, d := range meta.DependencyNames {
		queue = append(queue, queueItem{parent: meta.Name, name: d})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if err := graph.AddEdge(item.parent, item.name); err != nil {
			return fmt.Errorf("metadata: consolidating %s: %w", meta.Name, err)
		}
		if visited[item.name] {
			continue
		}
		visited[item.name] = true
		depOrder = append(depOrder, item.name)

		depMeta, err := b.Load(item.name)
		if err != nil {
			return fmt.Errorf("metadata: consolidating %s: %w: %s", meta.Name, ErrMissingDependency, item.name)
		}
		if depMeta.Type != Library {
			return fmt.Errorf("metadata: consolidating %s: %w: %s", meta.Name, ErrNonLibraryDependency, item.name)
		}

		for _, d := range depMeta.PublicDefines {
			addDefine(d)
		}
		for _, dir := range depMeta.PublicIncludeDirectories {
			addInclude(mustAbs(depMeta.RootPath, dir), depMeta.IncludePriority)
		}
		if meta.Type == Application && !depMeta.NoOutputFile {
			meta.LinkObjects = append(meta.LinkObjects, depMeta.OutputPath)
		}
		if depMeta.MetadataTimestamp > meta.MetadataTimestamp {
			meta.MetadataTimestamp = depMeta.MetadataTimestamp
		}

		for _, d := range depMeta.DependencyNames {
			queue = append(queue, queueItem{parent: item.name, name: d})
		}
	}

	meta.ConsolidatedDefines = make([]string, 0, len(positives))
	for _, d := range positives {
		if !undefines[d] {
			meta.ConsolidatedDefines = append(meta.ConsolidatedDefines, d)
		}
	}

	sort.SliceStable(includes, func(i, j int) bool {
		return includes[i].priority < includes[j].priority
	})
	meta.ConsolidatedIncludeDirectories = make([]string, 0, len(includes))
	for _, e := range includes {
		meta.ConsolidatedIncludeDirectories = append(meta.ConsolidatedIncludeDirectories, e.dir)
	}

	meta.ConsolidatedDependencyOrder = depOrder
	meta.consolidated = true
	return nil
}
