package metadata

import (
	"fmt"
	"strings"

	"github.com/rebs-build/rebs/internal/configeval"
)

// parse turns an evaluated configuration tree into a Metadata record,
// recognizing the keys spec.md §4.5 names.
func parse(name, rootPath string, tree configeval.Tree) (*Metadata, error) {
	m := &Metadata{
		Name:            name,
		RootPath:        rootPath,
		IncludePriority: 1000,
		FilesToIgnore:   make(map[string]bool),
	}

	switch t := treeString(tree, "package_type", "application"); t {
	case "application":
		m.Type = Application
	case "library":
		m.Type = Library
	default:
		return nil, fmt.Errorf("metadata: %w: %q", ErrUnknownPackageType, t)
	}

	m.BuildCommands = make(map[string]string)
	for ext, tmpl := range treeStringMap(tree, "build_commands") {
		key := ext
		if !strings.HasPrefix(key, ".") {
			key = "." + key
		}
		m.BuildCommands[key] = tmpl
	}

	m.LinkerCommand = treeString(tree, "linker_command", "")
	m.NoOutputFile = treeIntTruthy(tree, "no_output_file")

	m.SourceDirectories = treeStringSlice(tree, "source_directories")
	if len(m.SourceDirectories) == 0 {
		m.SourceDirectories = []string{"."}
	}

	m.PublicIncludeDirectories = treeStringSlice(tree, "public_include_directories")
	m.PrivateIncludeDirectories = treeStringSlice(tree, "include_directories")

	m.PublicDefines = treeStringSlice(tree, "public_defines")
	m.PrivateDefines = treeStringSlice(tree, "defines")

	m.DependencyNames = treeStringSlice(tree, "dependencies")

	for _, f := range treeStringSlice(tree, "files_to_ignore") {
		m.FilesToIgnore[mustAbs(rootPath, f)] = true
	}

	m.AssetDirectories = treeStringSlice(tree, "asset_directories")
	m.ShouldSkip = treeBool(tree, "should_skip")
	m.IncludePriority = treeInt(tree, "include_priority", 1000)
	m.DestinationDirectory = treeString(tree, "destination_directory", "")
	m.OutputExtension = treeString(tree, "output_extension", "")

	return m, nil
}

func treeString(tree configeval.Tree, key, def string) string {
	v, ok := tree[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func treeBool(tree configeval.Tree, key string) bool {
	v, ok := tree[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func treeInt(tree configeval.Tree, key string, def int) int {
	v, ok := tree[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

func treeIntTruthy(tree configeval.Tree, key string) bool {
	v, ok := tree[key]
	if !ok {
		return false
	}
	switch n := v.(type) {
	case float64:
		return n != 0
	case bool:
		return n
	}
	return false
}

func treeStringSlice(tree configeval.Tree, key string) []string {
	v, ok := tree[key]
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func treeStringMap(tree configeval.Tree, key string) map[string]string {
	v, ok := tree[key]
	if !ok {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
