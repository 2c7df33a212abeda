package planner

import (
	"os"
	"path/filepath"
	"strings"
)

// cxxExtensions lists the extensions tried, in order, for the "default"
// (C++) compile flags block.
var cxxExtensions = []string{".cc", ".cpp", ".cxx"}

// GenerateClangd writes a `.clangd` file at each named package's root,
// supplementing spec.md's component table (which lists the IDE-assistance
// file generator as an out-of-scope external interface) from
// original_source/clangd.cc: a package-local CompileFlags listing built
// from its consolidated includes/defines plus whatever bare `-flag` tokens
// its own build command carries, skipping the compiler executable and any
// `${...}` placeholder. A package whose existing `.clangd` is already
// newer than its metadata is left untouched.
func (p *Planner) GenerateClangd(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if err := p.generateClangdForPackage(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) generateClangdForPackage(name string) error {
	meta, err := p.Ctx.Metadata.Load(name)
	if err != nil {
		return err
	}
	if err := p.Ctx.Metadata.Consolidate(meta); err != nil {
		return err
	}

	clangdPath := filepath.Join(meta.RootPath, ".clangd")
	if p.Ctx.Timestamps.TimestampOf(clangdPath) >= meta.MetadataTimestamp {
		return nil
	}

	cppCommand := firstBuildCommand(meta.BuildCommands, cxxExtensions)
	cCommand := meta.BuildCommands[".c"]

	defaultCommand := cppCommand
	if defaultCommand == "" {
		defaultCommand = cCommand
	}
	if defaultCommand == "" {
		for _, cmd := range meta.BuildCommands {
			defaultCommand = cmd
			break
		}
	}

	var b strings.Builder
	writeClangdFlags(&b, extractFlags(defaultCommand), meta.ConsolidatedIncludeDirectories, meta.ConsolidatedDefines)
	if cppCommand != "" && cCommand != "" {
		b.WriteString("---\n")
		b.WriteString("If:\n")
		b.WriteString("  PathMatch: .*\\.c\n")
		writeClangdFlags(&b, extractFlags(cCommand), nil, nil)
	}

	return os.WriteFile(clangdPath, []byte(b.String()), 0o644)
}

func firstBuildCommand(commands map[string]string, extensions []string) string {
	for _, ext := range extensions {
		if cmd, ok := commands[ext]; ok {
			return cmd
		}
	}
	return ""
}

// extractFlags pulls bare `-flag` tokens out of a build command template,
// skipping the leading compiler executable and any `${...}` placeholder
// (including the trailing half of a multi-word placeholder like
// `${deps file}`).
func extractFlags(command string) []string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	var flags []string
	for _, tok := range fields[1:] {
		if strings.Contains(tok, "${") || strings.Contains(tok, "}") {
			continue
		}
		if !strings.HasPrefix(tok, "-") {
			continue
		}
		flags = append(flags, tok)
	}
	return flags
}

func writeClangdFlags(b *strings.Builder, flags, includes, defines []string) {
	b.WriteString("CompileFlags:\n")
	b.WriteString("  Add: [\n")
	for _, inc := range includes {
		abs, err := filepath.Abs(inc)
		if err != nil {
			abs = inc
		}
		b.WriteString("    \"-I" + abs + "\",\n")
	}
	for _, d := range defines {
		b.WriteString("    -D" + d + ",\n")
	}
	for _, f := range flags {
		b.WriteString("    " + f + ",\n")
	}
	b.WriteString("  ]\n")
}
