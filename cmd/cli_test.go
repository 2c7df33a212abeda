package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/viper"
)

func writeStubJsonnet(t *testing.T, binDir string) {
	t.Helper()
	script := "#!/bin/sh\n" +
		"while [ \"$#\" -gt 0 ]; do\n" +
		"  case \"$1\" in\n" +
		"    -o) out=\"$2\"; shift 2 ;;\n" +
		"    --ext-str) shift 2 ;;\n" +
		"    *) in=\"$1\"; shift ;;\n" +
		"  esac\n" +
		"done\n" +
		"cp \"$in\" \"$out\"\n"
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "jsonnet"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func writePackageConfig(t *testing.T, dir, json string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.rebs.jsonnet"), []byte(json), 0o644); err != nil {
		t.Fatal(err)
	}
}

// setupFixture wires a library L and an application A under a temp
// package root, a temp HOME carrying a global config that registers that
// root as a package directory, and a stub "jsonnet" binary on PATH. It
// returns the work directory the test should chdir into (carrying a
// universe marker so the scratch root stays local to the test).
func setupFixture(t *testing.T) (workDir string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("build commands and the jsonnet stub are POSIX shell")
	}
	viper.Reset()
	t.Cleanup(viper.Reset)

	pkgsRoot := t.TempDir()
	lDir := filepath.Join(pkgsRoot, "L")
	aDir := filepath.Join(pkgsRoot, "A")

	writePackageConfig(t, lDir, `{
		"package_type": "library",
		"source_directories": ["src"],
		"public_include_directories": ["public"],
		"public_defines": ["FOO=1"],
		"build_commands": {"cc": "touch ${out}"},
		"linker_command": "touch ${out}"
	}`)
	writePackageConfig(t, aDir, `{
		"package_type": "application",
		"dependencies": ["L"],
		"source_directories": ["src"],
		"build_commands": {"cc": "touch ${out}"},
		"linker_command": "touch ${out}"
	}`)
	mustWriteFile(t, filepath.Join(lDir, "src", "a.cc"), "int x;")
	mustWriteFile(t, filepath.Join(aDir, "src", "main.cc"), "int main(){}")

	home := t.TempDir()
	mustWriteFile(t, filepath.Join(home, ".rebs.jsonnet"), `{"package_directories": [`+quoteJSON(pkgsRoot)+`], "parallel_tasks": 2}`)
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	binDir := t.TempDir()
	writeStubJsonnet(t, binDir)
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	workDir = t.TempDir()
	mustWriteFile(t, filepath.Join(workDir, ".universe.rebs.jsonnet"), "{}")
	return workDir
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func quoteJSON(s string) string {
	return `"` + s + `"`
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestCLI_BuildAllThenCleanAll(t *testing.T) {
	workDir := setupFixture(t)
	chdir(t, workDir)

	rootCmd.SetArgs([]string{"build", "--all", "--opt", "debug"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("build --all: %v", err)
	}

	// Re-running without edits is also a success (nothing to do).
	rootCmd.SetArgs([]string{"build", "--all", "--opt", "debug"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("build --all (rebuild): %v", err)
	}

	rootCmd.SetArgs([]string{"list", "--all", "--opt", "debug"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("list --all: %v", err)
	}

	rootCmd.SetArgs([]string{"clean", "--all", "--opt", "debug"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("clean --all: %v", err)
	}
}

func TestCLI_DeepClean(t *testing.T) {
	workDir := setupFixture(t)
	chdir(t, workDir)

	rootCmd.SetArgs([]string{"build", "--all", "--opt", "debug"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("build --all: %v", err)
	}

	rootCmd.SetArgs([]string{"deep-clean"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("deep-clean: %v", err)
	}
}

func TestCLI_RunWithNoApplicationsIsUserError(t *testing.T) {
	workDir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Skip("jsonnet stub is POSIX shell")
	}
	viper.Reset()
	t.Cleanup(viper.Reset)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	mustWriteFile(t, filepath.Join(workDir, ".universe.rebs.jsonnet"), "{}")
	chdir(t, workDir)

	rootCmd.SetArgs([]string{"run", "--all", "--opt", "debug"})
	if err := rootCmd.Execute(); err == nil {
		t.Error("run --all with no registered packages = nil error, want nothing-to-run")
	}
}
