package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLooksLikePath(t *testing.T) {
	tests := []struct {
		arg  string
		want bool
	}{
		{"mylib", false},
		{"./mylib", true},
		{"/abs/mylib", true},
		{"C:\\mylib", true},
		{"git:github.com/x/y", true},
	}
	for _, tt := range tests {
		if got := LooksLikePath(tt.arg); got != tt.want {
			t.Errorf("LooksLikePath(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}

func TestPreRegistration_WinsOverScan(t *testing.T) {
	root := t.TempDir()
	searchDir := filepath.Join(root, "search")
	explicit := filepath.Join(root, "explicit", "mylib")
	scanned := filepath.Join(searchDir, "mylib")

	if err := os.MkdirAll(scanned, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(explicit, 0o755); err != nil {
		t.Fatal(err)
	}

	r := New()
	r.Register("mylib", explicit)
	r.ScanDirectories([]string{searchDir})

	if got := r.PathFromName("mylib"); got != explicit {
		t.Errorf("PathFromName(mylib) = %q, want explicit %q (pre-registration must win)", got, explicit)
	}
}

func TestScanDirectories_SkipsHidden(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".hidden"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "visible"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := New()
	r.ScanDirectories([]string{root})

	if r.PathFromName(".hidden") != "" {
		t.Error("hidden directory should not be registered")
	}
	if r.PathFromName("visible") == "" {
		t.Error("visible directory should be registered")
	}
}

func TestScanDirectories_FirstSeenWins(t *testing.T) {
	root := t.TempDir()
	dirA := filepath.Join(root, "a")
	dirB := filepath.Join(root, "b")
	pkgInA := filepath.Join(dirA, "mylib")
	pkgInB := filepath.Join(dirB, "mylib")
	if err := os.MkdirAll(pkgInA, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(pkgInB, 0o755); err != nil {
		t.Fatal(err)
	}

	r := New()
	r.ScanDirectories([]string{dirA, dirB})

	if got := r.PathFromName("mylib"); got != pkgInA {
		t.Errorf("PathFromName(mylib) = %q, want first-seen %q", got, pkgInA)
	}
}

func TestEnumerateInputPackages_EmptyArgsUsesCwd(t *testing.T) {
	r := New()
	got := r.EnumerateInputPackages(nil, false, false)
	wd, _ := os.Getwd()
	if len(got) != 1 || got[0] != wd {
		t.Errorf("EnumerateInputPackages(empty) = %v, want [%s]", got, wd)
	}
}

func TestEnumerateInputPackages_EmptyArgsWithUniverse_NoImplicitPackage(t *testing.T) {
	r := New()
	got := r.EnumerateInputPackages(nil, false, true)
	if len(got) != 0 {
		t.Errorf("EnumerateInputPackages(empty, universe) = %v, want empty", got)
	}
}

func TestEnumerateInputPackages_All(t *testing.T) {
	r := New()
	r.Register("a", "/pkgs/a")
	r.Register("b", "/pkgs/b")
	got := r.EnumerateInputPackages([]string{"irrelevant"}, true, false)
	if len(got) != 2 {
		t.Errorf("EnumerateInputPackages(all) = %v, want 2 entries", got)
	}
}

func TestEnumerateInputPackages_UnknownNameDropped(t *testing.T) {
	r := New()
	r.Register("a", "/pkgs/a")
	got := r.EnumerateInputPackages([]string{"a", "unknown"}, false, false)
	if len(got) != 1 || got[0] != "/pkgs/a" {
		t.Errorf("EnumerateInputPackages = %v, want [/pkgs/a]", got)
	}
}
