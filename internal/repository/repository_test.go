package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rebs-build/rebs/internal/scratch"
)

func TestLoad_MissingFile_EmptyRegistry(t *testing.T) {
	r := Load(filepath.Join(t.TempDir(), "repositories.json"))
	if r.Dirty() {
		t.Error("freshly loaded missing-file registry should not be dirty")
	}
}

func TestLoad_CorruptFile_TolerantEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := Load(path)
	layout := scratch.New(t.TempDir(), "fast")
	id := r.IDFromKey(Key("git", "https://example.com/a"), layout)
	if id != 0 {
		t.Errorf("first ID allocated from a tolerant-empty registry = %d, want 0", id)
	}
}

func TestIDFromKey_StableAcrossFlushAndReload(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "repositories.json")
	layout := scratch.New(base, "fast")

	r1 := Load(path)
	id1 := r1.IDFromKey(Key("git", "https://example.com/a"), layout)
	if err := r1.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r2 := Load(path)
	id2 := r2.IDFromKey(Key("git", "https://example.com/a"), layout)
	if id1 != id2 {
		t.Errorf("ID changed across reload: %d != %d", id1, id2)
	}
}

func TestFlush_WritesExpectedShape(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "repositories.json")
	layout := scratch.New(base, "fast")

	r := Load(path)
	r.IDFromKey(Key("git", "https://example.com/a"), layout)
	r.IDFromKey(Key("tar", "https://example.com/b.tar.gz"), layout)
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(ff.RepositoriesToIDs) != 2 {
		t.Errorf("len(RepositoriesToIDs) = %d, want 2", len(ff.RepositoriesToIDs))
	}
	if ff.NextRepositoryID != 2 {
		t.Errorf("NextRepositoryID = %d, want 2", ff.NextRepositoryID)
	}
}

func TestIDFromKey_ReclaimsStaleDirectory(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "repositories.json")
	layout := scratch.New(base, "fast")

	// Simulate a stale directory left at ID 0 from an interrupted run.
	stale := layout.Package(0)
	if err := scratch.EnsureDir(stale); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stale, "leftover"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := Load(path)
	r.IDFromKey(Key("git", "https://example.com/fresh"), layout)

	if _, err := os.Stat(filepath.Join(stale, "leftover")); !os.IsNotExist(err) {
		t.Error("stale leftover file should have been reclaimed")
	}
}
