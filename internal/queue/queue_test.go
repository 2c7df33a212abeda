package queue

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/rebs-build/rebs/internal/depfile"
	"github.com/rebs-build/rebs/internal/timestamp"
)

func newTestQueue(t *testing.T, parallelism int) (*Queue, string, map[int]*depfile.Store) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("commands use a POSIX shell")
	}
	dir := t.TempDir()
	stores := make(map[int]*depfile.Store)
	scratchFor := func(id int) string {
		p := filepath.Join(dir, "pkg", strconv.Itoa(id))
		os.MkdirAll(p, 0o755)
		return p
	}
	depStoreFor := func(id int) *depfile.Store {
		if s, ok := stores[id]; ok {
			return s
		}
		s := depfile.New(filepath.Join(dir, "pkg", strconv.Itoa(id), "dependencies"))
		stores[id] = s
		return s
	}
	q := New(parallelism, scratchFor, depStoreFor, timestamp.New())
	return q, dir, stores
}

func TestRunAll_StageOrderCompileBeforeRun(t *testing.T) {
	q, dir, _ := newTestQueue(t, 2)
	marker := filepath.Join(dir, "order.txt")

	q.Enqueue(Run, Command{Template: "echo run >> " + marker})
	q.Enqueue(Compile, Command{
		Template:        "echo compile >> " + marker,
		PackageID:       1,
		SourceFile:      "a.c",
		DestinationFile: "a.o",
	})

	if ok := q.RunAll(context.Background()); !ok {
		t.Fatal("RunAll returned false")
	}

	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "compile\nrun\n" {
		t.Errorf("order marker = %q, want %q", data, "compile\nrun\n")
	}
}

func TestRunAll_CompileRecordsDependenciesFromDepsFile(t *testing.T) {
	q, dir, stores := newTestQueue(t, 1)
	src := filepath.Join(dir, "a.c")
	hdr := filepath.Join(dir, "a.h")
	os.WriteFile(src, []byte("x"), 0o644)
	os.WriteFile(hdr, []byte("x"), 0o644)
	obj := filepath.Join(dir, "a.o")

	cmd := Command{
		Template:        "printf 'a.o: " + src + " " + hdr + "' > ${deps file} && touch " + obj,
		PackageID:       1,
		SourceFile:      src,
		DestinationFile: obj,
	}
	q.Enqueue(Compile, cmd)

	if ok := q.RunAll(context.Background()); !ok {
		t.Fatal("RunAll returned false")
	}

	deps := stores[1].Dependencies(obj)
	if len(deps) != 2 || deps[0] != src || deps[1] != hdr {
		t.Errorf("Dependencies(obj) = %v, want [%s %s]", deps, src, hdr)
	}
}

func TestRunAll_CompileWithoutDepsFileRecordsSourceOnly(t *testing.T) {
	q, dir, stores := newTestQueue(t, 1)
	src := filepath.Join(dir, "a.c")
	obj := filepath.Join(dir, "a.o")

	q.Enqueue(Compile, Command{
		Template:        "touch " + obj,
		PackageID:       1,
		SourceFile:      src,
		DestinationFile: obj,
	})

	if ok := q.RunAll(context.Background()); !ok {
		t.Fatal("RunAll returned false")
	}

	deps := stores[1].Dependencies(obj)
	if len(deps) != 1 || deps[0] != src {
		t.Errorf("Dependencies(obj) = %v, want [%s]", deps, src)
	}
}

func TestRunAll_FailureStopsLaterStages(t *testing.T) {
	q, dir, _ := newTestQueue(t, 1)
	marker := filepath.Join(dir, "ran.txt")

	q.Enqueue(Compile, Command{Template: "exit 1", PackageID: 1, DestinationFile: "a.o"})
	q.Enqueue(LinkApplication, Command{Template: "touch " + marker})

	if ok := q.RunAll(context.Background()); ok {
		t.Fatal("RunAll returned true, want false on Compile failure")
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("LinkApplication stage ran despite an earlier stage failing")
	}
}
