package placeholder

import (
	"bytes"
	"reflect"
	"sort"
	"testing"
)

func TestExpand_Basic(t *testing.T) {
	s := NewScope(nil)
	s.Set("out", "a.o")
	got := s.Expand("gcc -c -o ${out}")
	want := "gcc -c -o a.o"
	if got != want {
		t.Errorf("Expand = %q, want %q", got, want)
	}
}

func TestExpand_MultipleTokens(t *testing.T) {
	s := NewScope(nil)
	s.Set("in", "a.c")
	s.Set("out", "a.o")
	got := s.Expand("${in} -> ${out}")
	if got != "a.c -> a.o" {
		t.Errorf("Expand = %q", got)
	}
}

func TestExpand_MissLogsAndSubstitutesEmpty(t *testing.T) {
	var buf bytes.Buffer
	s := NewScope(nil).WithLogger(&buf)
	got := s.Expand("-I${missing}")
	if got != "-I" {
		t.Errorf("Expand = %q, want %q", got, "-I")
	}
	if buf.Len() == 0 {
		t.Error("expected a diagnostic to be logged on miss")
	}
}

func TestExpand_NoReexpansion(t *testing.T) {
	s := NewScope(nil)
	s.Set("x", "${y}")
	s.Set("y", "real")
	got := s.Expand("${x}")
	if got != "${y}" {
		t.Errorf("Expand = %q, want literal %q (no re-expansion)", got, "${y}")
	}
}

func TestExpand_ParentFallback(t *testing.T) {
	parent := NewScope(nil)
	parent.Set("temp directory", "/tmp/rebs/fast")
	child := NewScope(parent)
	child.Set("out", "a.o")

	got := child.Expand("${temp directory}/${out}")
	if got != "/tmp/rebs/fast/a.o" {
		t.Errorf("Expand = %q", got)
	}
}

func TestExpand_ChildOverridesParent(t *testing.T) {
	parent := NewScope(nil)
	parent.Set("out", "parent.o")
	child := NewScope(parent)
	child.Set("out", "child.o")

	if got := child.Expand("${out}"); got != "child.o" {
		t.Errorf("Expand = %q, want child override", got)
	}
}

func TestListScope_NoPlaceholders(t *testing.T) {
	ls := NewListScope()
	got := ls.Expand("literal string")
	want := []string{"literal string"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expand = %v, want %v", got, want)
	}
}

func TestListScope_SinglePlaceholder(t *testing.T) {
	ls := NewListScope()
	ls.Set("os", []string{"linux", "darwin"})
	got := ls.Expand("build-${os}")
	sort.Strings(got)
	want := []string{"build-darwin", "build-linux"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expand = %v, want %v", got, want)
	}
}

func TestListScope_CartesianProduct(t *testing.T) {
	ls := NewListScope()
	ls.Set("os", []string{"linux", "darwin"})
	ls.Set("arch", []string{"amd64", "arm64"})
	got := ls.Expand("${os}-${arch}")
	if len(got) != 4 {
		t.Fatalf("len(Expand) = %d, want 4 (2x2 product)", len(got))
	}
	seen := map[string]bool{}
	for _, s := range got {
		seen[s] = true
	}
	for _, want := range []string{"linux-amd64", "linux-arm64", "darwin-amd64", "darwin-arm64"} {
		if !seen[want] {
			t.Errorf("missing combination %q in %v", want, got)
		}
	}
}

func TestListScope_UnreferencedPlaceholderDoesNotMultiply(t *testing.T) {
	ls := NewListScope()
	ls.Set("os", []string{"linux", "darwin"})
	ls.Set("unused", []string{"a", "b", "c"})
	got := ls.Expand("build-${os}")
	if len(got) != 2 {
		t.Errorf("len(Expand) = %d, want 2 (unused placeholder shouldn't multiply)", len(got))
	}
}
