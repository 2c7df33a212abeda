package depdag

import (
	"errors"
	"testing"
)

func TestAddEdge_SelfLoopRejected(t *testing.T) {
	g := New()
	if err := g.AddEdge("a", "a"); !errors.Is(err, ErrSelfEdge) {
		t.Errorf("AddEdge(a, a) = %v, want ErrSelfEdge", err)
	}
}

func TestAddEdge_SimpleChainOK(t *testing.T) {
	g := New()
	if err := g.AddEdge("app", "lib"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := g.AddEdge("lib", "base"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
}

func TestAddEdge_DirectCycleRejected(t *testing.T) {
	g := New()
	if err := g.AddEdge("a", "b"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := g.AddEdge("b", "a"); !errors.Is(err, ErrCycle) {
		t.Errorf("AddEdge(b, a) = %v, want ErrCycle", err)
	}
}

func TestAddEdge_TransitiveCycleRejected(t *testing.T) {
	g := New()
	mustEdge(t, g, "a", "b")
	mustEdge(t, g, "b", "c")
	if err := g.AddEdge("c", "a"); !errors.Is(err, ErrCycle) {
		t.Errorf("AddEdge(c, a) = %v, want ErrCycle", err)
	}
}

func TestAddEdge_DuplicateEdgeIsNoop(t *testing.T) {
	g := New()
	mustEdge(t, g, "a", "b")
	if err := g.AddEdge("a", "b"); err != nil {
		t.Errorf("repeated AddEdge(a, b) = %v, want nil", err)
	}
}

func mustEdge(t *testing.T, g *Graph, from, to string) {
	t.Helper()
	if err := g.AddEdge(from, to); err != nil {
		t.Fatalf("AddEdge(%s, %s): %v", from, to, err)
	}
}
