// Package depdag is a small acyclic-graph validator used defensively by the
// metadata builder (spec.md §4.5) inside the set-guarded BFS that
// consolidates a package's transitive dependency data: each dependency edge
// is added here before the BFS follows it. It is adapted from
// the teacher's internal/dag package, keeping only node/edge bookkeeping
// and cycle detection — REBS's scheduler (spec.md §4.7) is a fixed
// five-stage pipeline, never a dependency-scored continuous dispatch loop,
// so the teacher's impact scoring, Union-Find track partitioning, and
// priority-sorted readiness queries have no home here.
package depdag

import (
	"errors"
	"fmt"
)

// ErrCycle is returned when an edge would introduce a dependency cycle.
var ErrCycle = errors.New("dependency cycle detected")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing dependency")

// Graph is a directed graph of package names. An edge from → to means
// "from depends on to", matching spec.md's package dependency direction.
type Graph struct {
	adjacency map[string]map[string]bool
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{adjacency: make(map[string]map[string]bool)}
}

func (g *Graph) ensureNode(id string) {
	if _, ok := g.adjacency[id]; !ok {
		g.adjacency[id] = make(map[string]bool)
	}
}

// AddEdge records that from depends on to, adding either endpoint as a node
// if not already present. Returns ErrSelfEdge for from == to, or ErrCycle
// (with the cycle path) if the edge would close a cycle.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	g.ensureNode(from)
	g.ensureNode(to)

	if g.adjacency[from][to] {
		return nil
	}

	if path := g.findPath(to, from); path != nil {
		path = append(path, from)
		return fmt.Errorf("%w: %s", ErrCycle, formatPath(path))
	}

	g.adjacency[from][to] = true
	return nil
}

// findPath performs a DFS from start to target, returning the path
// (inclusive of start) if one exists, or nil otherwise.
func (g *Graph) findPath(start, target string) []string {
	visited := make(map[string]bool)
	var path []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		if node == target {
			path = append(path, node)
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		for next := range g.adjacency[node] {
			if dfs(next) {
				path = append(path, node)
				return true
			}
		}
		return false
	}

	if dfs(start) {
		reversed := make([]string, len(path))
		for i, id := range path {
			reversed[len(path)-1-i] = id
		}
		return reversed
	}
	return nil
}

func formatPath(path []string) string {
	out := path[0]
	for _, id := range path[1:] {
		out += " -> " + id
	}
	return out
}
