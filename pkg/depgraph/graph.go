// Package depgraph orders settings whose refresh logic reads other settings.
//
// A Graph is built from a map of node -> prerequisites. Order emits every
// node after all of the entries listed for it, so for
//
//	{"a": {}, "b": {"a"}, "c": {"b", "d"}, "d": {}}
//
// "a" precedes "b", and both "b" and "d" precede "c". Nodes that only appear
// as prerequisites are emitted as well. Iteration is deterministic: top level
// nodes are visited in sorted order and prerequisites in declared order.
//
// A cycle among declared edges is a configuration error. Order fails with a
// *CycleError instead of dropping an edge.
package depgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle is matched by every *CycleError.
var ErrCycle = errors.New("depgraph: cycle detected")

// CycleError reports the nodes forming a dependency cycle, starting and
// ending with the same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("depgraph: cycle detected: %s", strings.Join(e.Path, " -> "))
}

// Is reports whether target is ErrCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// Graph is an immutable node -> prerequisites adjacency map.
type Graph struct {
	edges map[string][]string
}

// New copies dependencies into a Graph.
func New(dependencies map[string][]string) *Graph {
	edges := make(map[string][]string, len(dependencies))
	for node, prereqs := range dependencies {
		edges[node] = append([]string(nil), prereqs...)
	}
	return &Graph{edges: edges}
}

// Nodes returns every node known to the graph, including nodes that only
// appear as prerequisites, sorted alphabetically.
func (g *Graph) Nodes() []string {
	if g == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(g.edges))
	for node, prereqs := range g.edges {
		seen[node] = struct{}{}
		for _, p := range prereqs {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for node := range seen {
		out = append(out, node)
	}
	sort.Strings(out)
	return out
}

// Prerequisites returns a copy of the entries declared for node.
func (g *Graph) Prerequisites(node string) []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.edges[node]...)
}

const (
	unvisited = iota
	visiting
	done
)

// Order returns all nodes such that each node follows its prerequisites.
func (g *Graph) Order() ([]string, error) {
	if g == nil {
		return nil, nil
	}
	roots := make([]string, 0, len(g.edges))
	for node := range g.edges {
		roots = append(roots, node)
	}
	sort.Strings(roots)
	return g.walk(roots)
}

// Dependents returns the nodes that transitively list node as a
// prerequisite, in an order that is valid for refreshing them after node
// changed. node itself is not included.
func (g *Graph) Dependents(node string) ([]string, error) {
	if g == nil {
		return nil, nil
	}
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	affected := map[string]bool{node: true}
	var out []string
	for _, candidate := range order {
		if candidate == node {
			continue
		}
		for _, p := range g.edges[candidate] {
			if affected[p] {
				affected[candidate] = true
				out = append(out, candidate)
				break
			}
		}
	}
	return out, nil
}

func (g *Graph) walk(roots []string) ([]string, error) {
	state := make(map[string]int, len(g.edges))
	out := make([]string, 0, len(g.edges))
	var stack []string

	var visit func(node string) error
	visit = func(node string) error {
		switch state[node] {
		case done:
			return nil
		case visiting:
			return &CycleError{Path: cyclePath(stack, node)}
		}
		state[node] = visiting
		stack = append(stack, node)
		for _, p := range g.edges[node] {
			if err := visit(p); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
		out = append(out, node)
		return nil
	}

	for _, root := range roots {
		if err := visit(root); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cyclePath(stack []string, node string) []string {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == node {
			path := append([]string(nil), stack[i:]...)
			return append(path, node)
		}
	}
	return []string{node, node}
}
