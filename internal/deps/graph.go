// # internal/deps/graph.go
package deps

import (
	"sort"
	"strings"
)

// NestingSeparator is the character javac puts between an outer class and a
// nested class in binary names (a, a$b). A name containing it is treated as
// a nested type for result filtering, regardless of whose nested type it is.
const NestingSeparator = "$"

// Graph is an immutable mapping from class name to its DependentsSet, built
// once per analysis pass. A class absent from the mapping is a leaf with an
// empty bounded set; absence is not an error. The graph may contain cycles
// and self-edges. Because it is never mutated after construction it can be
// queried from any number of goroutines without locking.
type Graph struct {
	dependents map[string]DependentsSet
}

// NewGraph builds a graph from the analyzer-supplied mapping. The map is
// copied; later mutation of the argument does not affect the graph.
func NewGraph(dependents map[string]DependentsSet) *Graph {
	copied := make(map[string]DependentsSet, len(dependents))
	for name, set := range dependents {
		copied[name] = set
	}
	return &Graph{dependents: copied}
}

// DependentsOf returns the direct DependentsSet recorded for className, or
// an empty bounded set when the class is unknown.
func (g *Graph) DependentsOf(className string) DependentsSet {
	return g.dependents[className]
}

// RelevantDependentsOf computes the set of classes that must be recompiled
// when root changes.
//
// If root's own entry is unbounded the query short-circuits to an unbounded
// result without traversing. Otherwise it runs a breadth-first closure over
// direct dependents with an explicit visited set, so cycles and self-edges
// terminate. Three filters apply to the accumulated result:
//
//   - root itself never appears, even when a cycle routes back to it;
//   - nested types (names containing NestingSeparator) are dropped from the
//     output but still expanded, so their downstream dependents survive;
//   - the unbounded flag of an entry reached transitively never upgrades
//     the result. Only the root's own flag can do that. The entry's
//     recorded direct edges are still followed, so classes tracked behind
//     an unbounded class stay in the plan.
func (g *Graph) RelevantDependentsOf(root string) DependentsSet {
	entry := g.dependents[root]
	if entry.UnboundedImpact() {
		return AllDependents()
	}

	visited := map[string]bool{root: true}
	result := make(map[string]struct{})
	queue := entry.DirectDependents()

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if visited[name] {
			continue
		}
		visited[name] = true

		if !strings.Contains(name, NestingSeparator) {
			result[name] = struct{}{}
		}

		queue = append(queue, g.dependents[name].DirectDependents()...)
	}

	names := make([]string, 0, len(result))
	for name := range result {
		names = append(names, name)
	}
	return NewDependentsSet(names...)
}

// Classes returns every class name that has an entry, sorted.
func (g *Graph) Classes() []string {
	names := make([]string, 0, len(g.dependents))
	for name := range g.dependents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClassCount returns the number of classes with an entry.
func (g *Graph) ClassCount() int {
	return len(g.dependents)
}

// EdgeCount returns the total number of recorded direct-dependent edges,
// including the partial edge sets of unbounded entries.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, set := range g.dependents {
		total += len(set.classes)
	}
	return total
}

// UnboundedCount returns the number of classes marked unbounded impact.
func (g *Graph) UnboundedCount() int {
	total := 0
	for _, set := range g.dependents {
		if set.UnboundedImpact() {
			total++
		}
	}
	return total
}
