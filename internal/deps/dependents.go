// # internal/deps/dependents.go
package deps

import "sort"

// DependentsSet records, for one class, the classes known to be directly
// affected by a change to it. The set is either bounded (its recorded edges
// enumerate the full impact) or unbounded, meaning every class in the
// program has to be considered affected. An unbounded set may still carry
// recorded direct edges; they are a partial view that traversal follows,
// never a complete answer.
type DependentsSet struct {
	all     bool
	classes map[string]struct{}
}

// AllDependents returns an unbounded-impact set. Callers must treat it as
// "recompile everything"; any classes given are the direct edges that were
// tracked anyway, reachable through DirectDependents but never enumerable
// as the total impact.
func AllDependents(classes ...string) DependentsSet {
	set := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		set[c] = struct{}{}
	}
	return DependentsSet{all: true, classes: set}
}

// NewDependentsSet builds a bounded set from the given class names.
// Duplicates collapse; order is not significant.
func NewDependentsSet(classes ...string) DependentsSet {
	set := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		set[c] = struct{}{}
	}
	return DependentsSet{classes: set}
}

// UnboundedImpact reports whether the affected set cannot be enumerated.
// Always safe to call.
func (s DependentsSet) UnboundedImpact() bool {
	return s.all
}

// DependentClasses returns the bounded dependent class names, sorted.
// Calling it on an unbounded set is a programming error: the caller skipped
// the UnboundedImpact check, and silently returning an empty list here would
// under-recompile. It panics instead.
func (s DependentsSet) DependentClasses() []string {
	if s.all {
		panic("deps: DependentClasses called on an unbounded DependentsSet; check UnboundedImpact first")
	}
	out := make([]string, 0, len(s.classes))
	for c := range s.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// DirectDependents returns the recorded direct edges, sorted. Unlike
// DependentClasses it is defined for unbounded sets too: an unbounded
// class's tracked dependents still ripple to their own dependents, even
// though the class's total impact cannot be enumerated.
func (s DependentsSet) DirectDependents() []string {
	out := make([]string, 0, len(s.classes))
	for c := range s.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Size returns the number of dependents in a bounded set. Panics if unbounded.
func (s DependentsSet) Size() int {
	if s.all {
		panic("deps: Size called on an unbounded DependentsSet; check UnboundedImpact first")
	}
	return len(s.classes)
}

// Contains reports whether the bounded set holds the given class name.
// Panics if unbounded.
func (s DependentsSet) Contains(className string) bool {
	if s.all {
		panic("deps: Contains called on an unbounded DependentsSet; check UnboundedImpact first")
	}
	_, ok := s.classes[className]
	return ok
}
