// # internal/deps/builder.go
package deps

// Builder accumulates direct-dependent edges while the analyzer walks the
// sources, then freezes them into an immutable Graph. It is the only place
// dependents are mutated; once Build is called the result never changes.
type Builder struct {
	dependents map[string]map[string]struct{}
	unbounded  map[string]struct{}
}

func NewBuilder() *Builder {
	return &Builder{
		dependents: make(map[string]map[string]struct{}),
		unbounded:  make(map[string]struct{}),
	}
}

// AddDependent records that dependent must be recompiled when className
// changes. Duplicate edges collapse. The edge is kept even when className
// is marked unbounded: tracked dependents of an unbounded class still
// propagate to their own dependents.
func (b *Builder) AddDependent(className, dependent string) {
	set, ok := b.dependents[className]
	if !ok {
		set = make(map[string]struct{})
		b.dependents[className] = set
	}
	set[dependent] = struct{}{}
}

// MarkUnbounded flags className as having unenumerable impact. Edges
// recorded for it, before or after the mark, are kept as its partial
// direct-dependent view.
func (b *Builder) MarkUnbounded(className string) {
	b.unbounded[className] = struct{}{}
}

// Declare ensures className has an entry even when nothing depends on it,
// so the graph distinguishes "known leaf" from "never seen".
func (b *Builder) Declare(className string) {
	if _, ok := b.dependents[className]; !ok {
		b.dependents[className] = make(map[string]struct{})
	}
}

// Build freezes the accumulated state into a Graph. The builder may be
// reused afterwards; the graph does not share state with it.
func (b *Builder) Build() *Graph {
	mapping := make(map[string]DependentsSet, len(b.dependents)+len(b.unbounded))
	for name, set := range b.dependents {
		if _, ok := b.unbounded[name]; ok {
			continue
		}
		names := make([]string, 0, len(set))
		for dep := range set {
			names = append(names, dep)
		}
		mapping[name] = NewDependentsSet(names...)
	}
	for name := range b.unbounded {
		names := make([]string, 0, len(b.dependents[name]))
		for dep := range b.dependents[name] {
			names = append(names, dep)
		}
		mapping[name] = AllDependents(names...)
	}
	return NewGraph(mapping)
}
