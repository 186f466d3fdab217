// # internal/analyzer/analyzer.go
package analyzer

import (
	"sort"
	"strings"
	"sync"

	"recompile/internal/deps"
)

// Analyzer accumulates parse results file by file and resolves them into a
// class dependents graph on demand. Parsing is incremental (changed files
// replace their previous parse); resolution always runs over the full set,
// producing a fresh immutable graph per pass.
type Analyzer struct {
	parser *Parser

	// Annotation names whose processors have unknowable scope. A class
	// carrying one is marked unbounded impact. Matched against both the
	// simple and the qualified name as written in source.
	unboundedAnnotations map[string]struct{}

	mu    sync.RWMutex
	files map[string]*SourceFile // path -> latest parse
}

func New(unboundedAnnotations []string) *Analyzer {
	set := make(map[string]struct{}, len(unboundedAnnotations))
	for _, name := range unboundedAnnotations {
		name = strings.TrimPrefix(strings.TrimSpace(name), "@")
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return &Analyzer{
		parser:               NewParser(),
		unboundedAnnotations: set,
		files:                make(map[string]*SourceFile),
	}
}

// ProcessFile parses content and replaces any previous parse for path.
func (a *Analyzer) ProcessFile(path string, content []byte) error {
	file, err := a.parser.Parse(path, content)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.files[path] = file
	a.mu.Unlock()
	return nil
}

// RemoveFile drops the parse for a deleted source file.
func (a *Analyzer) RemoveFile(path string) {
	a.mu.Lock()
	delete(a.files, path)
	a.mu.Unlock()
}

// FileCount returns the number of files currently parsed.
func (a *Analyzer) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// Snapshot is one pass's resolved view: the immutable dependents graph plus
// the file/class correspondence the driver needs to map changed paths to
// changed classes.
type Snapshot struct {
	Graph         *deps.Graph
	ClassesByFile map[string][]string // path -> declared class FQNs, sorted
	FilesByClass  map[string]string   // class FQN -> declaring path
}

// Resolve builds a Snapshot from all parses seen so far.
//
// Reference resolution is source-level and conservative: a simple name is
// tried against the declaring file, single-type imports, the same package,
// then wildcard-imported packages. Names that resolve nowhere are assumed
// external (JDK or classpath) and dropped; they cannot force recompilation
// of project classes.
func (a *Analyzer) Resolve() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	idx := newDeclarationIndex(a.files)
	builder := deps.NewBuilder()

	classesByFile := make(map[string][]string, len(a.files))
	filesByClass := make(map[string]string)

	for path, file := range a.files {
		for _, decl := range file.Types {
			fqn := file.FQN(decl)
			builder.Declare(fqn)
			classesByFile[path] = append(classesByFile[path], fqn)
			filesByClass[fqn] = path

			if a.isUnbounded(decl) {
				builder.MarkUnbounded(fqn)
			}
		}
	}

	for _, file := range a.files {
		for _, decl := range file.Types {
			fqn := file.FQN(decl)
			for _, ref := range decl.References {
				target, ok := idx.resolve(file, ref)
				if !ok {
					continue
				}
				// Edge direction: a change to target invalidates fqn.
				builder.AddDependent(target, fqn)
			}
		}
	}

	for path := range classesByFile {
		sort.Strings(classesByFile[path])
	}

	return &Snapshot{
		Graph:         builder.Build(),
		ClassesByFile: classesByFile,
		FilesByClass:  filesByClass,
	}
}

func (a *Analyzer) isUnbounded(decl TypeDecl) bool {
	if decl.HasAccessibleConstants {
		return true
	}
	for _, ann := range decl.Annotations {
		if _, ok := a.unboundedAnnotations[ann]; ok {
			return true
		}
		if i := strings.LastIndex(ann, "."); i >= 0 {
			if _, ok := a.unboundedAnnotations[ann[i+1:]]; ok {
				return true
			}
		}
	}
	return false
}

// declarationIndex maps names to declared FQNs for resolution.
type declarationIndex struct {
	byFQN map[string]struct{}
	// package -> simple name -> FQN, top-level and nested alike. Nested
	// types register under their trailing segment so an in-scope "Inner"
	// resolves to Outer$Inner.
	byPackage map[string]map[string]string
}

func newDeclarationIndex(files map[string]*SourceFile) *declarationIndex {
	idx := &declarationIndex{
		byFQN:     make(map[string]struct{}),
		byPackage: make(map[string]map[string]string),
	}
	for _, file := range files {
		pkg := idx.byPackage[file.Package]
		if pkg == nil {
			pkg = make(map[string]string)
			idx.byPackage[file.Package] = pkg
		}
		for _, decl := range file.Types {
			fqn := file.FQN(decl)
			idx.byFQN[fqn] = struct{}{}
			simple := decl.Name
			if i := strings.LastIndex(simple, deps.NestingSeparator); i >= 0 {
				simple = simple[i+1:]
			}
			// First declaration wins on a same-package name clash; javac
			// would reject the clash anyway.
			if _, taken := pkg[simple]; !taken {
				pkg[simple] = fqn
			}
		}
	}
	return idx
}

func (idx *declarationIndex) resolve(from *SourceFile, ref string) (string, bool) {
	// Qualified reference: accept it only if something declares that FQN.
	if strings.Contains(ref, ".") {
		if _, ok := idx.byFQN[ref]; ok {
			return ref, true
		}
		return "", false
	}

	// Single-type imports shadow same-package declarations.
	for _, imp := range from.Imports {
		if imp.Wildcard {
			continue
		}
		if simpleName(imp.Path) == ref {
			if _, ok := idx.byFQN[imp.Path]; ok {
				return imp.Path, true
			}
			// Imported from outside the project: external, ignore.
			return "", false
		}
	}

	if fqn, ok := idx.byPackage[from.Package][ref]; ok {
		return fqn, true
	}

	for _, imp := range from.Imports {
		if !imp.Wildcard {
			continue
		}
		if fqn, ok := idx.byPackage[imp.Path][ref]; ok {
			return fqn, true
		}
	}

	return "", false
}

func simpleName(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}
