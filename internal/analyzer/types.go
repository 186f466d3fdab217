// # internal/analyzer/types.go
package analyzer

import "time"

// SourceFile is the parse result for one .java compilation unit.
type SourceFile struct {
	Path     string
	Package  string // declared package, empty for the default package
	Imports  []Import
	Types    []TypeDecl
	ParsedAt time.Time
}

// Import is a single import declaration.
type Import struct {
	Path     string // com.acme.util.Lists, or com.acme.util for a wildcard
	Wildcard bool
	Static   bool
	Location Location
}

// TypeDecl is one type declaration. Nested types are flattened into their
// own entries under javac binary naming (Outer, Outer$Inner).
type TypeDecl struct {
	Name        string // binary name without the package prefix
	Kind        TypeKind
	Annotations []string // annotation names as written, without '@'
	References  []string // referenced type names, unresolved
	// HasAccessibleConstants is set when the type declares a non-private
	// static final field with a literal initializer. javac inlines such
	// constants into consumers without leaving a reference, so the type's
	// impact cannot be enumerated.
	HasAccessibleConstants bool
	Location               Location
}

type TypeKind int

const (
	KindClass TypeKind = iota
	KindInterface
	KindEnum
	KindRecord
	KindAnnotation
)

func (k TypeKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindRecord:
		return "record"
	case KindAnnotation:
		return "annotation"
	default:
		return "unknown"
	}
}

type Location struct {
	File   string
	Line   int
	Column int
}

// FQN returns the fully qualified binary name of a type declared in this
// file.
func (f *SourceFile) FQN(decl TypeDecl) string {
	if f.Package == "" {
		return decl.Name
	}
	return f.Package + "." + decl.Name
}
