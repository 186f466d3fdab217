// # internal/analyzer/java.go
package analyzer

import (
	"time"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// javaExtractor walks a tree-sitter parse tree and flattens it into a
// SourceFile. Nested type declarations become separate TypeDecl entries
// with $-joined binary names; references and constant fields attach to the
// innermost enclosing type.
type javaExtractor struct {
	source []byte
	path   string

	file  *SourceFile
	stack []int // indexes into file.Types of the enclosing declarations
}

func (e *javaExtractor) extract(root *sitter.Node) *SourceFile {
	e.file = &SourceFile{
		Path:     e.path,
		ParsedAt: time.Now(),
	}
	e.walk(root)
	return e.file
}

func (e *javaExtractor) walk(node *sitter.Node) {
	switch node.Kind() {
	case "package_declaration":
		e.extractPackage(node)
		return
	case "import_declaration":
		e.extractImport(node)
		return
	case "class_declaration":
		e.extractType(node, KindClass)
		return
	case "interface_declaration":
		e.extractType(node, KindInterface)
		return
	case "enum_declaration":
		e.extractType(node, KindEnum)
		return
	case "record_declaration":
		e.extractType(node, KindRecord)
		return
	case "annotation_type_declaration":
		e.extractType(node, KindAnnotation)
		return
	case "field_declaration", "constant_declaration":
		e.extractField(node)
	case "type_identifier":
		e.addReference(e.getText(node))
	case "method_invocation":
		// Static calls like Util.parse() reference Util through a plain
		// identifier. The uppercase-initial convention is the best signal
		// available at source level.
		if object := node.ChildByFieldName("object"); object != nil && object.Kind() == "identifier" {
			if name := e.getText(object); startsUpper(name) {
				e.addReference(name)
			}
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i))
	}
}

func (e *javaExtractor) extractPackage(node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "scoped_identifier" || child.Kind() == "identifier" {
			e.file.Package = e.getText(child)
		}
	}
}

func (e *javaExtractor) extractImport(node *sitter.Node) {
	imp := Import{Location: e.getLocation(node)}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "scoped_identifier", "identifier":
			imp.Path = e.getText(child)
		case "asterisk":
			imp.Wildcard = true
		case "static":
			imp.Static = true
		}
	}

	if imp.Path != "" {
		e.file.Imports = append(e.file.Imports, imp)
	}
}

func (e *javaExtractor) extractType(node *sitter.Node, kind TypeKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		// Anonymous or malformed declaration: keep walking so references
		// inside still attach to the enclosing type.
		for i := uint(0); i < node.ChildCount(); i++ {
			e.walk(node.Child(i))
		}
		return
	}

	name := e.getText(nameNode)
	if outer := e.current(); outer != nil {
		name = outer.Name + "$" + name
	}

	decl := TypeDecl{
		Name:     name,
		Kind:     kind,
		Location: e.getLocation(node),
	}
	e.collectAnnotations(node, &decl)

	e.file.Types = append(e.file.Types, decl)
	idx := len(e.file.Types) - 1

	e.stack = append(e.stack, idx)
	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i))
	}
	e.stack = e.stack[:len(e.stack)-1]
}

func (e *javaExtractor) collectAnnotations(node *sitter.Node, decl *TypeDecl) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "modifiers" {
			continue
		}
		for j := uint(0); j < child.ChildCount(); j++ {
			mod := child.Child(j)
			if mod.Kind() == "marker_annotation" || mod.Kind() == "annotation" {
				if nameNode := mod.ChildByFieldName("name"); nameNode != nil {
					name := e.getText(nameNode)
					decl.Annotations = append(decl.Annotations, name)
					// Changing the annotation type invalidates annotated
					// classes, so it counts as a reference too.
					decl.References = append(decl.References, name)
				}
			}
		}
	}
}

func (e *javaExtractor) extractField(node *sitter.Node) {
	current := e.current()
	if current == nil {
		return
	}
	if e.isAccessibleConstant(node, current.Kind) {
		current.HasAccessibleConstants = true
	}
}

// isAccessibleConstant reports whether the field is a compile-time constant
// visible outside its class: non-private static final with a literal
// initializer. Interface and annotation members are implicitly public
// static final, so the modifier check is skipped for them.
func (e *javaExtractor) isAccessibleConstant(node *sitter.Node, enclosing TypeKind) bool {
	implicit := enclosing == KindInterface || enclosing == KindAnnotation

	isStatic := implicit
	isFinal := implicit
	isPrivate := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "modifiers" {
			continue
		}
		for j := uint(0); j < child.ChildCount(); j++ {
			switch child.Child(j).Kind() {
			case "static":
				isStatic = true
			case "final":
				isFinal = true
			case "private":
				isPrivate = true
			}
		}
	}

	if !isStatic || !isFinal || isPrivate {
		return false
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "variable_declarator" {
			continue
		}
		if value := child.ChildByFieldName("value"); value != nil && isLiteral(value.Kind()) {
			return true
		}
	}
	return false
}

func isLiteral(kind string) bool {
	switch kind {
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal",
		"binary_integer_literal", "decimal_floating_point_literal",
		"hex_floating_point_literal", "string_literal", "character_literal",
		"true", "false":
		return true
	}
	return false
}

func (e *javaExtractor) addReference(name string) {
	current := e.current()
	if current == nil || name == "" {
		return
	}
	current.References = append(current.References, name)
}

func (e *javaExtractor) current() *TypeDecl {
	if len(e.stack) == 0 {
		return nil
	}
	return &e.file.Types[e.stack[len(e.stack)-1]]
}

func (e *javaExtractor) getText(node *sitter.Node) string {
	return string(e.source[node.StartByte():node.EndByte()])
}

func (e *javaExtractor) getLocation(node *sitter.Node) Location {
	return Location{
		File:   e.path,
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
