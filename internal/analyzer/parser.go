// # internal/analyzer/parser.go
package analyzer

import (
	"errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// Parser turns Java source text into SourceFile parse results. It holds the
// grammar only; each Parse call builds and discards its own tree-sitter
// parser, so a single Parser is safe to share.
type Parser struct {
	language *sitter.Language
}

func NewParser() *Parser {
	return &Parser{language: sitter.NewLanguage(tree_sitter_java.Language())}
}

func (p *Parser) Parse(path string, content []byte) (*SourceFile, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(p.language); err != nil {
		return nil, err
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New("parse failed")
	}
	defer tree.Close()

	e := &javaExtractor{source: content, path: path}
	return e.extract(tree.RootNode()), nil
}
