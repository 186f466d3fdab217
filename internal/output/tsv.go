// # internal/output/tsv.go
package output

import (
	"fmt"
	"strings"

	"recompile/internal/deps"
)

type TSVGenerator struct {
	graph *deps.Graph
}

func NewTSVGenerator(g *deps.Graph) *TSVGenerator {
	return &TSVGenerator{graph: g}
}

// Generate emits one row per recorded dependent edge. Unbounded classes
// additionally get a row with a * dependent: their recorded edges are only
// a partial view of the impact.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("Class\tDependent\n")

	for _, class := range t.graph.Classes() {
		entry := t.graph.DependentsOf(class)
		if entry.UnboundedImpact() {
			buf.WriteString(fmt.Sprintf("%s\t*\n", class))
		}
		for _, dependent := range entry.DirectDependents() {
			buf.WriteString(fmt.Sprintf("%s\t%s\n", class, dependent))
		}
	}

	return buf.String(), nil
}

// GeneratePlan emits the recompilation plan: one class per row with the
// source file that declares it, or a single full-rebuild marker row.
func (t *TSVGenerator) GeneratePlan(fullRebuild bool, classes []string, filesByClass map[string]string) (string, error) {
	var buf strings.Builder

	buf.WriteString("Class\tFile\n")
	if fullRebuild {
		buf.WriteString("*\t*\n")
		return buf.String(), nil
	}

	for _, class := range classes {
		buf.WriteString(fmt.Sprintf("%s\t%s\n", class, filesByClass[class]))
	}

	return buf.String(), nil
}
