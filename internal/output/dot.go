// # internal/output/dot.go
package output

import (
	"fmt"
	"strings"

	"recompile/internal/deps"
)

type DOTGenerator struct {
	graph *deps.Graph
}

func NewDOTGenerator(g *deps.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

// Generate renders the dependents graph. Classes in affected are drawn
// highlighted, typically the current recompilation plan.
func (d *DOTGenerator) Generate(affected []string) (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph dependents {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	affectedSet := make(map[string]bool, len(affected))
	for _, class := range affected {
		affectedSet[class] = true
	}

	for _, class := range d.graph.Classes() {
		entry := d.graph.DependentsOf(class)
		switch {
		case entry.UnboundedImpact():
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\\n(affects everything)\", fillcolor=\"mistyrose\", color=\"red\", style=\"rounded,filled\", penwidth=2.0];\n", class, class))
		case affectedSet[class]:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"lightyellow\", color=\"darkorange\", style=\"rounded,filled\"];\n", class, class))
		default:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", color=\"darkslategrey\"];\n", class, class))
		}
	}
	buf.WriteString("\n")

	// Edges point from a class to the classes its change invalidates.
	// Unbounded classes draw their recorded edges too.
	for _, class := range d.graph.Classes() {
		entry := d.graph.DependentsOf(class)
		for _, dependent := range entry.DirectDependents() {
			if affectedSet[class] && affectedSet[dependent] {
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"darkorange\", penwidth=1.8];\n", class, dependent))
			} else {
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"grey\"];\n", class, dependent))
			}
		}
	}

	buf.WriteString("\n  subgraph cluster_legend {\n")
	buf.WriteString("    label=\"Legend\";\n")
	buf.WriteString("    style=dashed;\n")
	buf.WriteString("    legend_class [label=\"Class\", style=\"rounded\"];\n")
	buf.WriteString("    legend_affected [label=\"Needs Recompile\", fillcolor=\"lightyellow\", color=\"darkorange\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_unbounded [label=\"Unbounded Impact\", fillcolor=\"mistyrose\", color=\"red\", style=\"rounded,filled\"];\n")
	buf.WriteString("  }\n")

	buf.WriteString("}\n")

	return buf.String(), nil
}
