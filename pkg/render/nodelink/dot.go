package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/nope/pkg/dag"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the selection depth and metadata in node labels.
	// When false, nodes show "name version".
	Detailed bool
	// NoEdgeLabels omits requirement text on edges.
	NoEdgeLabels bool
}

// ToDOT converts a resolution graph to Graphviz DOT format.
// Node IDs are emitted in graph insertion order and edges in the order they
// were added, so equal graphs give byte-identical output.
func ToDOT(g *dag.DAG, opts Options) string {
	conflicts := conflicting(g)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10, fontcolor=gray40];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		attrs := fmtAttrs(*n, fmtLabel(g, *n, opts.Detailed), conflicts[n.Name()])
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		c, _ := e.Meta[dag.MetaConstraint].(string)
		if opts.NoEdgeLabels || c == "" {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, c)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(g *dag.DAG, n dag.Node, detailed bool) string {
	label := n.Name() + " " + n.Version()
	if !detailed {
		return label
	}

	parts := []string{fmt.Sprintf("depth: %d", n.Row)}
	if c := len(g.Children(n.ID)); c > 0 {
		parts = append(parts, fmt.Sprintf("requires: %d", c))
	}
	if p := len(g.Parents(n.ID)); p > 1 {
		parts = append(parts, fmt.Sprintf("required by: %d", p))
	}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		if k == dag.MetaName || k == dag.MetaVersion {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n dag.Node, label string, conflict bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case conflict:
		attrs = append(attrs, "fillcolor=\"#f4cccc\"", "color=\"#cc0000\"")
	case n.Row == 0:
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

// conflicting returns the package names pinned at more than one version.
func conflicting(g *dag.DAG) map[string]bool {
	versions := make(map[string]int)
	for _, n := range g.Nodes() {
		versions[n.Name()]++
	}
	out := make(map[string]bool)
	for name, count := range versions {
		if count > 1 {
			out[name] = true
		}
	}
	return out
}

// RenderSVG lays out a DOT graph with Graphviz and returns SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized svg element with one sized
// from its viewBox so the image scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
