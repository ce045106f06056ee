package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/nope/pkg/dag"
)

func pin(name, version string, row int) dag.Node {
	return dag.Node{ID: dag.PinID(name, version), Row: row, Meta: dag.Metadata{
		dag.MetaName:    name,
		dag.MetaVersion: version,
	}}
}

func sample(t *testing.T) *dag.DAG {
	t.Helper()
	g := dag.New(nil)
	for _, n := range []dag.Node{pin("app", "1.0", 0), pin("lib", "2.1", 1), pin("core", "1.2", 2)} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []dag.Edge{
		{From: "app@1.0", To: "lib@2.1", Meta: dag.Metadata{dag.MetaConstraint: "lib>=2"}},
		{From: "lib@2.1", To: "core@1.2"},
	} {
		if err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestToDOT_Basic(t *testing.T) {
	dot := ToDOT(sample(t), Options{})

	for _, want := range []string{
		"digraph G",
		`"app@1.0" [label="app 1.0", penwidth=2];`,
		`"lib@2.1" [label="lib 2.1"];`,
		`"app@1.0" -> "lib@2.1" [label="lib>=2"];`,
		`"lib@2.1" -> "core@1.2";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %s\n%s", want, dot)
		}
	}
}

func TestToDOT_NoEdgeLabels(t *testing.T) {
	dot := ToDOT(sample(t), Options{NoEdgeLabels: true})
	if strings.Contains(dot, "lib>=2") {
		t.Errorf("edge label present:\n%s", dot)
	}
}

func TestToDOT_Deterministic(t *testing.T) {
	if ToDOT(sample(t), Options{}) != ToDOT(sample(t), Options{}) {
		t.Error("ToDOT() output differs for equal graphs")
	}
}

func TestToDOT_Conflict(t *testing.T) {
	g := sample(t)
	if err := g.AddNode(pin("core", "0.9", 1)); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(dag.Edge{From: "app@1.0", To: "core@0.9"}); err != nil {
		t.Fatal(err)
	}

	dot := ToDOT(g, Options{})
	for _, id := range []string{`"core@1.2" [`, `"core@0.9" [`} {
		i := strings.Index(dot, id)
		if i < 0 {
			t.Fatalf("node %s missing", id)
		}
		line := dot[i : i+strings.Index(dot[i:], "\n")]
		if !strings.Contains(line, "#cc0000") {
			t.Errorf("conflicting node not highlighted: %s", line)
		}
	}
	if strings.Contains(dot, `"lib@2.1" [label="lib 2.1", fillcolor`) {
		t.Error("non-conflicting node highlighted")
	}
}

func TestFmtLabel_Detailed(t *testing.T) {
	n := pin("lib", "2.1", 2)
	n.Meta["summary"] = "a library"
	label := fmtLabel(dag.New(nil), n, true)

	if !strings.HasPrefix(label, "lib 2.1\n") {
		t.Errorf("fmtLabel() detailed should start with the pin: %q", label)
	}
	if !strings.Contains(label, "depth: 2") {
		t.Errorf("fmtLabel() detailed missing depth: %q", label)
	}
	if !strings.Contains(label, "summary: a library") {
		t.Errorf("fmtLabel() detailed missing metadata: %q", label)
	}
	if strings.Contains(label, "name:") {
		t.Errorf("fmtLabel() repeats the name: %q", label)
	}
}

func TestFmtLabel_DetailedEdges(t *testing.T) {
	g := sample(t)
	_ = g.AddNode(pin("cli", "0.3", 1))
	_ = g.AddEdge(dag.Edge{From: "app@1.0", To: "cli@0.3"})
	_ = g.AddEdge(dag.Edge{From: "cli@0.3", To: "core@1.2"})

	app, _ := g.Node("app@1.0")
	if label := fmtLabel(g, *app, true); !strings.Contains(label, "requires: 2") || strings.Contains(label, "required by") {
		t.Errorf("root label = %q", label)
	}
	core, _ := g.Node("core@1.2")
	if label := fmtLabel(g, *core, true); !strings.Contains(label, "required by: 2") || strings.Contains(label, "requires:") {
		t.Errorf("shared leaf label = %q", label)
	}
	if label := fmtLabel(g, *core, false); label != "core 1.2" {
		t.Errorf("plain label = %q", label)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "with viewBox",
			svg:  `<svg viewBox="10 20 800 600" xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.00 600.00" width="800" height="600">content</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
		},
		{
			name: "zero dimensions",
			svg:  `<svg viewBox="0 0 0 0">content</svg>`,
			want: `<svg viewBox="0 0 0 0">content</svg>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeViewBox([]byte(tt.svg))
			if string(got) != tt.want {
				t.Errorf("normalizeViewBox() = %q, want %q", string(got), tt.want)
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(sample(t), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG() output missing <svg> tag")
	}
}

func TestRenderSVG_InvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), `not valid DOT {{{`); err == nil {
		t.Error("RenderSVG() should return error for invalid DOT")
	}
}
