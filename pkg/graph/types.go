// Package graph provides the serialization format for resolution graphs.
//
// Graphs use a simple node-link JSON format:
//
//	{
//	  "root": "app@1.0",
//	  "nodes": [{"id": "app@1.0", "name": "app", "version": "1.0"}, ...],
//	  "edges": [{"from": "app@1.0", "to": "lib@2.1", "constraint": "lib>=2"}]
//	}
//
// Use [FromDAG]/[ToDAG] to convert between the wire format and [dag.DAG].
package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/nope/pkg/dag"
)

// Graph is the canonical serialization format for resolution graphs.
type Graph struct {
	Root  string `json:"root,omitempty"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a serialized pin.
type Node struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Depth   int            `json:"depth,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Edge is a serialized requirement edge.
type Edge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Constraint string `json:"constraint,omitempty"`
}

// FromDAG converts a DAG to its serialization format. Nodes are sorted by
// ID and edges by endpoints for deterministic output. The root is the first
// source node, if any.
func FromDAG(g *dag.DAG) Graph {
	nodes := g.Nodes()
	out := Graph{
		Nodes: make([]Node, 0, len(nodes)),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}
	if sources := g.Sources(); len(sources) > 0 {
		out.Root = sources[0].ID
	}

	slices.SortFunc(nodes, func(a, b *dag.Node) int { return strings.Compare(a.ID, b.ID) })
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, Node{
			ID:      n.ID,
			Name:    n.Name(),
			Version: n.Version(),
			Depth:   n.Row,
			Meta:    cleanMeta(n.Meta),
		})
	}

	edges := g.Edges()
	slices.SortFunc(edges, func(a, b dag.Edge) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	for _, e := range edges {
		c, _ := e.Meta[dag.MetaConstraint].(string)
		out.Edges = append(out.Edges, Edge{From: e.From, To: e.To, Constraint: c})
	}
	return out
}

// ToDAG converts a Graph to a DAG. Returns an error if a node is duplicated,
// an edge references a missing node, or the edges form a cycle.
func ToDAG(gj Graph) (*dag.DAG, error) {
	d := dag.New(nil)

	for _, nj := range gj.Nodes {
		meta := dag.Metadata{}
		maps.Copy(meta, nj.Meta)
		if nj.Name != "" {
			meta[dag.MetaName] = nj.Name
		}
		if nj.Version != "" {
			meta[dag.MetaVersion] = nj.Version
		}
		if err := d.AddNode(dag.Node{ID: nj.ID, Row: nj.Depth, Meta: meta}); err != nil {
			return nil, fmt.Errorf("add node %s: %w", nj.ID, err)
		}
	}

	for _, ej := range gj.Edges {
		e := dag.Edge{From: ej.From, To: ej.To}
		if ej.Constraint != "" {
			e.Meta = dag.Metadata{dag.MetaConstraint: ej.Constraint}
		}
		if err := d.AddEdge(e); err != nil {
			return nil, fmt.Errorf("add edge %s→%s: %w", ej.From, ej.To, err)
		}
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return d, nil
}

// cleanMeta returns a copy of metadata without the keys promoted to Node
// fields. Returns nil if nothing is left.
func cleanMeta(m dag.Metadata) map[string]any {
	var out map[string]any
	for k, v := range m {
		if k == dag.MetaName || k == dag.MetaVersion {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}
