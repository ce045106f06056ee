// Package dag provides the directed graph the resolver records its selections
// in.
//
// Nodes are package pins identified as "name@version"; an edge A→B means the
// pinned version of A required B and the resolver chose the pinned version of
// B to satisfy it. Each node carries the depth at which it was first selected
// in [Node.Row] (0 for the root), which gives a stable top-down reading order.
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: dag.PinID("app", "1.0"), Row: 0})
//	g.AddNode(dag.Node{ID: dag.PinID("lib", "2.1"), Row: 1})
//	g.AddEdge(dag.Edge{From: "app@1.0", To: "lib@2.1"})
//
// The same pin reached along several paths is a single node with several
// parents. [DAG.Validate] reports a cycle if one slipped through.
package dag

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrInvalidEdgeEndpoint is returned by [DAG.Validate] when an edge
	// references a node that doesn't exist.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrGraphHasCycle is returned by [DAG.Validate] when a cycle is detected
	// using depth-first search with white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes or edges.
// Metadata maps are never nil once added to a graph.
type Metadata map[string]any

// Well-known metadata keys.
const (
	MetaName       = "name"       // node: package name
	MetaVersion    = "version"    // node: pinned version
	MetaConstraint = "constraint" // edge: requirement text that selected the child
)

// Node is a pinned package version.
type Node struct {
	ID   string   // "name@version"
	Row  int      // Depth at which the pin was first selected
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Name returns the package name stored in the node metadata, falling back
// to the part of the ID before '@'.
func (n Node) Name() string {
	if s, ok := n.Meta[MetaName].(string); ok {
		return s
	}
	name, _ := SplitPinID(n.ID)
	return name
}

// Version returns the pinned version stored in the node metadata, falling
// back to the part of the ID after '@'.
func (n Node) Version() string {
	if s, ok := n.Meta[MetaVersion].(string); ok {
		return s
	}
	_, version := SplitPinID(n.ID)
	return version
}

// Edge is a directed requirement between two pins.
type Edge struct {
	From string   // Requiring pin ID
	To   string   // Selected pin ID
	Meta Metadata // Arbitrary key-value metadata (never nil after AddEdge)
}

// DAG is a directed acyclic graph of pins.
//
// The zero value is not usable; use [New]. DAG is not safe for concurrent
// use without external synchronization.
type DAG struct {
	nodes    map[string]*Node
	order    []string // insertion order
	edges    []Edge
	outgoing map[string][]string
	incoming map[string][]string
	meta     Metadata
}

// New creates an empty DAG with optional graph-level metadata.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		meta:     meta,
	}
}

// PinID formats the node ID for name at version.
func PinID(name, version string) string { return name + "@" + version }

// SplitPinID splits a node ID produced by [PinID]. Versions never contain
// '@', so the last '@' is the separator.
func SplitPinID(id string) (name, version string) {
	i := strings.LastIndexByte(id, '@')
	if i < 0 {
		return id, ""
	}
	return id[:i], id[i+1:]
}

// Meta returns the graph-level metadata map.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode adds a node to the graph. Returns ErrInvalidNodeID if the node ID
// is empty, or ErrDuplicateNodeID if a node with the same ID already exists.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	d.nodes[n.ID] = &n
	d.order = append(d.order, n.ID)
	return nil
}

// AddEdge adds a directed edge between two existing nodes. A repeated edge
// between the same nodes is ignored.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(d.outgoing[e.From], e.To) {
		return nil
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// Nodes returns all nodes in insertion order. The returned slice contains
// pointers to the actual node structs.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, 0, len(d.order))
	for _, id := range d.order {
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Children returns the IDs of the pins this node requires, in the order the
// requirements were declared. The returned slice should not be modified.
func (d *DAG) Children(id string) []string { return d.outgoing[id] }

// Parents returns the IDs of the pins that require this node. The returned
// slice should not be modified.
func (d *DAG) Parents(id string) []string { return d.incoming[id] }

// Node returns the node with the given ID and true, or nil and false.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Sources returns nodes with no incoming edges, in insertion order.
func (d *DAG) Sources() []*Node {
	var sources []*Node
	for _, id := range d.order {
		if len(d.incoming[id]) == 0 {
			sources = append(sources, d.nodes[id])
		}
	}
	return sources
}

// Validate checks that all edges reference existing nodes and that the graph
// is acyclic. Returns ErrInvalidEdgeEndpoint or ErrGraphHasCycle.
func (d *DAG) Validate() error {
	for _, e := range d.edges {
		if _, ok := d.nodes[e.From]; !ok {
			return ErrInvalidEdgeEndpoint
		}
		if _, ok := d.nodes[e.To]; !ok {
			return ErrInvalidEdgeEndpoint
		}
	}
	return d.detectCycles()
}

func (d *DAG) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range d.outgoing[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for _, id := range slices.Sorted(maps.Keys(d.nodes)) {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// TopoOrder returns node IDs ordered so that every pin appears after all the
// pins it requires (leaves first). Ties keep insertion order. Returns
// ErrGraphHasCycle if no such order exists.
func (d *DAG) TopoOrder() ([]string, error) {
	pending := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		pending[id] = len(d.outgoing[id])
	}

	out := make([]string, 0, len(d.nodes))
	done := make(map[string]bool, len(d.nodes))
	for len(out) < len(d.nodes) {
		progressed := false
		for _, id := range d.order {
			if done[id] || pending[id] > 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for _, p := range d.incoming[id] {
				pending[p]--
			}
			progressed = true
		}
		if !progressed {
			return nil, ErrGraphHasCycle
		}
	}
	return out, nil
}
