// Package nodelink renders resolved dependency graphs as node-link diagrams.
//
// [ToDOT] produces Graphviz DOT source with one box per pin and one arrow per
// selected requirement, labelled with the requirement text. Packages pinned
// at more than one version in the same graph are filled red, since a single
// lockfile can hold only one of them. [RenderSVG] lays the DOT out in
// process with [github.com/goccy/go-graphviz].
//
//	res, _ := resolver.Resolve(ctx, "app", "1.0")
//	dot := nodelink.ToDOT(res.Graph, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
package nodelink
