package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nope/pkg/dag"
	"github.com/matzehuels/nope/pkg/errors"
	"github.com/matzehuels/nope/pkg/graph"
	"github.com/matzehuels/nope/pkg/render/nodelink"
	"github.com/matzehuels/nope/pkg/resolve"
)

// Output formats of the resolve and render commands.
const (
	formatText = "text"
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

// graphOptions holds the output flags shared by resolve and render.
type graphOptions struct {
	format   string
	asJSON   bool
	detailed bool
	output   string
}

func (o *graphOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", formatText, "output format: text, json, dot, svg")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "shorthand for --format json")
	cmd.Flags().BoolVar(&o.detailed, "detailed", false, "include depth and requirement counts in dot and svg node labels")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write to a file instead of stdout")
}

func (o *graphOptions) validate() error {
	if o.asJSON {
		o.format = formatJSON
	}
	switch o.format {
	case formatText, formatJSON, formatDOT, formatSVG:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want text, json, dot or svg)", o.format)
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts graphOptions

	cmd := &cobra.Command{
		Use:   "resolve <name> <version>",
		Short: "Print the pins a package version resolves to",
		Long: `Resolve a package version against the repository without touching any
lockfile. Pins are printed dependencies first, one "<name> <version>" per line.

Other formats write the resolved dependency graph instead: json for tools and
the render command, dot for Graphviz, svg for a rendered node-link diagram.
Packages selected at two different versions are highlighted in dot and svg
output.`,
		Example: `  nope resolve requests 2.31.0
  nope resolve --format json -o requests.json requests 2.31.0
  nope resolve --format svg requests 2.31.0 > requests.svg`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, version := args[0], args[1]
			if err := opts.validate(); err != nil {
				return err
			}

			prog := newProgress(loggerFromContext(cmd.Context()))
			res, err := c.newResolver(c.metadataRepository(cmd.Context())).Resolve(cmd.Context(), name, version)
			if err != nil {
				reportFailure(cmd.ErrOrStderr(), err)
				return err
			}
			prog.done(fmt.Sprintf("Resolved %s %s", name, version))

			if opts.format == formatText {
				var buf bytes.Buffer
				for _, p := range res.Distinct() {
					fmt.Fprintln(&buf, p)
				}
				return writeOutput(cmd, opts.output, buf.Bytes())
			}
			return writeGraph(cmd, res.Graph, opts)
		},
	}

	opts.register(cmd)
	return cmd
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts graphOptions

	cmd := &cobra.Command{
		Use:   "render <graph.json>",
		Short: "Render a saved resolution graph",
		Long: `Read a graph written by "nope resolve --format json" and print it in another
format. Text output lists the pins dependencies first.`,
		Example: `  nope render --format svg -o requests.svg requests.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			g, err := graph.ReadGraphFile(args[0])
			if err != nil {
				if stderrors.Is(err, os.ErrNotExist) {
					return errors.Wrap(errors.ErrCodeFileNotFound, err, "graph file %s", args[0])
				}
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "graph file %s", args[0])
			}

			if opts.format == formatText {
				order, err := g.TopoOrder()
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				for _, id := range order {
					n, _ := g.Node(id)
					fmt.Fprintln(&buf, n.Name(), n.Version())
				}
				return writeOutput(cmd, opts.output, buf.Bytes())
			}
			return writeGraph(cmd, g, opts)
		},
	}

	opts.register(cmd)
	return cmd
}

// writeGraph writes g in one of the graph formats.
func writeGraph(cmd *cobra.Command, g *dag.DAG, opts graphOptions) error {
	if opts.format == formatJSON && opts.output != "" {
		if err := graph.WriteGraphFile(g, opts.output); err != nil {
			return err
		}
		printFile(cmd.ErrOrStderr(), opts.output)
		return nil
	}
	data, err := renderGraph(cmd.Context(), g, opts)
	if err != nil {
		return err
	}
	return writeOutput(cmd, opts.output, data)
}

func renderGraph(ctx context.Context, g *dag.DAG, opts graphOptions) ([]byte, error) {
	switch opts.format {
	case formatJSON:
		var buf bytes.Buffer
		err := graph.WriteGraph(g, &buf)
		return buf.Bytes(), err
	case formatDOT:
		return []byte(nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed})), nil
	case formatSVG:
		return nodelink.RenderSVG(ctx, nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed}))
	}
	return nil, errors.New(errors.ErrCodeInternal, "no renderer for format %q", opts.format)
}

// writeOutput writes data to path, or to the command's stdout when path is
// empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	printFile(cmd.ErrOrStderr(), path)
	return nil
}

// reportFailure writes the explanation tree of an unsatisfied requirement.
// Other errors are left to the caller.
func reportFailure(w io.Writer, err error) {
	var unsat *resolve.UnsatisfiedError
	if stderrors.As(err, &unsat) {
		_ = resolve.FormatFailure(w, unsat)
	}
}
