// Package resolve computes the pinned dependency set of an installed package.
//
// Resolution is a depth-first, backtracking search over the versions present
// in a repository. For each requirement the installed versions are tried in
// descending lexicographic order; the first candidate whose own requirements
// resolve completely wins. A failing candidate is recorded and the next one is
// tried. Once a requirement is satisfied its choice is final: siblings never
// cause it to be revisited, and the same package reached along two branches
// is resolved independently on each.
//
// The pin sequence lists every subtree's dependencies before the package
// itself, with earlier requirements before later ones, and ends with the root.
// For fixed repository contents the sequence is always the same.
//
//	res, err := resolve.New(repo.Open("repo"), resolve.Options{}).Resolve(ctx, "app", "1.0")
//	var unsat *resolve.UnsatisfiedError
//	if errors.As(err, &unsat) {
//	    resolve.FormatFailure(os.Stderr, err)
//	}
package resolve

import (
	"context"
	stderrors "errors"
	"iter"
	"strings"

	"github.com/matzehuels/nope/pkg/dag"
	"github.com/matzehuels/nope/pkg/errors"
	"github.com/matzehuels/nope/pkg/requirement"
)

// DefaultMaxDepth bounds the length of a requirement chain.
const DefaultMaxDepth = 100

// Source is the view of a package repository the resolver needs.
// [*repo.Repository] implements it.
type Source interface {
	// ListVersions returns installed versions in descending candidate order,
	// or an UNKNOWN_PACKAGE error.
	ListVersions(name string) ([]string, error)
	// ReadRequirements returns the runtime requirements of an installed
	// version in declaration order.
	ReadRequirements(name, version string) ([]requirement.Requirement, error)
	// Canonical returns the name the package is stored under. Pins carry
	// this name, not the spelling used by a requirement.
	Canonical(name string) string
}

// Options configures resolution behavior.
type Options struct {
	MaxDepth int                  // Maximum requirement chain length (default: 100)
	Logger   func(string, ...any) // Candidate trace callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Pin is a resolved (package, version) pair.
type Pin struct {
	Name    string
	Version string
}

func (p Pin) String() string { return p.Name + " " + p.Version }

// Result is a successful resolution.
type Result struct {
	// Pins in emission order: dependencies before dependents, the root last.
	// A package required along several branches appears once per branch.
	Pins []Pin
	// Graph has one node per distinct pin and one edge per satisfied
	// requirement.
	Graph *dag.DAG
}

// Root returns the pin that was resolved.
func (r *Result) Root() Pin { return r.Pins[len(r.Pins)-1] }

// Distinct returns Pins with exact duplicates removed, keeping the first
// occurrence of each.
func (r *Result) Distinct() []Pin {
	seen := make(map[Pin]bool, len(r.Pins))
	out := make([]Pin, 0, len(r.Pins))
	for _, p := range r.Pins {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Resolver resolves packages against a [Source]. It holds no state between
// calls; each Resolve reruns the whole search.
type Resolver struct {
	src  Source
	opts Options
}

// New returns a Resolver reading from src.
func New(src Source, opts Options) *Resolver {
	return &Resolver{src: src, opts: opts.WithDefaults()}
}

// Resolve computes the pins for name at version.
//
// A failure to read the root's own requirements (UNKNOWN_VERSION,
// CORRUPT_METADATA) is returned as is. If one of its requirements cannot be
// satisfied the error is an [*UnsatisfiedError] describing every candidate
// that was tried. Context cancellation and repository I/O errors abort the
// search immediately.
func (r *Resolver) Resolve(ctx context.Context, name, version string) (*Result, error) {
	s := &search{
		Resolver: r,
		ctx:      ctx,
		onPath:   make(map[Pin]bool),
	}
	root, err := s.resolve(Pin{Name: r.src.Canonical(name), Version: version}, 0)
	if err != nil {
		return nil, err
	}
	return &Result{Pins: root.pins(nil), Graph: root.graph()}, nil
}

// Pins returns an iterator over the pins of name at version. The search runs
// to completion when iteration starts; on failure the iterator yields a
// single zero Pin with the error.
func (r *Resolver) Pins(ctx context.Context, name, version string) iter.Seq2[Pin, error] {
	return func(yield func(Pin, error) bool) {
		res, err := r.Resolve(ctx, name, version)
		if err != nil {
			yield(Pin{}, err)
			return
		}
		for _, p := range res.Pins {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// subtree is a resolved pin and the subtrees chosen for its requirements.
type subtree struct {
	pin      Pin
	req      string // requirement text that selected this pin; empty for the root
	children []*subtree
}

func (t *subtree) pins(acc []Pin) []Pin {
	for _, c := range t.children {
		acc = c.pins(acc)
	}
	return append(acc, t.pin)
}

func (t *subtree) graph() *dag.DAG {
	g := dag.New(nil)
	var walk func(t *subtree, depth int)
	walk = func(t *subtree, depth int) {
		id := dag.PinID(t.pin.Name, t.pin.Version)
		if _, ok := g.Node(id); !ok {
			_ = g.AddNode(dag.Node{ID: id, Row: depth, Meta: dag.Metadata{
				dag.MetaName:    t.pin.Name,
				dag.MetaVersion: t.pin.Version,
			}})
		}
		for _, c := range t.children {
			walk(c, depth+1)
			_ = g.AddEdge(dag.Edge{
				From: id,
				To:   dag.PinID(c.pin.Name, c.pin.Version),
				Meta: dag.Metadata{dag.MetaConstraint: c.req},
			})
		}
	}
	walk(t, 0)
	return g
}

// search is the state of one Resolve call.
type search struct {
	*Resolver
	ctx    context.Context
	onPath map[Pin]bool
}

// resolve resolves one pin. The returned error is either a candidate failure
// (see recoverable) or fatal.
func (s *search) resolve(p Pin, depth int) (*subtree, error) {
	key := Pin{Name: requirement.NormalizeName(p.Name), Version: p.Version}
	if s.onPath[key] {
		return nil, errors.New(errors.ErrCodeCyclic, "requirement cycle through %s", p)
	}
	if depth > s.opts.MaxDepth {
		return nil, errors.New(errors.ErrCodeCyclic, "requirement chain through %s exceeds %d levels", p, s.opts.MaxDepth)
	}

	reqs, err := s.src.ReadRequirements(p.Name, p.Version)
	if err != nil {
		return nil, err
	}

	s.onPath[key] = true
	defer delete(s.onPath, key)

	t := &subtree{pin: p}
	for _, req := range reqs {
		child, err := s.satisfy(p, req, depth+1)
		if err != nil {
			return nil, err
		}
		t.children = append(t.children, child)
	}
	return t, nil
}

// satisfy finds the first candidate for req whose subtree resolves.
func (s *search) satisfy(dependent Pin, req requirement.Requirement, depth int) (*subtree, error) {
	unsat := &UnsatisfiedError{
		Requirement: req,
		Dependent:   dependent,
		Failures:    make(map[Candidate]error),
	}

	versions, err := s.src.ListVersions(req.Name)
	if errors.Is(err, errors.ErrCodeUnknownPackage) {
		unsat.Failures[Candidate{Name: req.Name}] = err
		return nil, unsat
	}
	if err != nil {
		return nil, err
	}

	name := s.src.Canonical(req.Name)
	matched := false
	for _, v := range versions {
		if !req.Allows(v) {
			continue
		}
		matched = true
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}

		s.opts.Logger("trying %s %s for %s", name, v, dependent)
		child, err := s.resolve(Pin{Name: name, Version: v}, depth)
		if err == nil {
			child.req = req.String()
			return child, nil
		}
		if !recoverable(err) {
			return nil, err
		}
		s.opts.Logger("rejected %s %s: %v", req.Name, v, err)
		unsat.Failures[Candidate{Name: req.Name, Version: v}] = err
	}

	if !matched {
		unsat.Failures[Candidate{Name: req.Name}] = errors.New(errors.ErrCodeUnsatisfied,
			"no installed version satisfies %s (installed: %s)", req, joinVersions(versions))
	}
	return nil, unsat
}

// recoverable reports whether err fails only the candidate being tried.
func recoverable(err error) bool {
	var unsat *UnsatisfiedError
	if stderrors.As(err, &unsat) {
		return true
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeCyclic, errors.ErrCodeCorruptMetadata, errors.ErrCodeUnknownVersion:
		return true
	}
	return false
}

func joinVersions(vs []string) string {
	if len(vs) == 0 {
		return "none"
	}
	return strings.Join(vs, ", ")
}
