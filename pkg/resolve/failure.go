package resolve

import (
	stderrors "errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/nope/pkg/errors"
	"github.com/matzehuels/nope/pkg/requirement"
)

// Candidate identifies an attempted (package, version). An empty Version
// stands for the package as a whole: it has no installed versions, or none
// of them matches the constraint.
type Candidate struct {
	Name    string
	Version string
}

func (c Candidate) String() string {
	if c.Version == "" {
		return c.Name
	}
	return c.Name + " " + c.Version
}

// UnsatisfiedError reports that no installed candidate satisfied a
// requirement. Failures maps every attempted candidate to the reason it was
// rejected; a reason may itself be an *UnsatisfiedError, which makes the
// failures a tree.
type UnsatisfiedError struct {
	Requirement requirement.Requirement
	Dependent   Pin // Package whose requirement failed
	Failures    map[Candidate]error
}

func (e *UnsatisfiedError) Error() string {
	return fmt.Sprintf("%s: %s requires %s: %s", errors.ErrCodeUnsatisfied, e.Dependent, e.Requirement, e.summary())
}

// ErrorCode implements [errors.Coder].
func (e *UnsatisfiedError) ErrorCode() errors.Code { return errors.ErrCodeUnsatisfied }

// Candidates returns the attempted candidates in the order they were tried.
func (e *UnsatisfiedError) Candidates() []Candidate {
	cands := slices.Collect(maps.Keys(e.Failures))
	slices.SortFunc(cands, func(a, b Candidate) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		// Descending: the order candidates are tried in.
		return strings.Compare(b.Version, a.Version)
	})
	return cands
}

func (e *UnsatisfiedError) summary() string {
	if len(e.Failures) == 1 {
		for c, err := range e.Failures {
			if c.Version == "" {
				return errors.UserMessage(err)
			}
		}
	}
	return fmt.Sprintf("%d candidate(s) rejected", len(e.Failures))
}

// FormatFailure writes the explanation tree of a resolution failure to w.
// Errors other than [*UnsatisfiedError] are written as a single line.
//
//	app 1.0 requires lib>=2
//	  lib 2.1: rejected
//	    lib 2.1 requires core<1
//	      core: no installed version satisfies core<1 (installed: 1.2)
//	  lib 2.0: CORRUPT_METADATA ...
func FormatFailure(w io.Writer, err error) error {
	var unsat *UnsatisfiedError
	if !stderrors.As(err, &unsat) {
		_, werr := fmt.Fprintln(w, err)
		return werr
	}
	var b strings.Builder
	writeTree(&b, unsat, 0)
	_, werr := io.WriteString(w, b.String())
	return werr
}

func writeTree(b *strings.Builder, e *UnsatisfiedError, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s requires %s\n", indent, e.Dependent, e.Requirement)
	for _, c := range e.Candidates() {
		reason := e.Failures[c]
		var nested *UnsatisfiedError
		if stderrors.As(reason, &nested) {
			fmt.Fprintf(b, "%s  %s: rejected\n", indent, c)
			writeTree(b, nested, depth+2)
			continue
		}
		fmt.Fprintf(b, "%s  %s: %s\n", indent, c, errors.UserMessage(reason))
	}
}
