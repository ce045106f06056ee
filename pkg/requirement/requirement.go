// Package requirement parses declared package requirements and tests
// candidate versions against them.
//
// A [Requirement] pairs a package name with a [Specifier]. The resolver only
// ever asks one question of it: [Requirement.Allows]. The syntax accepted
// here is the subset of PEP 508 that appears in dist-info Requires-Dist
// fields:
//
//	requests
//	requests (>=2.0,<3)
//	urllib3[socks]>=1.21.1,!=1.25.0; python_version >= "3.7"
//	pytest; extra == "test"
//
// Version comparison inside a specifier is segment-wise (numeric where both
// segments are integers). This is independent of candidate ordering, which
// the resolver keeps as plain descending string order.
package requirement

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nameRE   = regexp.MustCompile(`^\s*([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)`)
	extrasRE = regexp.MustCompile(`^\s*\[[^\]]*\]`)
	normRE   = regexp.MustCompile(`[-_.]+`)
)

// Requirement is a package name with an acceptance predicate over versions.
type Requirement struct {
	Name      string    // Package name as declared
	Specifier Specifier // Version constraint (empty accepts everything)
	Extras    []string  // Requested extras, informational only
	Marker    string    // Environment marker after ';' (may be empty)
}

// Allows reports whether version v satisfies the requirement's constraint.
func (r Requirement) Allows(v string) bool { return r.Specifier.Allows(v) }

// String renders the requirement in canonical PEP 508 form (without marker).
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	b.WriteString(r.Specifier.String())
	return b.String()
}

// Parse parses a single requirement string.
func Parse(s string) (Requirement, error) {
	var req Requirement
	body := s
	if i := strings.IndexByte(body, ';'); i >= 0 {
		req.Marker = strings.TrimSpace(body[i+1:])
		body = body[:i]
	}

	m := nameRE.FindStringSubmatch(body)
	if m == nil {
		return Requirement{}, fmt.Errorf("invalid requirement %q: missing package name", s)
	}
	req.Name = m[1]
	rest := body[len(m[0]):]

	if ex := extrasRE.FindString(rest); ex != "" {
		inner := strings.Trim(strings.TrimSpace(ex), "[]")
		for _, e := range strings.Split(inner, ",") {
			if e = strings.TrimSpace(e); e != "" {
				req.Extras = append(req.Extras, e)
			}
		}
		rest = rest[len(ex):]
	}

	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "@") {
		return Requirement{}, fmt.Errorf("invalid requirement %q: direct URL references are not supported", s)
	}
	if strings.HasPrefix(rest, "(") {
		if !strings.HasSuffix(rest, ")") {
			return Requirement{}, fmt.Errorf("invalid requirement %q: unbalanced parenthesis", s)
		}
		rest = rest[1 : len(rest)-1]
	}

	spec, err := ParseSpecifier(rest)
	if err != nil {
		return Requirement{}, fmt.Errorf("invalid requirement %q: %w", s, err)
	}
	req.Specifier = spec
	return req, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and
// static tables.
func MustParse(s string) Requirement {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// NormalizeName converts a package name to its canonical form following
// PEP 503: lowercase, with runs of '-', '_' and '.' collapsed to '-'.
func NormalizeName(name string) string {
	return normRE.ReplaceAllString(strings.ToLower(name), "-")
}
