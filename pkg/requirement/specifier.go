package requirement

import (
	"fmt"
	"strings"
)

// Operator is a version comparison operator.
type Operator string

// Supported operators, longest first so prefix matching is unambiguous.
const (
	OpArbitrary  Operator = "==="
	OpCompatible Operator = "~="
	OpEqual      Operator = "=="
	OpNotEqual   Operator = "!="
	OpGreaterEq  Operator = ">="
	OpLessEq     Operator = "<="
	OpGreater    Operator = ">"
	OpLess       Operator = "<"
)

var operators = []Operator{
	OpArbitrary, OpCompatible, OpEqual, OpNotEqual,
	OpGreaterEq, OpLessEq, OpGreater, OpLess,
}

// Clause is one comparison inside a specifier, e.g. ">=1.2".
type Clause struct {
	Op      Operator
	Version string
}

// String renders the clause.
func (c Clause) String() string { return string(c.Op) + c.Version }

// Allows reports whether v satisfies the clause.
func (c Clause) Allows(v string) bool {
	switch c.Op {
	case OpArbitrary:
		return v == c.Version
	case OpEqual:
		if prefix, ok := strings.CutSuffix(c.Version, ".*"); ok {
			return hasPrefix(v, prefix)
		}
		return Compare(v, c.Version) == 0
	case OpNotEqual:
		if prefix, ok := strings.CutSuffix(c.Version, ".*"); ok {
			return !hasPrefix(v, prefix)
		}
		return Compare(v, c.Version) != 0
	case OpGreaterEq:
		return Compare(v, c.Version) >= 0
	case OpLessEq:
		return Compare(v, c.Version) <= 0
	case OpGreater:
		return Compare(v, c.Version) > 0
	case OpLess:
		return Compare(v, c.Version) < 0
	case OpCompatible:
		segs := strings.Split(c.Version, ".")
		return Compare(v, c.Version) >= 0 && hasPrefix(v, strings.Join(segs[:len(segs)-1], "."))
	}
	return false
}

// Specifier is a conjunction of clauses. The zero value accepts every
// version.
type Specifier []Clause

// Allows reports whether v satisfies every clause.
func (s Specifier) Allows(v string) bool {
	for _, c := range s {
		if !c.Allows(v) {
			return false
		}
	}
	return true
}

// String renders the specifier as a comma-separated clause list.
func (s Specifier) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// ParseSpecifier parses a comma-separated list of clauses. An empty or
// all-whitespace string yields an empty specifier.
func ParseSpecifier(s string) (Specifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var spec Specifier
	for _, part := range strings.Split(s, ",") {
		c, err := parseClause(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		spec = append(spec, c)
	}
	return spec, nil
}

func parseClause(s string) (Clause, error) {
	for _, op := range operators {
		if v, ok := strings.CutPrefix(s, string(op)); ok {
			v = strings.TrimSpace(v)
			if v == "" {
				return Clause{}, fmt.Errorf("clause %q: missing version", s)
			}
			if strings.HasSuffix(v, ".*") && op != OpEqual && op != OpNotEqual {
				return Clause{}, fmt.Errorf("clause %q: wildcard only allowed with == and !=", s)
			}
			if op == OpCompatible && !strings.Contains(v, ".") {
				return Clause{}, fmt.Errorf("clause %q: ~= needs at least two release segments", s)
			}
			return Clause{Op: op, Version: v}, nil
		}
	}
	return Clause{}, fmt.Errorf("clause %q: unknown operator", s)
}

// Compare compares two versions segment by segment. Segments are split on
// '.'; two all-digit segments compare numerically, anything else compares
// as strings. Missing trailing segments count as "0", so "1.0" == "1.0.0".
func Compare(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < max(len(as), len(bs)); i++ {
		x, y := "0", "0"
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if c := compareSegment(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(x, y string) int {
	if isDigits(x) && isDigits(y) {
		x, y = strings.TrimLeft(x, "0"), strings.TrimLeft(y, "0")
		if len(x) != len(y) {
			if len(x) < len(y) {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(x, y)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// hasPrefix reports whether v's leading segments equal prefix's segments.
func hasPrefix(v, prefix string) bool {
	vs, ps := strings.Split(v, "."), strings.Split(prefix, ".")
	for i, p := range ps {
		x := "0"
		if i < len(vs) {
			x = vs[i]
		}
		if compareSegment(x, p) != 0 {
			return false
		}
	}
	return true
}
