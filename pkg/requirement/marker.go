package requirement

import (
	"fmt"
	"runtime"
	"strings"
)

// Environment holds the values of PEP 508 marker variables for one
// interpreter, keyed by variable name ("python_version", "sys_platform",
// ...).
//
// A comparison against a variable missing from the environment is true, so
// an empty Environment keeps every requirement except those gated on an
// extra. The "extra" variable always defaults to the empty string.
type Environment map[string]string

// Marker variables whose values compare as versions.
var versionVars = map[string]bool{
	"python_version":         true,
	"python_full_version":    true,
	"implementation_version": true,
}

// HostEnvironment returns the platform variables that can be derived from
// the operating system alone. Interpreter variables are absent.
func HostEnvironment() Environment {
	env := Environment{
		"os_name":         "posix",
		"sys_platform":    runtime.GOOS,
		"platform_system": strings.ToUpper(runtime.GOOS[:1]) + runtime.GOOS[1:],
	}
	switch runtime.GOOS {
	case "windows":
		env["os_name"] = "nt"
		env["sys_platform"] = "win32"
	case "darwin":
		env["platform_system"] = "Darwin"
	case "freebsd":
		env["platform_system"] = "FreeBSD"
		env["sys_platform"] = "freebsd"
	}
	return env
}

// Applies reports whether the requirement is active in env. A requirement
// without a marker always applies.
func (r Requirement) Applies(env Environment) (bool, error) {
	if r.Marker == "" {
		return true, nil
	}
	return EvaluateMarker(r.Marker, env)
}

// EvaluateMarker evaluates a PEP 508 environment marker such as
//
//	python_version < "3.8" and (sys_platform == "win32" or extra == "test")
func EvaluateMarker(marker string, env Environment) (bool, error) {
	toks, err := tokenizeMarker(marker)
	if err != nil {
		return false, err
	}
	p := &markerParser{toks: toks, env: env}
	ok, err := p.or()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, fmt.Errorf("marker %q: unexpected %q", marker, p.toks[p.pos].text)
	}
	return ok, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func tokenizeMarker(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("marker %q: unterminated string", s)
			}
			toks = append(toks, token{tokString, s[i+1 : i+1+end]})
			i += end + 2
		case strings.IndexByte("<>=!~", c) >= 0:
			j := i
			for j < len(s) && strings.IndexByte("<>=!~", s[j]) >= 0 {
				j++
			}
			toks = append(toks, token{tokOp, s[i:j]})
			i = j
		case isIdentByte(c):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, s[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("marker %q: unexpected character %q", s, c)
		}
	}
	return toks, nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

type markerParser struct {
	toks []token
	pos  int
	env  Environment
}

func (p *markerParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *markerParser) keyword(word string) bool {
	if t, ok := p.peek(); ok && t.kind == tokIdent && t.text == word {
		p.pos++
		return true
	}
	return false
}

// or and and evaluate every operand so syntax errors surface regardless of
// short-circuiting.
func (p *markerParser) or() (bool, error) {
	result, err := p.and()
	if err != nil {
		return false, err
	}
	for p.keyword("or") {
		rhs, err := p.and()
		if err != nil {
			return false, err
		}
		result = result || rhs
	}
	return result, nil
}

func (p *markerParser) and() (bool, error) {
	result, err := p.atom()
	if err != nil {
		return false, err
	}
	for p.keyword("and") {
		rhs, err := p.atom()
		if err != nil {
			return false, err
		}
		result = result && rhs
	}
	return result, nil
}

func (p *markerParser) atom() (bool, error) {
	t, ok := p.peek()
	if !ok {
		return false, fmt.Errorf("marker ends unexpectedly")
	}
	if t.kind == tokLParen {
		p.pos++
		v, err := p.or()
		if err != nil {
			return false, err
		}
		if t, ok := p.peek(); !ok || t.kind != tokRParen {
			return false, fmt.Errorf("marker: missing ')'")
		}
		p.pos++
		return v, nil
	}

	lhs, err := p.value()
	if err != nil {
		return false, err
	}
	op, err := p.operator()
	if err != nil {
		return false, err
	}
	rhs, err := p.value()
	if err != nil {
		return false, err
	}
	return compareMarker(lhs, op, rhs), nil
}

// markerValue is a resolved operand. known is false for a variable the
// environment does not define.
type markerValue struct {
	text    string
	known   bool
	version bool
}

func (p *markerParser) value() (markerValue, error) {
	t, ok := p.peek()
	if !ok {
		return markerValue{}, fmt.Errorf("marker ends unexpectedly")
	}
	p.pos++
	switch t.kind {
	case tokString:
		return markerValue{text: t.text, known: true}, nil
	case tokIdent:
		v, ok := p.env[t.text]
		if !ok && t.text == "extra" {
			v, ok = "", true
		}
		return markerValue{text: v, known: ok, version: versionVars[t.text]}, nil
	}
	return markerValue{}, fmt.Errorf("marker: expected a variable or string, got %q", t.text)
}

func (p *markerParser) operator() (string, error) {
	t, ok := p.peek()
	if !ok {
		return "", fmt.Errorf("marker ends unexpectedly")
	}
	p.pos++
	switch {
	case t.kind == tokOp:
		for _, op := range operators {
			if t.text == string(op) {
				return t.text, nil
			}
		}
	case t.kind == tokIdent && t.text == "in":
		return "in", nil
	case t.kind == tokIdent && t.text == "not":
		if p.keyword("in") {
			return "not in", nil
		}
	}
	return "", fmt.Errorf("marker: unknown operator %q", t.text)
}

func compareMarker(lhs markerValue, op string, rhs markerValue) bool {
	if !lhs.known || !rhs.known {
		return true
	}
	switch op {
	case "in":
		return strings.Contains(rhs.text, lhs.text)
	case "not in":
		return !strings.Contains(rhs.text, lhs.text)
	}
	if lhs.version || rhs.version {
		if c, err := parseClause(op + rhs.text); err == nil {
			return c.Allows(lhs.text)
		}
	}
	switch Operator(op) {
	case OpEqual, OpArbitrary:
		return lhs.text == rhs.text
	case OpNotEqual:
		return lhs.text != rhs.text
	case OpLess:
		return lhs.text < rhs.text
	case OpLessEq:
		return lhs.text <= rhs.text
	case OpGreater:
		return lhs.text > rhs.text
	case OpGreaterEq:
		return lhs.text >= rhs.text
	}
	return false
}
