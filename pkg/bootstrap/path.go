// Package bootstrap turns a lockfile into the ordered list of versioned
// directories a Python process must search before its default module path.
//
// A [Path] has an explicit lifecycle: [Path.Init] starts a fresh list,
// [Path.Add] locates every pin of a lockfile in the repository roots, and
// [Path.Commit] freezes the list. A pin that cannot be located is a hard
// error; a process must not start with a missing pinned dependency.
package bootstrap

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/nope/pkg/errors"
	"github.com/matzehuels/nope/pkg/lockfile"
)

// EnvPythonPath is the variable the interpreter reads extra search
// directories from.
const EnvPythonPath = "PYTHONPATH"

// Path accumulates versioned directories for one process.
type Path struct {
	roots     []string
	dirs      []string
	committed bool
}

// NewPath returns a Path searching roots in order; the first root holding a
// pin wins.
func NewPath(roots ...string) *Path {
	p := &Path{roots: roots}
	p.Init()
	return p
}

// Roots returns the repository roots in search order.
func (p *Path) Roots() []string { return p.roots }

// Init discards collected directories and reopens the path for Add.
func (p *Path) Init() {
	p.dirs = nil
	p.committed = false
}

// Locate returns the first <root>/<name>/<version> directory that contains
// an importable <name> (a package directory or a <name>.py module).
func (p *Path) Locate(name, version string) (string, bool) {
	for _, root := range p.roots {
		dir := filepath.Join(root, name, version)
		if exists(filepath.Join(dir, name)) || exists(filepath.Join(dir, name+".py")) {
			return dir, true
		}
	}
	return "", false
}

// Add locates every pin of lf, in name order, and appends its directory.
// The first pin that cannot be located fails with UNRESOLVED_PIN and nothing
// is appended.
func (p *Path) Add(lf *lockfile.LockFile) error {
	if p.committed {
		return errors.New(errors.ErrCodeInternal, "bootstrap path already committed")
	}
	var dirs []string
	for _, pin := range lf.Pins() {
		dir, ok := p.Locate(pin.Name, pin.Version)
		if !ok {
			return errors.New(errors.ErrCodeUnresolvedPin, "%s %s is pinned but not installed in any of: %s",
				pin.Name, pin.Version, strings.Join(p.roots, ", "))
		}
		dirs = append(dirs, dir)
	}
	p.dirs = append(p.dirs, dirs...)
	return nil
}

// Commit freezes the path and returns the directories in the order they
// must be searched. Add and Commit fail after Commit until Init is called.
func (p *Path) Commit() ([]string, error) {
	if p.committed {
		return nil, errors.New(errors.ErrCodeInternal, "bootstrap path already committed")
	}
	p.committed = true
	return append([]string(nil), p.dirs...), nil
}

// Bootstrap loads the lockfile at lockPath and resolves it against roots.
func Bootstrap(lockPath string, roots []string) ([]string, error) {
	lf, err := lockfile.Load(lockPath)
	if err != nil {
		return nil, err
	}
	p := NewPath(roots...)
	if err := p.Add(lf); err != nil {
		return nil, err
	}
	return p.Commit()
}

// Environ returns a copy of env with dirs prepended to PYTHONPATH, ahead of
// any existing entries.
func Environ(env []string, dirs []string) []string {
	out := make([]string, 0, len(env)+1)
	var existing string
	found := false
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, EnvPythonPath+"="); ok {
			existing, found = v, true
			continue
		}
		out = append(out, kv)
	}

	parts := append([]string(nil), dirs...)
	if found && existing != "" {
		parts = append(parts, existing)
	}
	if len(parts) == 0 && !found {
		return out
	}
	return append(out, EnvPythonPath+"="+strings.Join(parts, string(os.PathListSeparator)))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
