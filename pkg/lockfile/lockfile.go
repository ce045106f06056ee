// Package lockfile reads, merges, and writes nope lockfiles.
//
// A lockfile is a TOML document with one table mapping package names to
// pinned versions:
//
//	[packages]
//	requests = "2.31.0"
//	urllib3 = "2.0.7"
//
// Other top-level keys are carried through a load/save round-trip untouched.
package lockfile

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/nope/pkg/errors"
)

const packagesKey = "packages"

// Pin is a package name and its locked version.
type Pin struct {
	Name    string
	Version string
}

// LockFile is the in-memory form of a lockfile.
type LockFile struct {
	Packages map[string]string

	extra map[string]any // unknown top-level keys
}

// New returns an empty lockfile.
func New() *LockFile {
	return &LockFile{Packages: make(map[string]string)}
}

// Load reads the lockfile at path. A missing file is FILE_NOT_FOUND; a file
// that is not valid TOML or whose packages table holds anything but strings
// is INVALID_LOCKFILE.
func Load(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "lockfile %s", path)
		}
		return nil, fmt.Errorf("read lockfile %s: %w", path, err)
	}
	lf, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLock, err, "lockfile %s", path)
	}
	return lf, nil
}

// LoadOrEmpty is like [Load] but returns an empty lockfile if path does not
// exist.
func LoadOrEmpty(path string) (*LockFile, error) {
	lf, err := Load(path)
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		return New(), nil
	}
	return lf, err
}

// Parse decodes lockfile TOML.
func Parse(data []byte) (*LockFile, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, err
	}

	lf := New()
	for k, v := range doc {
		if k != packagesKey {
			if lf.extra == nil {
				lf.extra = make(map[string]any)
			}
			lf.extra[k] = v
			continue
		}
		table, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s must be a table, got %T", packagesKey, v)
		}
		for name, ver := range table {
			s, ok := ver.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("%s.%s: version must be a non-empty string", packagesKey, name)
			}
			lf.Packages[name] = s
		}
	}
	return lf, nil
}

// Marshal encodes the lockfile as TOML. Keys are written in sorted order.
func (lf *LockFile) Marshal() ([]byte, error) {
	doc := make(map[string]any, len(lf.extra)+1)
	maps.Copy(doc, lf.extra)
	doc[packagesKey] = lf.Packages
	if lf.Packages == nil {
		doc[packagesKey] = map[string]string{}
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the lockfile to path. The content is written to a temporary
// file in the same directory and renamed over path, so readers see either
// the old or the new file.
func (lf *LockFile) Save(path string) error {
	data, err := lf.Marshal()
	if err != nil {
		return fmt.Errorf("encode lockfile: %w", err)
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp lockfile: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp lockfile: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write temp lockfile: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("chmod temp lockfile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace lockfile %s: %w", path, err)
	}
	return nil
}

// Pins returns the locked pins sorted by name.
func (lf *LockFile) Pins() []Pin {
	names := slices.Sorted(maps.Keys(lf.Packages))
	pins := make([]Pin, len(names))
	for i, n := range names {
		pins[i] = Pin{Name: n, Version: lf.Packages[n]}
	}
	return pins
}

// Len returns the number of locked packages.
func (lf *LockFile) Len() int { return len(lf.Packages) }

// Clone returns a deep copy of the lockfile.
func (lf *LockFile) Clone() *LockFile {
	out := &LockFile{Packages: maps.Clone(lf.Packages)}
	if out.Packages == nil {
		out.Packages = make(map[string]string)
	}
	if lf.extra != nil {
		out.extra = maps.Clone(lf.extra)
	}
	return out
}

// PathFor returns the lockfile path for a program: "<program>-lock.toml"
// in dir, with a trailing ".py" stripped from the program's base name. An
// empty dir means the program's own directory.
func PathFor(program, dir string) string {
	if dir == "" {
		dir = filepath.Dir(program)
	}
	base := strings.TrimSuffix(filepath.Base(program), ".py")
	return filepath.Join(dir, base+"-lock.toml")
}
