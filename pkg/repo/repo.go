// Package repo implements the version-partitioned on-disk package store.
//
// A repository is a directory tree laid out as
//
//	<root>/<package>/<version>/<package>/...              package files
//	<root>/<package>/<version>/<package>-<version>.dist-info/METADATA
//
// A populated version directory is immutable: [Repository.Install] refuses
// to write into it. An existing but empty version directory is treated as
// the leftover of a crashed install and may be reused.
//
// Entries whose names start with '.' are reserved for in-flight installs and
// staging areas and are never reported as packages or versions.
package repo

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/nope/pkg/errors"
	"github.com/matzehuels/nope/pkg/requirement"
)

// Repository is a handle on a repository root. It holds no open resources
// and is cheap to copy around; all state lives on disk.
type Repository struct {
	root    string
	markers requirement.Environment
}

// Open returns a handle for the repository rooted at root. The directory
// does not need to exist yet; it is created by the first install.
func Open(root string) *Repository {
	return &Repository{root: filepath.Clean(root)}
}

// Root returns the repository root directory.
func (r *Repository) Root() string { return r.root }

// WithMarkers returns a copy of r whose ReadRequirements evaluates
// environment markers against env.
func (r *Repository) WithMarkers(env requirement.Environment) *Repository {
	return &Repository{root: r.root, markers: env}
}

// Canonical returns the directory name under which name is installed, which
// may differ from name in case or in '-', '_' and '.' separators. An unknown
// name is returned unchanged.
func (r *Repository) Canonical(name string) string {
	if dir, ok := r.lookup(name); ok {
		return dir
	}
	return name
}

// PackagePath returns the version directory for name at version. It does not
// check that the directory exists.
func (r *Repository) PackagePath(name, version string) string {
	return filepath.Join(r.root, name, version)
}

// ListPackages returns the names of all installed packages in ascending order.
// A missing root yields an empty list.
func (r *Repository) ListPackages() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read repository %s", r.root)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !hidden(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ListVersions returns the installed versions of name in descending
// lexicographic order. This is plain string ordering, not semantic version
// precedence: "1.10" sorts before "1.9".
//
// Returns an UNKNOWN_PACKAGE error if no directory exists for name.
func (r *Repository) ListVersions(name string) ([]string, error) {
	dir, ok := r.lookup(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownPackage, "package %s has no installed versions", name)
	}
	entries, err := os.ReadDir(filepath.Join(r.root, dir))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnknownPackage, err, "list versions of %s", name)
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() && !hidden(e.Name()) {
			versions = append(versions, e.Name())
		}
	}
	SortVersions(versions)
	return versions, nil
}

// SortVersions sorts versions in place in descending lexicographic order,
// the candidate order used by the resolver.
func SortVersions(versions []string) {
	slices.Sort(versions)
	slices.Reverse(versions)
}

// HasVersion reports whether name is installed at version.
func (r *Repository) HasVersion(name, version string) bool {
	dir, ok := r.lookup(name)
	if !ok {
		return false
	}
	info, err := os.Stat(filepath.Join(r.root, dir, version))
	return err == nil && info.IsDir()
}

// ReadRequirements loads the runtime requirements declared by an installed
// package version. Requirements whose environment marker is false for the
// repository's marker environment are skipped; without an environment only
// those gated on an extra are.
//
// Returns UNKNOWN_VERSION if the version is not installed and
// CORRUPT_METADATA if the dist-info metadata is missing or unparsable.
func (r *Repository) ReadRequirements(name, version string) ([]requirement.Requirement, error) {
	meta, err := r.ReadMetadata(name, version)
	if err != nil {
		return nil, err
	}
	reqs := make([]requirement.Requirement, 0, len(meta.RequiresDist))
	for _, line := range meta.RequiresDist {
		req, err := requirement.Parse(line)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCorruptMetadata, err, "%s %s", name, version)
		}
		ok, err := req.Applies(r.markers)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCorruptMetadata, err, "%s %s", name, version)
		}
		if !ok {
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// ReadMetadata loads the dist-info metadata of an installed package version.
func (r *Repository) ReadMetadata(name, version string) (*Metadata, error) {
	dir, ok := r.lookup(name)
	if !ok || !r.HasVersion(dir, version) {
		return nil, errors.New(errors.ErrCodeUnknownVersion, "%s %s is not installed", name, version)
	}
	return readDistInfo(filepath.Join(r.root, dir, version))
}

// Importable reports whether the installed version directory provides an
// importable top-level entry for name: a package directory or module named
// after the package, or one of the top-level names its dist-info declares.
func (r *Repository) Importable(name, version string) bool {
	vdir := r.PackagePath(name, version)
	if exists(filepath.Join(vdir, name)) || exists(filepath.Join(vdir, name+".py")) {
		return true
	}
	info, err := findDistInfo(vdir)
	if err != nil {
		return false
	}
	for _, top := range readTopLevel(filepath.Join(vdir, info)) {
		if exists(filepath.Join(vdir, top)) || exists(filepath.Join(vdir, top+".py")) {
			return true
		}
	}
	return false
}

// lookup maps a requested package name onto an existing directory name. The
// exact name wins; otherwise the first directory whose PEP 503 normalized
// name matches is used.
func (r *Repository) lookup(name string) (string, bool) {
	if name == "" || hidden(name) {
		return "", false
	}
	if info, err := os.Stat(filepath.Join(r.root, name)); err == nil && info.IsDir() {
		return name, true
	}
	names, err := r.ListPackages()
	if err != nil {
		return "", false
	}
	want := requirement.NormalizeName(name)
	for _, n := range names {
		if requirement.NormalizeName(n) == want {
			return n, true
		}
	}
	return "", false
}

func hidden(name string) bool { return strings.HasPrefix(name, ".") }

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
