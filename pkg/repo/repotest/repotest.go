// Package repotest builds repository fixtures for tests.
package repotest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Add installs a fake package version under root in the repository layout:
// a package directory with an __init__.py and a dist-info directory whose
// METADATA declares requires as Requires-Dist lines. It returns the version
// directory.
func Add(t testing.TB, root, name, version string, requires ...string) string {
	t.Helper()
	vdir := filepath.Join(root, name, version)
	WritePackage(t, vdir, name, version, requires...)
	return vdir
}

// WritePackage writes the package files and dist-info for name at version
// directly into dir, the layout a fetcher leaves in a staging directory.
func WritePackage(t testing.TB, dir, name, version string, requires ...string) {
	t.Helper()
	pkg := filepath.Join(dir, name)
	mkdir(t, pkg)
	write(t, filepath.Join(pkg, "__init__.py"), fmt.Sprintf("__version__ = %q\n", version))

	info := filepath.Join(dir, fmt.Sprintf("%s-%s.dist-info", name, version))
	mkdir(t, info)
	write(t, filepath.Join(info, "METADATA"), Metadata(name, version, requires...))
	write(t, filepath.Join(info, "top_level.txt"), name+"\n")
}

// Metadata renders a minimal METADATA document.
func Metadata(name, version string, requires ...string) string {
	var b strings.Builder
	b.WriteString("Metadata-Version: 2.1\n")
	fmt.Fprintf(&b, "Name: %s\n", name)
	fmt.Fprintf(&b, "Version: %s\n", version)
	fmt.Fprintf(&b, "Summary: test fixture for %s\n", name)
	for _, r := range requires {
		fmt.Fprintf(&b, "Requires-Dist: %s\n", r)
	}
	b.WriteString("\nLong description body.\n")
	return b.String()
}

func mkdir(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
}

func write(t testing.TB, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
