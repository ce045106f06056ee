package repo

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/nope/pkg/errors"
	"github.com/matzehuels/nope/pkg/repo/repotest"
)

func stage(t *testing.T, name, version string, requires ...string) string {
	t.Helper()
	dir := t.TempDir()
	repotest.WritePackage(t, dir, name, version, requires...)
	return dir
}

func TestInstall(t *testing.T) {
	root := t.TempDir()
	r := Open(root)

	src := stage(t, "A", "1.0", "B")
	if err := r.Install("A", "1.0", src); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if !r.HasVersion("A", "1.0") {
		t.Fatal("A 1.0 not installed")
	}
	if _, err := os.Stat(filepath.Join(root, "A", "1.0", "A", "__init__.py")); err != nil {
		t.Errorf("package files not installed: %v", err)
	}
	if entries, _ := os.ReadDir(src); len(entries) != 0 {
		t.Errorf("source not drained: %d entries left", len(entries))
	}
	reqs, err := r.ReadRequirements("A", "1.0")
	if err != nil || len(reqs) != 1 || reqs[0].Name != "B" {
		t.Errorf("ReadRequirements = %v, %v", reqs, err)
	}
	// No temp directories left behind.
	got, _ := r.ListVersions("A")
	if !slices.Equal(got, []string{"1.0"}) {
		t.Errorf("ListVersions = %v", got)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "A"))
	if len(entries) != 1 {
		t.Errorf("package dir has %d entries, want 1", len(entries))
	}
}

func TestInstallTwice(t *testing.T) {
	root := t.TempDir()
	r := Open(root)

	src := stage(t, "A", "1.0")
	if err := r.Install("A", "1.0", src); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	err := r.Install("A", "1.0", src)
	if !errors.Is(err, errors.ErrCodeAlreadyInstalled) {
		t.Fatalf("second Install err = %v, want ALREADY_INSTALLED", err)
	}

	// A fresh payload must not overwrite the existing install either.
	err = r.Install("A", "1.0", stage(t, "A", "1.0", "evil"))
	if !errors.Is(err, errors.ErrCodeAlreadyInstalled) {
		t.Fatalf("third Install err = %v, want ALREADY_INSTALLED", err)
	}
	reqs, err := r.ReadRequirements("A", "1.0")
	if err != nil || len(reqs) != 0 {
		t.Errorf("first installation corrupted: %v, %v", reqs, err)
	}
}

func TestInstallIntoEmptyVersionDir(t *testing.T) {
	root := t.TempDir()
	r := Open(root)
	if err := os.MkdirAll(filepath.Join(root, "A", "1.0"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := r.Install("A", "1.0", stage(t, "A", "1.0")); err != nil {
		t.Fatalf("Install over empty dir: %v", err)
	}
	if !r.Importable("A", "1.0") {
		t.Error("retry install did not populate version dir")
	}
}

func TestInstallRejectsBadInput(t *testing.T) {
	r := Open(t.TempDir())

	tests := []struct {
		name, pkg, version, src string
		code                    errors.Code
	}{
		{"traversal name", "../A", "1.0", t.TempDir(), errors.ErrCodeInvalidPackage},
		{"empty version", "A", "", t.TempDir(), errors.ErrCodeInvalidVersion},
		{"missing source", "A", "1.0", filepath.Join(t.TempDir(), "nope"), errors.ErrCodeFileNotFound},
		{"empty source", "A", "1.0", t.TempDir(), errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Install(tt.pkg, tt.version, tt.src); !errors.Is(err, tt.code) {
				t.Errorf("Install err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestScanStagingAndInstallDistribution(t *testing.T) {
	staging := t.TempDir()
	repotest.WritePackage(t, staging, "requests", "2.31.0", "idna (<4,>=2.5)")
	repotest.WritePackage(t, staging, "idna", "3.6")
	if err := os.MkdirAll(filepath.Join(staging, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Single-module distribution without top_level.txt.
	info := filepath.Join(staging, "six-1.16.0.dist-info")
	if err := os.MkdirAll(info, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(info, "METADATA"), []byte(repotest.Metadata("six", "1.16.0")), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staging, "six.py"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	dists, unclaimed, err := ScanStaging(staging)
	if err != nil {
		t.Fatalf("ScanStaging: %v", err)
	}
	if !slices.Equal(unclaimed, []string{"bin"}) {
		t.Errorf("unclaimed = %v, want [bin]", unclaimed)
	}
	byName := make(map[string]Distribution)
	for _, d := range dists {
		byName[d.Name] = d
	}
	if len(byName) != 3 {
		t.Fatalf("found %d distributions, want 3: %+v", len(byName), dists)
	}
	if d := byName["six"]; d.Version != "1.16.0" || !slices.Equal(d.Entries, []string{"six.py"}) {
		t.Errorf("six = %+v", d)
	}

	root := t.TempDir()
	r := Open(root)
	for _, d := range dists {
		if err := r.InstallDistribution(staging, d); err != nil {
			t.Fatalf("InstallDistribution(%s): %v", d.Name, err)
		}
	}
	for _, pin := range [][2]string{{"requests", "2.31.0"}, {"idna", "3.6"}, {"six", "1.16.0"}} {
		if !r.Importable(pin[0], pin[1]) {
			t.Errorf("%s %s not importable after install", pin[0], pin[1])
		}
	}
}

func TestInstalled(t *testing.T) {
	root := t.TempDir()
	r := Open(root)
	if r.Installed("A", "1.0") {
		t.Error("Installed before install")
	}
	if err := os.MkdirAll(filepath.Join(root, "A", "1.0"), 0o755); err != nil {
		t.Fatal(err)
	}
	if r.Installed("A", "1.0") {
		t.Error("empty version directory reported as installed")
	}
	if err := r.Install("A", "1.0", stage(t, "A", "1.0")); err != nil {
		t.Fatal(err)
	}
	if !r.Installed("A", "1.0") {
		t.Error("Installed = false after install")
	}
}

func TestInstallMatchesExistingSpelling(t *testing.T) {
	root := t.TempDir()
	r := Open(root)
	repotest.Add(t, root, "typing_extensions", "4.8.0")

	if !r.Installed("typing-extensions", "4.8.0") {
		t.Error("Installed(typing-extensions) = false, want true")
	}
	err := r.Install("Typing-Extensions", "4.8.0", stage(t, "typing_extensions", "4.8.0"))
	if !errors.Is(err, errors.ErrCodeAlreadyInstalled) {
		t.Errorf("Install under another spelling: err = %v, want ALREADY_INSTALLED", err)
	}
	if err := r.Install("typing-extensions", "4.9.0", stage(t, "typing_extensions", "4.9.0")); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "typing_extensions", "4.9.0")); err != nil {
		t.Errorf("new version not placed under the existing directory: %v", err)
	}
	if got := r.Canonical("Typing.Extensions"); got != "typing_extensions" {
		t.Errorf("Canonical = %q, want typing_extensions", got)
	}
	if got := r.Canonical("absent-pkg"); got != "absent-pkg" {
		t.Errorf("Canonical(unknown) = %q, want it unchanged", got)
	}
}
