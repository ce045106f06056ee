package fetch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/nope/pkg/errors"
)

// fakePython writes an executable script standing in for the interpreter.
func fakePython(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script interpreter stub")
	}
	path := filepath.Join(t.TempDir(), "python")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPipArgs(t *testing.T) {
	p := &Pip{ExtraArgs: []string{"--index-url", "https://mirror.example/simple"}}
	got := p.Args("requests", "2.31.0", "/tmp/stage")
	want := []string{
		"-m", "pip", "install", "--no-input", "--target", "/tmp/stage",
		"--index-url", "https://mirror.example/simple",
		"requests==2.31.0",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Args = %v, want %v", got, want)
	}
}

func TestPipFetch(t *testing.T) {
	// $6 is the target directory, the last argument is the requirement.
	python := fakePython(t, `
dest="$6"
for last; do :; done
name="${last%%==*}"
ver="${last#*==}"
mkdir -p "$dest/$name" "$dest/$name-$ver.dist-info"
echo "Name: $name" > "$dest/$name-$ver.dist-info/METADATA"
echo "Successfully installed $name-$ver"
`)
	dest := t.TempDir()
	var out bytes.Buffer
	p := &Pip{Python: python, Output: &out}
	if err := p.Fetch(context.Background(), "A", "1.0", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "A-1.0.dist-info", "METADATA")); err != nil {
		t.Errorf("dist-info not created: %v", err)
	}
	if !strings.Contains(out.String(), "Successfully installed A-1.0") {
		t.Errorf("output = %q", out.String())
	}
}

func TestPipFetchFailure(t *testing.T) {
	python := fakePython(t, `
echo "ERROR: No matching distribution found for $7" >&2
exit 1
`)
	err := (&Pip{Python: python}).Fetch(context.Background(), "nosuch", "9.9", t.TempDir())
	if !errors.Is(err, errors.ErrCodeFetchFailed) {
		t.Fatalf("err = %v, want FETCH_FAILED", err)
	}
	if !strings.Contains(err.Error(), "No matching distribution") {
		t.Errorf("error lacks pip output: %v", err)
	}
}

func TestPipFetchMissingInterpreter(t *testing.T) {
	p := &Pip{Python: filepath.Join(t.TempDir(), "no-python")}
	if err := p.Fetch(context.Background(), "A", "1.0", t.TempDir()); !errors.Is(err, errors.ErrCodeFetchFailed) {
		t.Errorf("err = %v, want FETCH_FAILED", err)
	}
}

func TestTailBuffer(t *testing.T) {
	var b tailBuffer
	for i := range 30 {
		b.WriteString(strings.Repeat("x", i) + "\n")
	}
	lines := strings.Split(b.String(), "\n")
	if len(lines) != tailLines {
		t.Errorf("got %d lines, want %d", len(lines), tailLines)
	}
	if lines[len(lines)-1] != strings.Repeat("x", 29) {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
}

func TestMarkerEnvironment(t *testing.T) {
	// $1 is -c, $2 the script.
	python := fakePython(t, `
[ "$1" = "-c" ] || exit 2
echo '{"python_version": "3.11", "sys_platform": "linux", "platform_system": "Linux"}'
`)
	env, err := MarkerEnvironment(context.Background(), python)
	if err != nil {
		t.Fatalf("MarkerEnvironment: %v", err)
	}
	if env["python_version"] != "3.11" || env["platform_system"] != "Linux" {
		t.Errorf("env = %v", env)
	}
}

func TestMarkerEnvironmentErrors(t *testing.T) {
	tests := map[string]string{
		"exit status": "echo 'No module named json' >&2\nexit 1\n",
		"not json":    "echo 'Python 2.7'\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := MarkerEnvironment(context.Background(), fakePython(t, body))
			if !errors.Is(err, errors.ErrCodeFetchFailed) {
				t.Errorf("err = %v, want FETCH_FAILED", err)
			}
		})
	}
}
