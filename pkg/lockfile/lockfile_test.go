package lockfile

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/nope/pkg/errors"
)

func TestAddPin(t *testing.T) {
	tests := []struct {
		name     string
		existing map[string]string
		version  string
		force    bool
		want     Outcome
		wantErr  bool
		wantLock string
	}{
		{name: "absent", existing: nil, version: "1.0", want: Added, wantLock: "1.0"},
		{name: "same version", existing: map[string]string{"A": "1.0"}, version: "1.0", want: Unchanged, wantLock: "1.0"},
		{name: "conflict", existing: map[string]string{"A": "1.0"}, version: "2.0", wantErr: true, wantLock: "1.0"},
		{name: "forced", existing: map[string]string{"A": "1.0"}, version: "2.0", force: true, want: Replaced, wantLock: "2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf := New()
			for k, v := range tt.existing {
				lf.Packages[k] = v
			}
			got, err := lf.AddPin("A", tt.version, tt.force)
			if tt.wantErr {
				var conflict *ConflictError
				if !stderrors.As(err, &conflict) {
					t.Fatalf("err = %v, want *ConflictError", err)
				}
				if conflict.Existing != "1.0" || conflict.Attempted != "2.0" {
					t.Errorf("conflict = %+v", conflict)
				}
				if !errors.Is(err, errors.ErrCodeConflictingPin) {
					t.Errorf("code = %s", errors.GetCode(err))
				}
			} else if err != nil {
				t.Fatalf("AddPin: %v", err)
			} else if got != tt.want {
				t.Errorf("outcome = %v, want %v", got, tt.want)
			}
			if lf.Packages["A"] != tt.wantLock {
				t.Errorf("locked = %q, want %q", lf.Packages["A"], tt.wantLock)
			}
		})
	}
}

func TestAddPinEmptyVersionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	_, _ = New().AddPin("A", "", false)
}

func TestMergeAllOrNothing(t *testing.T) {
	lf := New()
	lf.Packages["B"] = "1.0"

	_, err := lf.Merge([]Pin{{"A", "1.0"}, {"B", "2.0"}, {"C", "3.0"}}, false)
	if !errors.Is(err, errors.ErrCodeConflictingPin) {
		t.Fatalf("Merge err = %v, want CONFLICTING_PIN", err)
	}
	if len(lf.Packages) != 1 || lf.Packages["B"] != "1.0" {
		t.Errorf("lock mutated by failed merge: %v", lf.Packages)
	}

	changes, err := lf.Merge([]Pin{{"A", "1.0"}, {"B", "2.0"}, {"A", "1.0"}}, true)
	if err != nil {
		t.Fatalf("forced Merge: %v", err)
	}
	var outcomes []Outcome
	for _, c := range changes {
		outcomes = append(outcomes, c.Outcome)
	}
	if !slices.Equal(outcomes, []Outcome{Added, Replaced, Unchanged}) {
		t.Errorf("outcomes = %v", outcomes)
	}
	if changes[1].Previous != "1.0" {
		t.Errorf("Previous = %q", changes[1].Previous)
	}
	if !slices.Equal(lf.Pins(), []Pin{{"A", "1.0"}, {"B", "2.0"}}) {
		t.Errorf("Pins = %v", lf.Pins())
	}
}

func TestMergeCrossBranchConflict(t *testing.T) {
	// The same package resolved to two versions along different branches.
	_, err := New().Merge([]Pin{{"D", "2.0"}, {"B", "1.0"}, {"D", "1.0"}, {"A", "1.0"}}, false)
	var conflict *ConflictError
	if !stderrors.As(err, &conflict) || conflict.Name != "D" {
		t.Fatalf("err = %v, want conflict on D", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app-lock.toml")
	lf := New()
	lf.Packages["requests"] = "2.31.0"
	lf.Packages["idna"] = "3.6"
	if err := lf.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "[packages]\nidna = \"3.6\"\nrequests = \"2.31.0\"\n"
	if string(data) != want {
		t.Errorf("file =\n%s\nwant\n%s", data, want)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(got.Pins(), lf.Pins()) {
		t.Errorf("Pins = %v, want %v", got.Pins(), lf.Pins())
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestRoundTripPreservesUnknownKeys(t *testing.T) {
	src := `generator = "nope"

[packages]
A = "1.0"

[meta]
python = "3.12"
`
	lf, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := lf.AddPin("B", "2.0", false); err != nil {
		t.Fatal(err)
	}
	out, err := lf.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, out)
	}
	if again.Packages["A"] != "1.0" || again.Packages["B"] != "2.0" {
		t.Errorf("packages = %v", again.Packages)
	}
	for _, want := range []string{`generator = "nope"`, "[meta]", `python = "3.12"`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output lost %q:\n%s", want, out)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.toml")
	if _, err := Load(missing); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	lf, err := LoadOrEmpty(missing)
	if err != nil || lf.Len() != 0 {
		t.Errorf("LoadOrEmpty = %v, %v", lf, err)
	}

	for name, content := range map[string]string{
		"syntax":     "[packages\n",
		"not-table":  "packages = 3\n",
		"non-string": "[packages]\nA = 1\n",
		"empty":      "[packages]\nA = \"\"\n",
	} {
		path := filepath.Join(dir, name+".toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidLock) {
			t.Errorf("%s: err = %v, want INVALID_LOCKFILE", name, err)
		}
	}
}

func TestPathFor(t *testing.T) {
	tests := []struct {
		program, dir, want string
	}{
		{"/srv/app/main.py", "", "/srv/app/main-lock.toml"},
		{"/srv/app/main.py", "/etc/nope", "/etc/nope/main-lock.toml"},
		{"tool", "locks", "locks/tool-lock.toml"},
		{"scripts/run.sh", "", "scripts/run.sh-lock.toml"},
	}
	for _, tt := range tests {
		if got := PathFor(tt.program, tt.dir); got != filepath.FromSlash(tt.want) {
			t.Errorf("PathFor(%q, %q) = %q, want %q", tt.program, tt.dir, got, tt.want)
		}
	}
}
