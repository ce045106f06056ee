package repo

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/matzehuels/nope/pkg/errors"
)

// Install moves the contents of sourceDir into <root>/<name>/<version>/.
//
// The entries are first moved into a hidden sibling directory and then
// renamed into place, so a reader never observes a half-populated version
// directory. This narrows but does not close the window for two processes
// installing the same version concurrently; concurrent writers are not
// supported.
//
// Returns ALREADY_INSTALLED if the version directory exists and is
// non-empty. An existing empty version directory is replaced. On failure the
// moved entries are returned to sourceDir where possible.
func (r *Repository) Install(name, version, sourceDir string) error {
	if err := errors.ValidatePackageName(name); err != nil {
		return err
	}
	if err := errors.ValidateVersion(version); err != nil {
		return err
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "source directory %s", sourceDir)
		}
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "read source directory %s", sourceDir)
	}

	target := r.PackagePath(r.Canonical(name), version)
	if err := checkTarget(target, name, version); err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "source directory %s is empty", sourceDir)
	}
	pkgDir := filepath.Dir(target)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", pkgDir, err)
	}

	tmp := filepath.Join(pkgDir, fmt.Sprintf(".%s.%s.tmp", version, uuid.NewString()))
	if err := os.Mkdir(tmp, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	var moved []string
	rollback := func() {
		for _, n := range moved {
			_ = move(filepath.Join(tmp, n), filepath.Join(sourceDir, n))
		}
		_ = os.RemoveAll(tmp)
	}

	for _, e := range entries {
		if err := move(filepath.Join(sourceDir, e.Name()), filepath.Join(tmp, e.Name())); err != nil {
			rollback()
			return fmt.Errorf("stage %s: %w", e.Name(), err)
		}
		moved = append(moved, e.Name())
	}

	// Re-check: another process may have populated the target meanwhile.
	if err := checkTarget(target, name, version); err != nil {
		rollback()
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		rollback()
		return fmt.Errorf("remove empty %s: %w", target, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		rollback()
		return fmt.Errorf("commit %s: %w", target, err)
	}
	return nil
}

// InstallDistribution installs one distribution found in a staging directory
// by [ScanStaging]: its top-level entries and its dist-info directory.
func (r *Repository) InstallDistribution(staging string, d Distribution) error {
	src := filepath.Join(staging, fmt.Sprintf(".%s-%s.%s", d.Name, d.Version, uuid.NewString()))
	if err := os.Mkdir(src, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", src, err)
	}
	defer os.RemoveAll(src)

	for _, entry := range append([]string{d.InfoDir}, d.Entries...) {
		if err := move(filepath.Join(staging, entry), filepath.Join(src, entry)); err != nil {
			return fmt.Errorf("collect %s: %w", entry, err)
		}
	}
	return r.Install(d.Name, d.Version, src)
}

// Installed reports whether name at version already has a non-empty version
// directory, the condition under which Install fails with ALREADY_INSTALLED.
// Names are matched like ListVersions matches them.
func (r *Repository) Installed(name, version string) bool {
	target := r.PackagePath(r.Canonical(name), version)
	return errors.Is(checkTarget(target, name, version), errors.ErrCodeAlreadyInstalled)
}

// checkTarget fails with ALREADY_INSTALLED if target is a non-empty directory.
func checkTarget(target, name, version string) error {
	f, err := os.Open(target)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspect %s: %w", target, err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err == io.EOF {
		return nil
	} else if err != nil {
		return fmt.Errorf("inspect %s: %w", target, err)
	}
	return errors.New(errors.ErrCodeAlreadyInstalled, "%s %s is already installed at %s", name, version, target)
}

// move renames src to dst, falling back to copy-and-delete when the two are
// on different filesystems.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := copyTree(src, dst); err != nil {
		_ = os.RemoveAll(dst)
		return err
	}
	return os.RemoveAll(src)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(out, info.Mode().Perm())
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, out)
		default:
			return copyFile(path, out, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
