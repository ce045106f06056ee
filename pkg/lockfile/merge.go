package lockfile

import (
	"fmt"

	"github.com/matzehuels/nope/pkg/errors"
)

// Outcome describes what AddPin did to the lockfile.
type Outcome int

const (
	// Added means the package was not locked before.
	Added Outcome = iota
	// Unchanged means the package was already locked at the same version.
	Unchanged
	// Replaced means force overwrote a different locked version.
	Replaced
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Unchanged:
		return "unchanged"
	case Replaced:
		return "replaced"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ConflictError reports an attempt to lock a package at a version other
// than the one already locked, without force.
type ConflictError struct {
	Name      string
	Existing  string
	Attempted string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s is locked at %s, refusing to lock %s (use --force to override)",
		errors.ErrCodeConflictingPin, e.Name, e.Existing, e.Attempted)
}

// ErrorCode implements [errors.Coder].
func (e *ConflictError) ErrorCode() errors.Code { return errors.ErrCodeConflictingPin }

// Change records the effect of one pin in a merge.
type Change struct {
	Pin
	Outcome  Outcome
	Previous string // Version locked before a Replaced change
}

// AddPin locks name at version.
//
//   - name not locked: it is added.
//   - name locked at version: nothing changes; the Unchanged outcome lets
//     the caller warn.
//   - name locked at another version: a *ConflictError unless force is set,
//     in which case the entry is replaced.
//
// An empty version is a programming error and panics.
func (lf *LockFile) AddPin(name, version string, force bool) (Outcome, error) {
	if version == "" {
		panic(fmt.Sprintf("lockfile: empty version for %q", name))
	}
	if lf.Packages == nil {
		lf.Packages = make(map[string]string)
	}
	existing, ok := lf.Packages[name]
	switch {
	case !ok:
		lf.Packages[name] = version
		return Added, nil
	case existing == version:
		return Unchanged, nil
	case !force:
		return Unchanged, &ConflictError{Name: name, Existing: existing, Attempted: version}
	default:
		lf.Packages[name] = version
		return Replaced, nil
	}
}

// Merge adds every pin in order. If any pin conflicts, the lockfile is left
// exactly as it was and the first conflict is returned.
func (lf *LockFile) Merge(pins []Pin, force bool) ([]Change, error) {
	work := lf.Clone()
	changes := make([]Change, 0, len(pins))
	for _, p := range pins {
		prev := work.Packages[p.Name]
		outcome, err := work.AddPin(p.Name, p.Version, force)
		if err != nil {
			return nil, err
		}
		c := Change{Pin: p, Outcome: outcome}
		if outcome == Replaced {
			c.Previous = prev
		}
		changes = append(changes, c)
	}
	lf.Packages = work.Packages
	return changes, nil
}
