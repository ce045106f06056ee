package repo

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/nope/pkg/errors"
)

// distInfoRE splits "<name>-<version>.dist-info". Distribution names never
// contain '-' once the installer has escaped them, so the first '-' is the
// separator.
var distInfoRE = regexp.MustCompile(`^(.+?)-(.+)\.dist-info$`)

// Distribution is one package found in a staging directory written by the
// external fetcher.
type Distribution struct {
	Name    string   // Distribution name taken from the dist-info directory
	Version string   // Version taken from the dist-info directory
	InfoDir string   // Name of the dist-info directory
	Entries []string // Top-level staging entries belonging to the distribution
}

// ScanStaging groups the entries of a fetcher staging directory into
// distributions. Each dist-info directory yields one [Distribution]; its
// entries are the staging entries named in top_level.txt (falling back to
// the distribution name), matched either exactly or as "<name>.<ext>"
// modules.
//
// Entries claimed by no distribution (console scripts in bin/, caches) are
// returned as unclaimed; callers usually just report them.
func ScanStaging(dir string) (dists []Distribution, unclaimed []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read staging directory %s", dir)
	}

	var names []string
	for _, e := range entries {
		if !hidden(e.Name()) {
			names = append(names, e.Name())
		}
	}

	claimed := make(map[string]bool)
	for _, n := range names {
		m := distInfoRE.FindStringSubmatch(n)
		if m == nil {
			continue
		}
		claimed[n] = true
		d := Distribution{Name: m[1], Version: m[2], InfoDir: n}

		tops := readTopLevel(filepath.Join(dir, n))
		if len(tops) == 0 {
			tops = []string{m[1]}
		}
		for _, other := range names {
			if claimed[other] || distInfoRE.MatchString(other) {
				continue
			}
			if slices.ContainsFunc(tops, func(top string) bool { return provides(other, top) }) {
				claimed[other] = true
				d.Entries = append(d.Entries, other)
			}
		}
		dists = append(dists, d)
	}

	for _, n := range names {
		if !claimed[n] {
			unclaimed = append(unclaimed, n)
		}
	}
	return dists, unclaimed, nil
}

// provides reports whether staging entry provides the import name top.
func provides(entry, top string) bool {
	top, _, _ = strings.Cut(top, "/")
	if entry == top {
		return true
	}
	base, _, ok := strings.Cut(entry, ".")
	return ok && base == top
}
