package repo

import (
	"bufio"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/nope/pkg/errors"
)

const (
	distInfoSuffix = ".dist-info"
	metadataFile   = "METADATA"
	topLevelFile   = "top_level.txt"
)

// Metadata holds the fields of a dist-info METADATA file that nope uses.
type Metadata struct {
	Name         string   // Distribution name as published
	Version      string   // Distribution version
	Summary      string   // One-line description (may be empty)
	RequiresDist []string // Raw Requires-Dist values, in declaration order
}

// readDistInfo parses the single dist-info directory inside dir.
func readDistInfo(dir string) (*Metadata, error) {
	info, err := findDistInfo(dir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, info, metadataFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCorruptMetadata, err, "open %s", path)
	}
	defer f.Close()
	meta, err := ParseMetadata(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCorruptMetadata, err, "parse %s", path)
	}
	return meta, nil
}

// ParseMetadata reads the RFC 822 style header block of a METADATA file.
// The message body (the long description) is ignored.
func ParseMetadata(r *bufio.Reader) (*Metadata, error) {
	h, err := textproto.NewReader(r).ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, err
	}
	if h.Get("Name") == "" {
		return nil, errors.New(errors.ErrCodeCorruptMetadata, "missing Name field")
	}
	return &Metadata{
		Name:         h.Get("Name"),
		Version:      h.Get("Version"),
		Summary:      h.Get("Summary"),
		RequiresDist: h.Values("Requires-Dist"),
	}, nil
}

// findDistInfo returns the name of the only dist-info directory inside dir.
func findDistInfo(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeCorruptMetadata, err, "read %s", dir)
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() && strings.HasSuffix(e.Name(), distInfoSuffix) {
			found = append(found, e.Name())
		}
	}
	switch len(found) {
	case 0:
		return "", errors.New(errors.ErrCodeCorruptMetadata, "no %s directory in %s", distInfoSuffix, dir)
	case 1:
		return found[0], nil
	default:
		return "", errors.New(errors.ErrCodeCorruptMetadata, "multiple %s directories in %s: %s",
			distInfoSuffix, dir, strings.Join(found, ", "))
	}
}

// readTopLevel returns the import names listed in a dist-info top_level.txt.
func readTopLevel(infoDir string) []string {
	data, err := os.ReadFile(filepath.Join(infoDir, topLevelFile))
	if err != nil {
		return nil
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names
}
