// Package fetch runs the external installer that downloads distributions
// into a staging directory.
//
// nope never talks to a package index itself. A [Fetcher] is handed a fresh
// staging directory and must leave one "<name>-<version>.dist-info"
// directory per distribution in it, next to the distribution's top-level
// packages and modules. [repo.ScanStaging] reads that layout back.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/matzehuels/nope/pkg/errors"
)

// DefaultPython is the interpreter used when Pip.Python is empty.
const DefaultPython = "python3"

// Fetcher downloads name at version, with its dependencies, into dest.
type Fetcher interface {
	Fetch(ctx context.Context, name, version, dest string) error
}

// Pip fetches with "<python> -m pip install --target <dest> <name>==<version>".
type Pip struct {
	Python    string    // Interpreter (default: python3)
	ExtraArgs []string  // Extra pip arguments, e.g. an index URL
	Output    io.Writer // Receives pip's output (optional)
}

// Args returns the interpreter arguments for fetching name at version.
func (p *Pip) Args(name, version, dest string) []string {
	args := []string{"-m", "pip", "install", "--no-input", "--target", dest}
	args = append(args, p.ExtraArgs...)
	return append(args, name+"=="+version)
}

// Fetch runs pip and waits for it. A non-zero exit is FETCH_FAILED carrying
// the tail of pip's output.
func (p *Pip) Fetch(ctx context.Context, name, version, dest string) error {
	python := p.Python
	if python == "" {
		python = DefaultPython
	}

	cmd := exec.CommandContext(ctx, python, p.Args(name, version, dest)...) //nolint:gosec // interpreter is configured by the user
	var tail tailBuffer
	var out io.Writer = &tail
	if p.Output != nil {
		out = io.MultiWriter(&tail, p.Output)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := fmt.Sprintf("%s -m pip install %s==%s", python, name, version)
		if t := tail.String(); t != "" {
			msg += ":\n" + t
		}
		return errors.Wrap(errors.ErrCodeFetchFailed, err, "%s", msg)
	}
	return nil
}

const tailLines = 20

// tailBuffer keeps everything written and reports the last lines.
type tailBuffer struct {
	bytes.Buffer
}

func (b *tailBuffer) String() string {
	lines := strings.Split(strings.TrimRight(b.Buffer.String(), "\n"), "\n")
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	return strings.Join(lines, "\n")
}
