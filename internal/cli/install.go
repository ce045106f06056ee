package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nope/pkg/errors"
	"github.com/matzehuels/nope/pkg/repo"
	"github.com/matzehuels/nope/pkg/requirement"
)

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install <name> <version>",
		Short: "Fetch a package version and install it into the repository",
		Long: `Fetch a package version with pip into a private staging directory, then
move every distribution pip produced into its own <name>/<version> directory.

Dependencies that are already installed are reported and skipped. The named
version itself being installed already is an error.`,
		Example: `  nope install requests 2.31.0
  nope install --repo /opt/nope/repo six 1.16.0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, version := args[0], args[1]
			r := c.repository()
			if r.Installed(name, version) {
				return errors.New(errors.ErrCodeAlreadyInstalled, "%s %s is already installed at %s",
					name, version, r.PackagePath(name, version))
			}
			n, err := c.install(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), r, name, version)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Installed %s (%d distributions)", pinLabel(name, version), n)
			printFile(cmd.OutOrStdout(), r.PackagePath(name, version))
			return nil
		},
	}
}

// install fetches name at version into a fresh staging directory and moves
// the fetched distributions into r. It returns how many were installed.
func (c *CLI) install(ctx context.Context, out, errw io.Writer, r *repo.Repository, name, version string) (int, error) {
	logger := loggerFromContext(ctx)

	staging, err := c.stagingDir(r)
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(staging)
	logger.Debug("staging", "dir", staging)

	label := fmt.Sprintf("Fetching %s %s", name, version)
	fetcher := c.newFetcher(errw)
	if c.verbose() {
		logger.Info(label)
		err = fetcher.Fetch(ctx, name, version, staging)
	} else {
		sp := newSpinner(ctx, errw, label)
		sp.Start()
		err = fetcher.Fetch(ctx, name, version, staging)
		switch {
		case err == nil:
			sp.StopWithSuccess(fmt.Sprintf("Fetched %s %s", name, version))
		case sp.Cancelled():
			sp.Stop()
		default:
			sp.StopWithError(fmt.Sprintf("Fetch of %s %s failed", name, version))
		}
	}
	if err != nil {
		return 0, err
	}

	dists, unclaimed, err := repo.ScanStaging(staging)
	if err != nil {
		return 0, err
	}
	for _, u := range unclaimed {
		logger.Debug("ignoring staging entry", "entry", u)
	}

	found, installed := false, 0
	for _, d := range dists {
		named := requirement.NormalizeName(d.Name) == requirement.NormalizeName(name) && d.Version == version
		found = found || named
		err := r.InstallDistribution(staging, d)
		switch {
		case err == nil:
			installed++
			logger.Debug("installed", "package", d.Name, "version", d.Version)
			if !named {
				printDetail(out, "%s %s", d.Name, d.Version)
			}
		case errors.Is(err, errors.ErrCodeAlreadyInstalled) && !named:
			printWarning(out, "%s %s is already installed, skipping", d.Name, d.Version)
		default:
			return installed, err
		}
	}
	if !found {
		return installed, errors.New(errors.ErrCodeFetchFailed, "fetch of %s %s produced no matching distribution", name, version)
	}
	return installed, nil
}

// stagingDir creates a private directory for one fetch under the configured
// staging parent, or under the repository root so that the final moves stay
// on one filesystem.
func (c *CLI) stagingDir(r *repo.Repository) (string, error) {
	parent := c.cfg.Staging
	if parent == "" {
		parent = r.Root()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("create staging parent: %w", err)
	}
	dir := filepath.Join(parent, ".staging-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	return dir, nil
}
