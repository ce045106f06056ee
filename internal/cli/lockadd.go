package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nope/pkg/lockfile"
)

// lockaddCommand creates the lockadd command.
func (c *CLI) lockaddCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "lockadd <lockfile> <name> <version>",
		Short: "Resolve a package against the repository and pin it in a lockfile",
		Long: `Resolve a package version and everything it requires against the installed
versions in the repository, then merge the resulting pins into a lockfile.

Pins already present at the same version are left alone with a warning. A pin
present at a different version is a conflict: the lockfile is not modified
unless --force is given, in which case the new version replaces the old.`,
		Example: `  nope lockadd app-lock.toml requests 2.31.0
  nope lockadd --force app-lock.toml urllib3 2.2.1`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, name, version := args[0], args[1], args[2]
			out := cmd.OutOrStdout()
			logger := loggerFromContext(cmd.Context())

			prog := newProgress(logger)
			res, err := c.newResolver(c.metadataRepository(cmd.Context())).Resolve(cmd.Context(), name, version)
			if err != nil {
				reportFailure(cmd.ErrOrStderr(), err)
				return err
			}
			prog.done(fmt.Sprintf("Resolved %s %s", name, version))

			lf, err := lockfile.LoadOrEmpty(path)
			if err != nil {
				return err
			}
			distinct := res.Distinct()
			pins := make([]lockfile.Pin, len(distinct))
			for i, p := range distinct {
				pins[i] = lockfile.Pin{Name: p.Name, Version: p.Version}
			}
			changes, err := lf.Merge(pins, force)
			if err != nil {
				return err
			}

			modified := false
			for _, ch := range changes {
				switch ch.Outcome {
				case lockfile.Added:
					modified = true
					printSuccess(out, "Locked %s", pinLabel(ch.Name, ch.Version))
				case lockfile.Replaced:
					modified = true
					printWarning(out, "%s %s replaces %s", ch.Name, ch.Version, ch.Previous)
				case lockfile.Unchanged:
					printWarning(out, "%s %s is already locked", ch.Name, ch.Version)
				}
			}
			if !modified {
				printInfo(out, "%s unchanged", path)
				return nil
			}
			if err := lf.Save(path); err != nil {
				return err
			}
			printFile(out, path)
			printNextStep(out, "Install pinned packages", "nope", "install_lock", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace pins locked at a different version")

	return cmd
}
