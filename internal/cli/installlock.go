package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nope/pkg/lockfile"
)

// installLockCommand creates the install_lock command.
func (c *CLI) installLockCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "install_lock <lockfile>",
		Aliases: []string{"install-lock"},
		Short:   "Install every package pinned in a lockfile",
		Long: `Install every pin of a lockfile into the repository, in name order.
Pins that are already installed are skipped. The first failure stops the run;
packages installed before it stay installed.`,
		Example: `  nope install_lock app-lock.toml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			lf, err := lockfile.Load(args[0])
			if err != nil {
				return err
			}

			r := c.repository()
			fetched, skipped := 0, 0
			for _, p := range lf.Pins() {
				if r.Installed(p.Name, p.Version) {
					skipped++
					printInfo(out, "%s already installed", pinLabel(p.Name, p.Version))
					continue
				}
				if _, err := c.install(cmd.Context(), out, cmd.ErrOrStderr(), r, p.Name, p.Version); err != nil {
					return err
				}
				fetched++
				printSuccess(out, "Installed %s", pinLabel(p.Name, p.Version))
			}

			printKeyValue(out, "installed", strconv.Itoa(fetched))
			printKeyValue(out, "already present", strconv.Itoa(skipped))
			return nil
		},
	}
}
