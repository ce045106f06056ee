package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nope/pkg/bootstrap"
)

// pathCommand creates the path command.
func (c *CLI) pathCommand() *cobra.Command {
	var env bool

	cmd := &cobra.Command{
		Use:   "path <lockfile>",
		Short: "Print the versioned import path for a lockfile",
		Long: `Locate every pin of a lockfile in the repository roots and print the
version directories, one per line, in the order they go on the import path.
Fails without printing anything if any pin cannot be located.

With --env a single PYTHONPATH assignment is printed instead, suitable for
eval in a shell.`,
		Example: `  nope path app-lock.toml
  eval "export $(nope path --env app-lock.toml)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := bootstrap.Bootstrap(args[0], c.cfg.SearchRoots())
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("bootstrapped", "lockfile", args[0], "dirs", len(dirs))

			out := cmd.OutOrStdout()
			if env {
				for _, kv := range bootstrap.Environ(os.Environ(), dirs) {
					if strings.HasPrefix(kv, bootstrap.EnvPythonPath+"=") {
						fmt.Fprintln(out, kv)
					}
				}
				return nil
			}
			for _, d := range dirs {
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&env, "env", false, "print a PYTHONPATH assignment")

	return cmd
}
