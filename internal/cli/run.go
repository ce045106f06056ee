package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nope/pkg/bootstrap"
	"github.com/matzehuels/nope/pkg/lockfile"
)

// ExitError reports that a program started by run exited unsuccessfully.
// main exits with the same code without printing anything further.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script> [args...]",
		Short: "Run a script with its locked package versions on the import path",
		Long: `Run a script with the interpreter after putting the version directories of
its lockfile at the front of PYTHONPATH.

The lockfile is <script>-lock.toml next to the script (a trailing .py is
dropped), or in lock_dir when that is configured. If any pin cannot be
located the script is not started.`,
		Example: `  nope run app.py --port 8080`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := args[0]
			lockPath := lockfile.PathFor(script, c.cfg.LockDir)
			dirs, err := bootstrap.Bootstrap(lockPath, c.cfg.SearchRoots())
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("running", "script", script, "lockfile", lockPath, "dirs", len(dirs))

			proc := exec.CommandContext(cmd.Context(), c.cfg.Python, args...) //nolint:gosec // interpreter is configured by the user
			proc.Env = bootstrap.Environ(os.Environ(), dirs)
			proc.Stdin = cmd.InOrStdin()
			proc.Stdout = cmd.OutOrStdout()
			proc.Stderr = cmd.ErrOrStderr()

			if err := proc.Run(); err != nil {
				var exitErr *exec.ExitError
				if stderrors.As(err, &exitErr) && cmd.Context().Err() == nil {
					return &ExitError{Code: exitErr.ExitCode()}
				}
				if cmd.Context().Err() != nil {
					return cmd.Context().Err()
				}
				return fmt.Errorf("run %s: %w", script, err)
			}
			return nil
		},
	}

	// Everything after the script belongs to the script.
	cmd.Flags().SetInterspersed(false)

	return cmd
}
