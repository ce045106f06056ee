// Package cli implements the nope command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nope/pkg/buildinfo"
	"github.com/matzehuels/nope/pkg/config"
	"github.com/matzehuels/nope/pkg/fetch"
	"github.com/matzehuels/nope/pkg/repo"
	"github.com/matzehuels/nope/pkg/requirement"
	"github.com/matzehuels/nope/pkg/resolve"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Set by PersistentPreRunE before any command runs.
	cfg *config.Config

	// Global flag values.
	configPath string
	repoFlag   string
	rootsFlag  []string
	pythonFlag string

	// fetcher replaces pip when set.
	fetcher fetch.Fetcher
	// markers is read from the interpreter on first use unless set.
	markers requirement.Environment
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "nope",
		Short: "nope installs side-by-side package versions and pins them per program",
		Long: `nope keeps every installed version of a package in its own directory,
resolves a program's requirements against what is installed, and records the
result in a per-program lockfile that the run command turns into an import path.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/nope/config.toml)")
	flags.StringVar(&c.repoFlag, "repo", "", "repository root that install writes to")
	flags.StringSliceVar(&c.rootsFlag, "root", nil, "repository roots searched by path and run, in order (repeatable)")
	flags.StringVar(&c.pythonFlag, "python", "", "interpreter used for pip and run")

	root.AddCommand(c.installCommand())
	root.AddCommand(c.lockaddCommand())
	root.AddCommand(c.installLockCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.versionsCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.pathCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration, applies flag overrides and attaches the
// logger to the command context.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("repo") {
		cfg.Repo = c.repoFlag
	}
	if flags.Changed("root") {
		cfg.Roots = c.rootsFlag
	}
	if flags.Changed("python") {
		cfg.Python = c.pythonFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	if cfg.File != "" {
		c.Logger.Debug("loaded config", "file", cfg.File)
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// =============================================================================
// Component Factories
// =============================================================================

func (c *CLI) repository() *repo.Repository {
	return repo.Open(c.cfg.Repo)
}

// metadataRepository returns the repository with requirement markers
// evaluated for the configured interpreter.
func (c *CLI) metadataRepository(ctx context.Context) *repo.Repository {
	return c.repository().WithMarkers(c.markerEnv(ctx))
}

// markerEnv reads the marker environment once. Without a working
// interpreter only the platform variables are known.
func (c *CLI) markerEnv(ctx context.Context) requirement.Environment {
	if c.markers != nil {
		return c.markers
	}
	env, err := fetch.MarkerEnvironment(ctx, c.cfg.Python)
	if err != nil {
		c.Logger.Warn("evaluating requirement markers without interpreter values", "python", c.cfg.Python, "err", err)
		env = requirement.HostEnvironment()
	} else {
		c.Logger.Debug("marker environment", "python_version", env["python_version"], "sys_platform", env["sys_platform"])
	}
	c.markers = env
	return env
}

func (c *CLI) newResolver(r *repo.Repository) *resolve.Resolver {
	return resolve.New(r, resolve.Options{
		MaxDepth: c.cfg.MaxDepth,
		Logger:   c.Logger.Debugf,
	})
}

// newFetcher returns the configured fetcher. Pip output goes to w only at
// debug level.
func (c *CLI) newFetcher(w io.Writer) fetch.Fetcher {
	if c.fetcher != nil {
		return c.fetcher
	}
	p := &fetch.Pip{Python: c.cfg.Python, ExtraArgs: c.cfg.PipArgs}
	if c.verbose() {
		p.Output = w
	}
	return p
}

func (c *CLI) verbose() bool {
	return c.Logger.GetLevel() <= log.DebugLevel
}
