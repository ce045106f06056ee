// Package config loads nope settings from defaults, a TOML config file, and
// NOPE_* environment variables, in increasing order of precedence. Command
// line flags are applied on top by the CLI.
//
//	# ~/.config/nope/config.toml
//	repo = "/opt/nope/repo"
//	roots = ["/opt/nope/repo", "/usr/share/nope/repo"]
//	python = "python3.12"
//	pip_args = ["--index-url", "https://mirror.example/simple"]
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/matzehuels/nope/pkg/errors"
)

const (
	// AppName is the application name.
	AppName = "nope"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix prefixes environment overrides: NOPE_REPO, NOPE_PYTHON, ...
	EnvPrefix = "NOPE"
)

// Config holds the resolved settings.
type Config struct {
	Repo     string   `mapstructure:"repo" validate:"required"`              // Repository that install writes to
	Roots    []string `mapstructure:"roots" validate:"dive,required"`        // Roots searched by path and run, in order
	Python   string   `mapstructure:"python" validate:"required"`            // Interpreter for pip and run
	PipArgs  []string `mapstructure:"pip_args"`                              // Extra arguments passed to pip install
	Staging  string   `mapstructure:"staging"`                               // Parent of fetch staging directories (default: inside repo)
	LockDir  string   `mapstructure:"lock_dir"`                              // Where run looks for <script>-lock.toml (default: next to the script)
	MaxDepth int      `mapstructure:"max_depth" validate:"gte=1,lte=100000"` // Resolver chain limit

	// File is the config file that was read, or empty.
	File string `mapstructure:"-"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Repo:     "repo",
		Python:   "python3",
		MaxDepth: 100,
	}
}

// SearchRoots returns Roots, or just Repo when no roots are configured.
func (c *Config) SearchRoots() []string {
	if len(c.Roots) > 0 {
		return c.Roots
	}
	return []string{c.Repo}
}

var validate = validator.New()

// Validate checks the settings after all overrides have been applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid configuration")
	}
	return nil
}

// ConfigDir returns the nope configuration directory: %APPDATA% on Windows,
// ~/Library/Application Support on macOS, $XDG_CONFIG_HOME (defaulting to
// ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, "Library", "Application Support")
	default:
		dir = os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("get home directory: %w", err)
			}
			dir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(dir, AppName), nil
}

// Load reads the configuration. An explicit path must exist; otherwise the
// file in [ConfigDir] is used if present and defaults apply if not.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("repo", defaults.Repo)
	v.SetDefault("roots", []string{})
	v.SetDefault("python", defaults.Python)
	v.SetDefault("pip_args", []string{})
	v.SetDefault("staging", "")
	v.SetDefault("lock_dir", "")
	v.SetDefault("max_depth", defaults.MaxDepth)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolved := ""
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		resolved = path
	} else if dir, err := ConfigDir(); err == nil {
		candidate := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
		if _, err := os.Stat(candidate); err == nil {
			resolved = candidate
		}
	}
	if resolved != "" {
		v.SetConfigFile(resolved)
		v.SetConfigType(ConfigFileExt)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", resolved)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// AutomaticEnv does not split list values.
	if s := os.Getenv(EnvPrefix + "_ROOTS"); s != "" {
		cfg.Roots = filepath.SplitList(s)
	}
	cfg.File = resolved
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
