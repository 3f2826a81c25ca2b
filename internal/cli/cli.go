package cli

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/plurcast/credstore/internal/config"
	"github.com/plurcast/credstore/internal/output"
	"github.com/willabides/kongplete"
)

// FormatterProvider wraps the formatter interface for Kong binding
type FormatterProvider struct {
	Formatter output.Formatter
}

// CLI is the root command structure
type CLI struct {
	Globals

	Account AccountCmd `cmd:"" help:"Manage accounts"`
	Secret  SecretCmd  `cmd:"" help:"Store and retrieve credentials"`
	Migrate MigrateCmd `cmd:"" help:"Copy legacy credentials into the current layout"`
	Doctor  DoctorCmd  `cmd:"" help:"Check credential backend health"`
	Config  ConfigCmd  `cmd:"" help:"Configuration commands"`
	Version VersionCmd `cmd:"" help:"Show version information"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
}

// BeforeApply hook runs before any command execution
// It loads config, configures logging, creates formatter, and binds dependencies
func (c *CLI) BeforeApply(ctx *kong.Context) error {
	// Load config from XDG path (returns defaults if missing)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Resolve output mode: CLI flag > config > TTY autodetect
	if c.Output == "auto" && cfg.DefaultOutput != "" {
		c.Output = cfg.DefaultOutput
	}

	// Warnings only by default; -v turns on debug logging
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Create output formatter
	formatter := &FormatterProvider{
		Formatter: output.New(c.ResolvedOutput()),
	}

	// Bind dependencies to kong context
	ctx.Bind(cfg)
	ctx.Bind(formatter)
	ctx.Bind(&c.Globals)

	return nil
}

// AccountCmd holds account subcommands
type AccountCmd struct {
	List   AccountListCmd   `cmd:"" help:"List registered accounts"`
	Add    AccountAddCmd    `cmd:"" help:"Register a new account"`
	Remove AccountRemoveCmd `cmd:"" help:"Unregister an account"`
	Use    AccountUseCmd    `cmd:"" help:"Select the active account"`
	Show   AccountShowCmd   `cmd:"" help:"Show the active account"`
}

// SecretCmd holds credential subcommands
type SecretCmd struct {
	Set      SecretSetCmd      `cmd:"" help:"Store a credential"`
	Get      SecretGetCmd      `cmd:"" help:"Retrieve a credential"`
	Rm       SecretRmCmd       `cmd:"" help:"Delete a credential"`
	Accounts SecretAccountsCmd `cmd:"" help:"List accounts that hold a credential"`
}

// ConfigCmd holds configuration subcommands
type ConfigCmd struct {
	Get   ConfigGetCmd        `cmd:"" help:"Get a configuration value"`
	Set   ConfigSetCmd        `cmd:"" help:"Set a configuration value"`
	Unset ConfigUnsetCmd      `cmd:"" help:"Remove a configuration value"`
	List  ConfigListConfigCmd `cmd:"" name:"list" help:"List all configuration values"`
	Path  ConfigPathCmd       `cmd:"" help:"Show config file path"`
}

// VersionCmd shows version information
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context) error {
	version := ctx.Model.Vars()["version"]
	println("credstore version " + version)
	return nil
}
