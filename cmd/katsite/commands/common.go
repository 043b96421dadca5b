// Package commands implements the katsite subcommands.
package commands

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/katattakd/katsite/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger  *slog.Logger
	Context context.Context
}

func (g *Global) ctx() context.Context {
	if g == nil || g.Context == nil {
		return context.Background()
	}
	return g.Context
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"conf.toml" env:"KATSITE_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"withargs" help:"Build the site (the default command)"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	Plugins PluginsCmd `cmd:"" help:"List configured plugins and whether they can be run"`
	History HistoryCmd `cmd:"" help:"Show previous runs recorded in the build journal"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel resolves the log level from the verbose flag and KATSITE_LOG_LEVEL.
// The flag wins over the environment.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("KATSITE_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads the configuration named by the root --config flag.
func loadConfig(root *CLI) (*config.Config, error) {
	path := config.DefaultPath
	if root != nil && root.Config != "" {
		path = root.Config
	}
	return config.Load(path)
}
