package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/katattakd/katsite/internal/config"
	"github.com/katattakd/katsite/internal/process"
)

// PluginsCmd implements the 'plugins' command.
type PluginsCmd struct {
	Strict bool `help:"Fail when any configured plugin cannot be run"`
}

func (p *PluginsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	return ListPlugins(os.Stdout, cfg, p.Strict)
}

// ListPlugins prints the configured plugins in hook order with the resolved
// executable path and whether it can be run. With strict set, the first
// unusable plugin is returned as an error after the listing.
func ListPlugins(w io.Writer, cfg *config.Config, strict bool) error {
	if len(cfg.Plugins) == 0 {
		_, err := fmt.Fprintln(w, "No plugins configured")
		return err
	}

	runner := process.NewRunner(cfg.Hooks.PluginDir)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ORDER\tPLUGIN\tPATH\tSTATUS")

	var firstErr error
	for i, name := range cfg.Plugins {
		status := "ok"
		if err := runner.Check(name); err != nil {
			status = "unavailable"
			if firstErr == nil {
				firstErr = err
			}
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, name, runner.Path(name), status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if strict {
		return firstErr
	}
	return nil
}
