package config

import "runtime"

// Defaults mirror the original KatSite behaviour: markdown files in the
// working directory, HTML written next to them, plugins under ./plugins.
const (
	DefaultInputGlob = "*.md"
	DefaultOutputDir = "."
	DefaultPluginDir = "plugins"
)

func applyDefaults(cfg *Config) {
	if cfg.Files.InputGlob == "" {
		cfg.Files.InputGlob = DefaultInputGlob
	}
	if cfg.Files.OutputDir == "" {
		cfg.Files.OutputDir = DefaultOutputDir
	}
	if cfg.Hooks.PluginDir == "" {
		cfg.Hooks.PluginDir = DefaultPluginDir
	}
	if cfg.Markdown.InvalidUTF8 == "" {
		cfg.Markdown.InvalidUTF8 = InvalidUTF8Skip
	}
}

// Workers resolves the effective worker count.
func (c *Config) Workers() int {
	if c.ThreadPoolSize > 0 {
		return c.ThreadPoolSize
	}
	return runtime.NumCPU()
}

// Default returns a configuration with every default applied. Used by tests
// and by callers that build a config in code.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
