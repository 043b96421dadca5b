// Package config loads the KatSite run configuration (RunConfig).
//
// The configuration is read once at startup and never mutated afterwards; the
// build scheduler and every build job receive it by pointer and treat it as
// read-only. Plugins keep their own sections in the same file, so unknown keys
// are ignored by both supported formats.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	kserrors "github.com/katattakd/katsite/internal/errors"
)

// DefaultPath is the configuration file read when no --config flag is given.
const DefaultPath = "conf.toml"

// Config represents the run configuration.
type Config struct {
	// ThreadPoolSize is the worker count; 0 selects the host parallelism.
	ThreadPoolSize int `toml:"thread_pool_size" yaml:"thread_pool_size"`

	// Plugins is the ordered plugin list. Order is significant for every chain hook.
	Plugins []string `toml:"plugins" yaml:"plugins"`

	Files    FilesConfig    `toml:"files" yaml:"files"`
	Markdown MarkdownConfig `toml:"markdown" yaml:"markdown"`
	HTML     HTMLConfig     `toml:"html" yaml:"html"`
	Hooks    HooksConfig    `toml:"hooks" yaml:"hooks"`
	Metrics  MetricsConfig  `toml:"metrics" yaml:"metrics"`
	Journal  JournalConfig  `toml:"journal" yaml:"journal"`
}

// FilesConfig controls input discovery and output placement.
type FilesConfig struct {
	InputGlob string `toml:"input_glob" yaml:"input_glob"`
	OutputDir string `toml:"output_dir" yaml:"output_dir"`
}

// MarkdownConfig holds the markdown feature flags.
type MarkdownConfig struct {
	ConvertLineBreaks      bool `toml:"convert_line_breaks" yaml:"convert_line_breaks"`
	ConvertPunctuation     bool `toml:"convert_punctuation" yaml:"convert_punctuation"`
	EnableRawHTMLInlining  bool `toml:"enable_raw_html_inlining" yaml:"enable_raw_html_inlining"`
	EnableGithubExtensions bool `toml:"enable_github_extensions" yaml:"enable_github_extensions"`
	EnableExtraExtensions  bool `toml:"enable_comrak_extensions" yaml:"enable_comrak_extensions"`

	// InvalidUTF8 selects what happens when the markdown hook chain produces
	// bytes that are not valid UTF-8: "skip" the file or "abort" the run.
	InvalidUTF8 InvalidUTF8Policy `toml:"invalid_utf8" yaml:"invalid_utf8"`
}

// HTMLConfig holds the boilerplate prelude written before every page.
// With AppendCSSLink, CustomCSS goes to style.css at the output root and each
// page links to it. Otherwise non-empty CustomCSS is inlined in a <style>
// block. CustomHTML follows the stylesheet verbatim.
type HTMLConfig struct {
	AppendDoctype  bool   `toml:"append_doctype" yaml:"append_doctype"`
	AppendViewport bool   `toml:"append_viewport" yaml:"append_viewport"`
	AppendCSSLink  bool   `toml:"append_css_link" yaml:"append_css_link"`
	CustomCSS      string `toml:"custom_css" yaml:"custom_css"`
	CustomHTML     string `toml:"custom_html" yaml:"custom_html"`
}

// HooksConfig controls plugin invocation.
type HooksConfig struct {
	// Timeout is a Go duration string. Empty disables the per-invocation timeout.
	Timeout   string `toml:"timeout" yaml:"timeout"`
	PluginDir string `toml:"plugin_dir" yaml:"plugin_dir"`

	timeout time.Duration
}

// TimeoutDuration returns the parsed hook timeout (0 = none).
func (h HooksConfig) TimeoutDuration() time.Duration {
	return h.timeout
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `toml:"textfile" yaml:"textfile"`
}

// JournalConfig controls the SQLite build journal.
type JournalConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// InvalidUTF8Policy enumerates the decode failure policies.
type InvalidUTF8Policy string

const (
	InvalidUTF8Skip  InvalidUTF8Policy = "skip"
	InvalidUTF8Abort InvalidUTF8Policy = "abort"
)

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// .env files sit next to the configuration and are optional.
	if _, err := loadEnvFiles(filepath.Dir(configPath)); err != nil {
		return nil, kserrors.ConfigInvalid(configPath, fmt.Errorf("load env file: %w", err))
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, kserrors.ConfigUnreadable(configPath, err)
	}

	cfg, err := Parse(configPath, data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw configuration bytes. The format is chosen from the file
// extension: .yaml/.yml use YAML, anything else TOML.
func Parse(configPath string, data []byte) (*Config, error) {
	// Expand environment variables in the raw content
	expanded := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, kserrors.ConfigInvalid(configPath, err)
		}
	default:
		if err := toml.NewDecoder(bytes.NewReader(expanded)).Decode(&cfg); err != nil {
			return nil, kserrors.ConfigInvalid(configPath, err)
		}
	}

	applyDefaults(&cfg)
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	var content string
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		content = exampleYAML
	default:
		content = exampleTOML
	}

	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

const exampleTOML = `# KatSite configuration.
# Plugins read their own sections from this file as well.

# Number of files built in parallel. 0 uses every CPU.
thread_pool_size = 0

# Plugins run in this order for every hook. Executables live in ./plugins/.
plugins = []

[files]
input_glob = "*.md"
output_dir = "."

[markdown]
convert_line_breaks = false
convert_punctuation = false
enable_raw_html_inlining = false
enable_github_extensions = false
enable_comrak_extensions = false
invalid_utf8 = "skip"

[html]
append_doctype = true
append_viewport = true
append_css_link = false
custom_css = ""
custom_html = ""

[hooks]
timeout = ""
plugin_dir = "plugins"

[metrics]
textfile = ""

[journal]
path = ""
`

const exampleYAML = `# KatSite configuration.
thread_pool_size: 0
plugins: []
files:
  input_glob: "*.md"
  output_dir: "."
markdown:
  convert_line_breaks: false
  convert_punctuation: false
  enable_raw_html_inlining: false
  enable_github_extensions: false
  enable_comrak_extensions: false
  invalid_utf8: skip
html:
  append_doctype: true
  append_viewport: true
  append_css_link: false
  custom_css: ""
  custom_html: ""
hooks:
  timeout: ""
  plugin_dir: plugins
metrics:
  textfile: ""
journal:
  path: ""
`
