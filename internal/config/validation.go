package config

import (
	"fmt"
	"strings"
	"time"

	kserrors "github.com/katattakd/katsite/internal/errors"
)

// ValidateConfig validates the configuration and resolves derived values
// (the parsed hook timeout).
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if cv.config.ThreadPoolSize < 0 {
		return kserrors.ValidationFailed("thread_pool_size", "must not be negative")
	}
	if err := cv.validatePlugins(); err != nil {
		return err
	}
	if err := cv.validateMarkdown(); err != nil {
		return err
	}
	return cv.validateHooks()
}

// validatePlugins rejects names that cannot be resolved under the plugin directory.
func (cv *configurationValidator) validatePlugins() error {
	seen := make(map[string]struct{}, len(cv.config.Plugins))
	for i, name := range cv.config.Plugins {
		field := fmt.Sprintf("plugins[%d]", i)
		if strings.TrimSpace(name) == "" {
			return kserrors.ValidationFailed(field, "plugin name is empty")
		}
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return kserrors.ValidationFailed(field, "plugin name must not contain a path")
		}
		if _, dup := seen[name]; dup {
			return kserrors.ValidationFailed(field, "duplicate plugin "+name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (cv *configurationValidator) validateMarkdown() error {
	switch cv.config.Markdown.InvalidUTF8 {
	case InvalidUTF8Skip, InvalidUTF8Abort:
		return nil
	default:
		return kserrors.ValidationFailed("markdown.invalid_utf8",
			fmt.Sprintf("unknown policy %q (want skip or abort)", cv.config.Markdown.InvalidUTF8))
	}
}

func (cv *configurationValidator) validateHooks() error {
	raw := strings.TrimSpace(cv.config.Hooks.Timeout)
	if raw == "" {
		cv.config.Hooks.timeout = 0
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return kserrors.ValidationFailed("hooks.timeout", err.Error())
	}
	if d < 0 {
		return kserrors.ValidationFailed("hooks.timeout", "must not be negative")
	}
	cv.config.Hooks.timeout = d
	return nil
}
