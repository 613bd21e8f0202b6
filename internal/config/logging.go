package config

import (
	"strings"

	"personakit/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`                // debug, info, warn, error
	Format     string          `yaml:"format"`               // text, json
	Categories map[string]bool `yaml:"categories,omitempty"` // per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Unlisted categories are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// Options converts the config into logger options. verbose forces debug level.
func (c *LoggingConfig) Options(verbose, forceJSON bool) logging.Options {
	opts := logging.Options{
		Level: c.Level,
		JSON:  forceJSON || strings.EqualFold(c.Format, "json"),
	}
	if verbose {
		opts.Level = "debug"
	}
	if c.Categories != nil {
		opts.Categories = make(map[string]bool, len(c.Categories))
		for _, cat := range logging.AllCategories() {
			opts.Categories[string(cat)] = c.IsCategoryEnabled(string(cat))
		}
	}
	return opts
}
