package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"personakit/internal/ums"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "modules.config.yml"

// Config holds all personakit configuration.
type Config struct {
	// Registry default when no per-path override applies.
	ConflictStrategy ums.ConflictStrategy `yaml:"conflictStrategy"`

	StandardLibrary  StandardLibraryConfig `yaml:"standardLibrary"`
	LocalModulePaths []ModulePath          `yaml:"localModulePaths"`
	PersonaPaths     []string              `yaml:"personaPaths"`

	Ledger  LedgerConfig  `yaml:"ledger"`
	Logging LoggingConfig `yaml:"logging"`

	// BaseDir is the directory relative paths resolve against. Set by Load.
	BaseDir string `yaml:"-"`
}

// StandardLibraryConfig controls the built-in module library.
type StandardLibraryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path replaces the embedded library with an on-disk directory.
	Path string `yaml:"path,omitempty"`
}

// ModulePath is a local module root with an optional conflict override.
type ModulePath struct {
	Path       string               `yaml:"path"`
	OnConflict ums.ConflictStrategy `yaml:"onConflict,omitempty"`
}

// LedgerConfig configures the SQLite build ledger.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ConflictStrategy: ums.StrategyWarn,
		StandardLibrary:  StandardLibraryConfig{Enabled: true},
		LocalModulePaths: []ModulePath{{Path: "./instruct-modules"}},
		PersonaPaths:     []string{"./personas"},
		Ledger: LedgerConfig{
			Enabled: false,
			Path:    ".personakit/builds.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		BaseDir: ".",
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.BaseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if s := os.Getenv("PERSONAKIT_CONFLICT_STRATEGY"); s != "" {
		c.ConflictStrategy = ums.ConflictStrategy(s)
	}
	if level := os.Getenv("PERSONAKIT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("PERSONAKIT_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
	if path := os.Getenv("PERSONAKIT_LEDGER_PATH"); path != "" {
		c.Ledger.Path = path
		c.Ledger.Enabled = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := ums.ParseConflictStrategy(string(c.ConflictStrategy)); err != nil {
		return fmt.Errorf("conflictStrategy: %w", err)
	}
	seen := make(map[string]int, len(c.LocalModulePaths))
	for i, mp := range c.LocalModulePaths {
		if mp.Path == "" {
			return fmt.Errorf("localModulePaths[%d]: path is required", i)
		}
		if mp.OnConflict != "" {
			if _, err := ums.ParseConflictStrategy(string(mp.OnConflict)); err != nil {
				return fmt.Errorf("localModulePaths[%d].onConflict: %w", i, err)
			}
		}
		key := filepath.Clean(mp.Path)
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("localModulePaths[%d]: %s is already listed at localModulePaths[%d]", i, mp.Path, prev)
		}
		seen[key] = i
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required when the ledger is enabled")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}
