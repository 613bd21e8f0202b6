package config

import (
	"path/filepath"

	"personakit/internal/ums"
)

// MemoryLedger is the ledger path that selects an in-memory database. It is
// never resolved against a directory.
const MemoryLedger = ":memory:"

// ResolvePaths returns a copy of the config with every relative path joined
// to baseDir and cleaned.
func (c *Config) ResolvePaths(baseDir string) *Config {
	out := *c
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}

	out.StandardLibrary.Path = resolve(c.StandardLibrary.Path)
	out.LocalModulePaths = make([]ModulePath, len(c.LocalModulePaths))
	for i, mp := range c.LocalModulePaths {
		out.LocalModulePaths[i] = ModulePath{Path: resolve(mp.Path), OnConflict: mp.OnConflict}
	}
	out.PersonaPaths = make([]string, len(c.PersonaPaths))
	for i, p := range c.PersonaPaths {
		out.PersonaPaths[i] = resolve(p)
	}
	if c.Ledger.Path != MemoryLedger {
		out.Ledger.Path = resolve(c.Ledger.Path)
	}
	out.BaseDir = baseDir
	return &out
}

// Resolved resolves paths against the directory the config was loaded from.
func (c *Config) Resolved() *Config {
	base := c.BaseDir
	if base == "" {
		base = "."
	}
	return c.ResolvePaths(base)
}

// StrategyForPath returns the onConflict override configured for a local
// module path. Paths are compared after cleaning.
func (c *Config) StrategyForPath(path string) (ums.ConflictStrategy, bool) {
	want := filepath.Clean(path)
	for _, mp := range c.LocalModulePaths {
		if filepath.Clean(mp.Path) == want && mp.OnConflict != "" {
			return mp.OnConflict, true
		}
	}
	return "", false
}
