package ums

import "fmt"

// SourceType is where a module definition came from.
type SourceType string

const (
	SourceStandard SourceType = "standard"
	SourceLocal    SourceType = "local"
	SourceRemote   SourceType = "remote"
)

// Source describes a module origin for diagnostics and provenance. It never
// participates in module identity.
type Source struct {
	Type SourceType
	Path string
}

func (s Source) String() string {
	if s.Type == "" && s.Path == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%s", s.Type, s.Path)
}

// Entry is one registry admission of a module.
type Entry struct {
	Module *Module
	Source Source
	// AddedAt is a registry-local arrival sequence starting at 1.
	AddedAt uint64
}

// ConflictStrategy picks a winner among several entries for one ID.
type ConflictStrategy string

const (
	StrategyError   ConflictStrategy = "error"
	StrategyWarn    ConflictStrategy = "warn"
	StrategyReplace ConflictStrategy = "replace"
)

// ParseConflictStrategy validates a strategy name.
func ParseConflictStrategy(s string) (ConflictStrategy, error) {
	switch ConflictStrategy(s) {
	case StrategyError, StrategyWarn, StrategyReplace:
		return ConflictStrategy(s), nil
	}
	return "", fmt.Errorf("unknown conflict strategy %q (want error, warn or replace)", s)
}
