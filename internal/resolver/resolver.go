// Package resolver maps a persona's module references onto already-resolved
// modules. Conflict resolution between sources happens upstream in the
// registry; the resolver only preserves persona order and reports holes.
package resolver

import (
	"fmt"

	"personakit/internal/logging"
	"personakit/internal/ums"
)

// Result is the outcome of ResolveModules.
type Result struct {
	// Modules in persona-declared order.
	Modules  []*ums.Module
	Warnings []string
	// Missing holds referenced IDs with no module, in reference order.
	Missing []string
}

// ResolveModules walks entries in declared order (and each group's IDs in
// declared order) and looks every ID up in available. Missing IDs are collected,
// not fatal. A repeated reference is resolved once and reported as a warning.
func ResolveModules(entries []ums.ModuleEntry, available map[string]*ums.Module) Result {
	timer := logging.StartTimer(logging.CategoryResolver, "ResolveModules")
	defer timer.Stop()

	var res Result
	seen := make(map[string]bool)
	missingSeen := make(map[string]bool)

	for _, entry := range entries {
		for _, id := range entry.IDs {
			if seen[id] || missingSeen[id] {
				res.Warnings = append(res.Warnings, fmt.Sprintf("module %s is referenced more than once; later references are ignored", id))
				continue
			}

			m, ok := available[id]
			if !ok || m == nil {
				missingSeen[id] = true
				res.Missing = append(res.Missing, id)
				logging.Get(logging.CategoryResolver).Debug("module %s not found", id)
				continue
			}

			seen[id] = true
			res.Modules = append(res.Modules, m)

			if m.Metadata.Deprecated {
				res.Warnings = append(res.Warnings, deprecationWarning(m))
			}
		}
	}

	logging.Get(logging.CategoryResolver).Debug(
		"resolved %d modules (%d missing, %d warnings)", len(res.Modules), len(res.Missing), len(res.Warnings),
	)
	return res
}

func deprecationWarning(m *ums.Module) string {
	if m.Metadata.ReplacedBy != "" {
		return fmt.Sprintf("module %s is deprecated; use %s instead", m.ID, m.Metadata.ReplacedBy)
	}
	return fmt.Sprintf("module %s is deprecated and may be removed in a future version", m.ID)
}

// ValidateModuleReferences checks that every ID the persona references exists.
// Unlike ResolveModules it reports each missing ID as an error.
func ValidateModuleReferences(p *ums.Persona, available map[string]*ums.Module) ums.ValidationResult {
	res := ums.NewValidationResult()
	if p == nil {
		res.AddError("", "", "persona is nil")
		return res
	}
	for i, entry := range p.Modules {
		for j, id := range entry.IDs {
			path := fmt.Sprintf("modules[%d].ids[%d]", i, j)
			m, ok := available[id]
			if !ok || m == nil {
				res.AddError(path, "", "module %s not found", id)
				continue
			}
			if m.Metadata.Deprecated {
				res.AddWarning(path, "%s", deprecationWarning(m))
			}
		}
	}
	return res
}
