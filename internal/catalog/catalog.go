// Package catalog answers list and search queries over loaded modules.
package catalog

import (
	"sort"
	"strings"

	"personakit/internal/ums"
)

// Tier returns the tier of a module id, or "" when the id has none.
func Tier(id string) string {
	return string(ums.TierOf(id))
}

// List returns the modules of one tier sorted by id. An empty tier lists all.
func List(mods []*ums.Module, tier string) []*ums.Module {
	var out []*ums.Module
	for _, m := range mods {
		if m == nil {
			continue
		}
		if tier != "" && Tier(m.ID) != tier {
			continue
		}
		out = append(out, m)
	}
	sortByID(out)
	return out
}

// Search returns modules whose id, name, description, semantic text, tags or
// capabilities contain query, case-insensitively. Results are sorted by id.
func Search(mods []*ums.Module, query string) []*ums.Module {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []*ums.Module
	for _, m := range mods {
		if m != nil && matches(m, q) {
			out = append(out, m)
		}
	}
	sortByID(out)
	return out
}

func matches(m *ums.Module, q string) bool {
	if q == "" {
		return true
	}
	fields := []string{m.ID, m.Metadata.Name, m.Metadata.Description, m.Metadata.Semantic}
	fields = append(fields, m.Metadata.Tags...)
	fields = append(fields, m.Capabilities...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func sortByID(mods []*ums.Module) {
	sort.SliceStable(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })
}
