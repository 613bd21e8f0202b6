// Package registry accumulates module definitions from several sources under one
// ID space and resolves conflicts between them on demand.
//
// Admission never fails: conflicts are only detected when an ID is resolved,
// because the same ID may resolve differently under different strategies.
// Arrival order is load-bearing for the warn and replace strategies, so Add
// calls are serialized and stamped with a monotonic sequence.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"personakit/internal/logging"
	"personakit/internal/ums"
)

// Registry is a build-scoped, conflict-aware module registry.
// Construct one per build; it is never shared across builds.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string][]ums.Entry
	seq      uint64
	strategy ums.ConflictStrategy

	// warned dedupes warn-strategy diagnostics per ID
	warned      map[string]bool
	diagnostics []string
}

// New creates an empty registry with the given default strategy.
// An empty strategy defaults to warn.
func New(defaultStrategy ums.ConflictStrategy) *Registry {
	if defaultStrategy == "" {
		defaultStrategy = ums.StrategyWarn
	}
	return &Registry{
		entries:  make(map[string][]ums.Entry),
		strategy: defaultStrategy,
		warned:   make(map[string]bool),
	}
}

// DefaultStrategy returns the strategy used when Resolve is called without one.
func (r *Registry) DefaultStrategy() ums.ConflictStrategy {
	return r.strategy
}

// Add appends an entry for m.ID. It always succeeds.
func (r *Registry) Add(m *ums.Module, src ums.Source) {
	if m == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.entries[m.ID] = append(r.entries[m.ID], ums.Entry{Module: m, Source: src, AddedAt: r.seq})

	if n := len(r.entries[m.ID]); n > 1 {
		logging.Get(logging.CategoryRegistry).Debug("module %s now has %d definitions (latest from %s)", m.ID, n, src)
	}
}

// Has reports whether any source defines id.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[id]) > 0
}

// Size returns the number of distinct IDs.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Conflicts returns a copy of the entries for id, or nil if id has fewer than two.
func (r *Registry) Conflicts(id string) []ums.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.entries[id]
	if len(list) <= 1 {
		return nil
	}
	out := make([]ums.Entry, len(list))
	copy(out, list)
	return out
}

// ConflictingIDs returns the sorted IDs that have more than one entry.
func (r *Registry) ConflictingIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, list := range r.entries {
		if len(list) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SourceSummary counts entries per "type:path" source key.
func (r *Registry) SourceSummary() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summary := make(map[string]int)
	for _, list := range r.entries {
		for _, e := range list {
			summary[e.Source.String()]++
		}
	}
	return summary
}

// IDs returns all known IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Modules returns the first-added definition of every ID, sorted by ID.
// It is a catalog view and does not apply any conflict strategy.
func (r *Registry) Modules() []*ums.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mods := make([]*ums.Module, 0, len(r.entries))
	for _, list := range r.entries {
		mods = append(mods, list[0].Module)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })
	return mods
}

// Resolve returns the winning module for id under strategy ("" = registry default).
// Unknown IDs return (nil, nil).
func (r *Registry) Resolve(id string, strategy ums.ConflictStrategy) (*ums.Module, error) {
	entry, err := r.ResolveEntry(id, strategy)
	if err != nil || entry == nil {
		return nil, err
	}
	return entry.Module, nil
}

// ResolveEntry is Resolve but returns the winning entry, source included.
func (r *Registry) ResolveEntry(id string, strategy ums.ConflictStrategy) (*ums.Entry, error) {
	if strategy == "" {
		strategy = r.strategy
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[id]
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		e := list[0]
		return &e, nil
	}

	switch strategy {
	case ums.StrategyError:
		sources := make([]ums.Source, len(list))
		for i, e := range list {
			sources[i] = e.Source
		}
		return nil, &ums.ConflictError{ID: id, ConflictCount: len(list), Sources: sources}

	case ums.StrategyWarn:
		winner := list[0]
		if !r.warned[id] {
			r.warned[id] = true
			msg := fmt.Sprintf("module %s is defined by %d sources; using the first from %s", id, len(list), winner.Source)
			r.diagnostics = append(r.diagnostics, msg)
			logging.Get(logging.CategoryRegistry).Warn("%s", msg)
		}
		return &winner, nil

	case ums.StrategyReplace:
		winner := list[len(list)-1]
		logging.Get(logging.CategoryRegistry).Debug("module %s: replace strategy picked %s", id, winner.Source)
		return &winner, nil

	default:
		return nil, fmt.Errorf("unknown conflict strategy %q", strategy)
	}
}

// ResolveAll resolves every known ID. It fails fast: the first conflict error
// (in sorted ID order) aborts the whole call.
func (r *Registry) ResolveAll(strategy ums.ConflictStrategy) (map[string]*ums.Module, error) {
	out := make(map[string]*ums.Module, r.Size())
	for _, id := range r.IDs() {
		m, err := r.Resolve(id, strategy)
		if err != nil {
			return nil, err
		}
		out[id] = m
	}
	return out, nil
}

// Diagnostics returns the warn-strategy messages emitted so far.
func (r *Registry) Diagnostics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}
