package ums

// Persona is an ordered composition request over module IDs plus presentation options.
type Persona struct {
	Name          string
	Version       string
	SchemaVersion string
	Description   string
	Semantic      string
	Identity      string
	Attribution   bool
	Modules       []ModuleEntry

	Origin Origin
}

// ModuleEntry is one item of a persona's module list: either a bare ID or a named group.
type ModuleEntry struct {
	Group string
	IDs   []string
	Bare  bool
}

// BareEntry returns an entry for a single ungrouped module ID.
func BareEntry(id string) ModuleEntry {
	return ModuleEntry{IDs: []string{id}, Bare: true}
}

// GroupEntry returns a named group entry.
func GroupEntry(name string, ids ...string) ModuleEntry {
	return ModuleEntry{Group: name, IDs: ids}
}

// ModuleIDs returns every referenced ID in declared order, duplicates included.
func (p *Persona) ModuleIDs() []string {
	var ids []string
	for _, e := range p.Modules {
		ids = append(ids, e.IDs...)
	}
	return ids
}
