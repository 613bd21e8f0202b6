// Package report generates the build report: a provenance record of exactly
// which module definitions were composed into a persona document, with
// content digests that are reproducible byte-for-byte from the same inputs.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"personakit/internal/logging"
	"personakit/internal/ums"
)

// DefaultToolVersion is reported when no version is injected.
const DefaultToolVersion = "dev"

// UngroupedName names the group that collects consecutive bare module references.
const UngroupedName = "Ungrouped"

// Suffix replaces the document extension to form the report path.
const Suffix = ".build.json"

type options struct {
	now         func() time.Time
	toolVersion string
}

// Option configures Generate.
type Option func(*options)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithToolVersion sets the reported tool version.
func WithToolVersion(v string) Option {
	return func(o *options) { o.toolVersion = v }
}

// Digest returns the hex SHA-256 of raw content.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// canonicalPersona is the digest projection of a persona. Field order is the
// canonical key order; build-environment fields are deliberately absent.
type canonicalPersona struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Semantic    string        `json:"semantic"`
	Identity    string        `json:"identity"`
	Modules     []interface{} `json:"modules"`
}

type canonicalGroup struct {
	Group string   `json:"group"`
	IDs   []string `json:"ids"`
}

// CanonicalPersona returns the canonical JSON encoding used for the persona digest.
func CanonicalPersona(p *ums.Persona) ([]byte, error) {
	cp := canonicalPersona{
		Name:        p.Name,
		Description: p.Description,
		Semantic:    p.Semantic,
		Identity:    p.Identity,
		Modules:     make([]interface{}, 0, len(p.Modules)),
	}
	for _, e := range p.Modules {
		if e.Bare && len(e.IDs) == 1 {
			cp.Modules = append(cp.Modules, e.IDs[0])
			continue
		}
		ids := e.IDs
		if ids == nil {
			ids = []string{}
		}
		cp.Modules = append(cp.Modules, canonicalGroup{Group: e.Group, IDs: ids})
	}
	return json.Marshal(cp)
}

// PersonaDigest hashes the canonical persona projection.
func PersonaDigest(p *ums.Persona) (string, error) {
	data, err := CanonicalPersona(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode persona %s: %w", p.Name, err)
	}
	return Digest(data), nil
}

// Generate builds the report for a persona and its resolved modules.
// contents maps module IDs to the raw source bytes the module was parsed from;
// a module without raw content gets an empty digest rather than a digest of
// the parsed structure.
func Generate(p *ums.Persona, modules []*ums.Module, contents map[string][]byte, opts ...Option) (*ums.BuildReport, error) {
	timer := logging.StartTimer(logging.CategoryReport, "Generate")
	defer timer.Stop()

	o := options{now: time.Now, toolVersion: DefaultToolVersion}
	for _, opt := range opts {
		opt(&o)
	}

	if p == nil {
		return nil, &ums.BuildError{Op: "report", Err: fmt.Errorf("persona is nil")}
	}

	personaDigest, err := PersonaDigest(p)
	if err != nil {
		return nil, &ums.BuildError{Op: "report", Err: err}
	}

	byID := make(map[string]*ums.Module, len(modules))
	for _, m := range modules {
		if m != nil {
			byID[m.ID] = m
		}
	}

	r := &ums.BuildReport{
		PersonaName:    p.Name,
		SchemaVersion:  p.SchemaVersion,
		ToolVersion:    o.toolVersion,
		PersonaDigest:  personaDigest,
		BuildTimestamp: o.now().UTC().Format(time.RFC3339Nano),
		ModuleGroups:   []ums.ReportModuleGroup{},
	}

	seen := make(map[string]bool)
	var current *ums.ReportModuleGroup
	flush := func() {
		if current != nil && len(current.Modules) > 0 {
			r.ModuleGroups = append(r.ModuleGroups, *current)
		}
		current = nil
	}

	for i, entry := range p.Modules {
		name := entry.Group
		if entry.Bare || name == "" {
			name = UngroupedName
		}
		// consecutive bare entries share one group
		continuing := current != nil && entry.Bare && i > 0 && p.Modules[i-1].Bare
		if !continuing {
			flush()
			current = &ums.ReportModuleGroup{GroupName: name, Modules: []ums.ReportModule{}}
		}
		for _, id := range entry.IDs {
			m, ok := byID[id]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			current.Modules = append(current.Modules, moduleRecord(m, contents))
		}
	}
	flush()

	logging.Get(logging.CategoryReport).Debug("report for %s: %d groups, persona digest %s", p.Name, len(r.ModuleGroups), personaDigest)
	return r, nil
}

func moduleRecord(m *ums.Module, contents map[string][]byte) ums.ReportModule {
	digest := ""
	if raw, ok := contents[m.ID]; ok {
		digest = Digest(raw)
	}
	return ums.ReportModule{
		ID:         m.ID,
		Name:       m.Name(),
		Version:    m.Version,
		Source:     m.Origin.Source.String(),
		Digest:     digest,
		Deprecated: m.Metadata.Deprecated,
		ReplacedBy: m.Metadata.ReplacedBy,
	}
}

// PathFor derives the report path from the rendered document path.
func PathFor(outputPath string) string {
	ext := filepath.Ext(outputPath)
	if ext == "" {
		return outputPath + Suffix
	}
	return strings.TrimSuffix(outputPath, ext) + Suffix
}

// Write stores the report as indented JSON.
func Write(path string, r *ums.BuildReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal build report: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write build report: %w", err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (*ums.BuildReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build report: %w", err)
	}
	var r ums.BuildReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse build report %s: %w", path, err)
	}
	return &r, nil
}

// Digests maps every module id in r to its digest. A nil report has none.
func Digests(r *ums.BuildReport) map[string]string {
	out := make(map[string]string)
	if r == nil {
		return out
	}
	for _, m := range r.Modules() {
		out[m.ID] = m.Digest
	}
	return out
}

// ChangedModules returns the sorted ids that were added, removed or whose
// digest differs between prev and cur.
func ChangedModules(prev, cur map[string]string) []string {
	changed := []string{}
	for id, digest := range cur {
		if old, ok := prev[id]; !ok || old != digest {
			changed = append(changed, id)
		}
	}
	for id := range prev {
		if _, ok := cur[id]; !ok {
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)
	return changed
}
