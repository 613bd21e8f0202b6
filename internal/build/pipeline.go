// Package build wires discovery, conflict resolution, rendering and reporting
// into a single persona build. Every build gets a fresh registry.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	"personakit/internal/config"
	"personakit/internal/loader"
	"personakit/internal/logging"
	"personakit/internal/registry"
	"personakit/internal/render"
	"personakit/internal/report"
	"personakit/internal/resolver"
	"personakit/internal/stdlib"
	"personakit/internal/ums"
	"personakit/internal/validate"
)

// Pipeline builds personas against a fixed configuration.
type Pipeline struct {
	cfg         *config.Config
	strategy    ums.ConflictStrategy
	strict      bool
	toolVersion string
	now         func() time.Time
	extra       []loader.SourceSpec
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStrategy overrides the configured default conflict strategy.
// Per-path onConflict settings still take precedence.
func WithStrategy(s ums.ConflictStrategy) Option {
	return func(p *Pipeline) { p.strategy = s }
}

// WithStrict turns missing module references into build failures.
func WithStrict(strict bool) Option {
	return func(p *Pipeline) { p.strict = strict }
}

// WithToolVersion sets the version stamped into build reports.
func WithToolVersion(v string) Option {
	return func(p *Pipeline) { p.toolVersion = v }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithSources appends module sources after the configured ones.
func WithSources(specs ...loader.SourceSpec) Option {
	return func(p *Pipeline) { p.extra = append(p.extra, specs...) }
}

// SlowBuild is the duration above which a build is logged as a warning.
const SlowBuild = 2 * time.Second

// New creates a pipeline. A nil config means the defaults. Relative paths in
// cfg resolve against cfg.BaseDir.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p := &Pipeline{
		cfg:         cfg.Resolved(),
		toolVersion: report.DefaultToolVersion,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the resolved configuration the pipeline runs with.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// DefaultStrategy is the strategy used for ids without a per-path override.
func (p *Pipeline) DefaultStrategy() ums.ConflictStrategy {
	if p.strategy != "" {
		return p.strategy
	}
	return p.cfg.ConflictStrategy
}

// Sources lists module roots in load order: the standard library first, then
// local paths in configured order, then extra sources.
func (p *Pipeline) Sources() []loader.SourceSpec {
	var specs []loader.SourceSpec
	if p.cfg.StandardLibrary.Enabled {
		if path := p.cfg.StandardLibrary.Path; path != "" {
			specs = append(specs, loader.SourceSpec{
				Source: ums.Source{Type: ums.SourceStandard, Path: path},
				FS:     os.DirFS(path),
			})
		} else {
			specs = append(specs, loader.SourceSpec{Source: stdlib.Source, FS: stdlib.FS()})
		}
	}
	for _, mp := range p.cfg.LocalModulePaths {
		specs = append(specs, loader.SourceSpec{
			Source: ums.Source{Type: ums.SourceLocal, Path: mp.Path},
			FS:     os.DirFS(mp.Path),
		})
	}
	return append(specs, p.extra...)
}

// Registry discovers every source and loads the result into a new registry.
func (p *Pipeline) Registry(ctx context.Context) (*registry.Registry, *loader.Discovery, error) {
	disc, err := loader.Discover(ctx, p.Sources())
	if err != nil {
		return nil, nil, &ums.BuildError{Op: "discover", Err: err}
	}
	reg := registry.New(p.DefaultStrategy())
	loader.Populate(reg, disc)
	return reg, disc, nil
}

// StrategyFor returns the strategy that applies to id: the onConflict of the
// last-added entry whose local path configures one, else the default.
func (p *Pipeline) StrategyFor(reg *registry.Registry, id string) ums.ConflictStrategy {
	entries := reg.Conflicts(id)
	for i := len(entries) - 1; i >= 0; i-- {
		src := entries[i].Source
		if src.Type != ums.SourceLocal {
			continue
		}
		if s, ok := p.cfg.StrategyForPath(src.Path); ok {
			return s
		}
	}
	return p.DefaultStrategy()
}

// Result is the outcome of a successful build.
type Result struct {
	Persona  *ums.Persona
	Markdown string
	Report   *ums.BuildReport
	// Warnings collects persona, discovery, conflict and resolution diagnostics.
	Warnings []string
	Missing  []string
	// Problems are module files skipped during discovery.
	Problems []error
}

// Build loads the persona at personaPath and composes it.
func (p *Pipeline) Build(ctx context.Context, personaPath string) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "Build "+personaPath)
	defer timer.StopWithThreshold(SlowBuild)
	log := logging.Get(logging.CategoryBoot).With("persona", personaPath)

	persona, _, err := loader.LoadPersona(personaPath)
	if err != nil {
		return nil, err
	}
	pv := validate.Persona(persona)
	if !pv.Valid {
		var errs error
		for i := range pv.Errors {
			errs = multierr.Append(errs, &pv.Errors[i])
		}
		return nil, &ums.PersonaLoadError{FilePath: personaPath, Err: errs}
	}

	reg, disc, err := p.Registry(ctx)
	if err != nil {
		return nil, err
	}

	available := make(map[string]*ums.Module)
	for _, id := range persona.ModuleIDs() {
		if _, done := available[id]; done || !reg.Has(id) {
			continue
		}
		m, err := reg.Resolve(id, p.StrategyFor(reg, id))
		if err != nil {
			return nil, err
		}
		available[id] = m
	}

	resolved := resolver.ResolveModules(persona.Modules, available)
	if len(resolved.Missing) > 0 {
		if p.strict {
			return nil, &ums.BuildError{
				Op:  "resolve",
				Err: fmt.Errorf("persona %s references unknown modules: %s", persona.Name, strings.Join(resolved.Missing, ", ")),
			}
		}
		log.Warn("Persona %s references unknown modules: %s", persona.Name, strings.Join(resolved.Missing, ", "))
	}

	md := render.RenderMarkdown(persona, resolved.Modules)

	rep, err := report.Generate(persona, resolved.Modules, disc.ContentsFor(resolved.Modules),
		report.WithClock(p.now), report.WithToolVersion(p.toolVersion))
	if err != nil {
		return nil, err
	}

	res := &Result{
		Persona:  persona,
		Markdown: md,
		Report:   rep,
		Missing:  resolved.Missing,
		Problems: disc.Problems,
	}
	for _, w := range pv.Warnings {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", personaPath, w))
	}
	res.Warnings = append(res.Warnings, disc.Warnings...)
	res.Warnings = append(res.Warnings, reg.Diagnostics()...)
	res.Warnings = append(res.Warnings, resolved.Warnings...)

	log.Info("Built persona %s: %d modules, %d warnings", persona.Name, len(resolved.Modules), len(res.Warnings))
	return res, nil
}

// WriteArtifacts writes the document to outPath and the report next to it.
func (r *Result) WriteArtifacts(outPath string) (string, error) {
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outPath, []byte(r.Markdown), 0644); err != nil {
		return "", fmt.Errorf("failed to write persona document: %w", err)
	}
	reportPath := report.PathFor(outPath)
	if err := report.Write(reportPath, r.Report); err != nil {
		return "", err
	}
	return reportPath, nil
}
