package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"

	"golang.org/x/sync/errgroup"

	"personakit/internal/logging"
	"personakit/internal/registry"
	"personakit/internal/ums"
	"personakit/internal/validate"
)

// SourceSpec is one root to scan for module files.
type SourceSpec struct {
	Source ums.Source
	FS     fs.FS
	// Root is the directory inside FS to walk; "" means ".".
	Root string
}

// Loaded is a parsed, validated module with its raw file bytes.
type Loaded struct {
	Module *ums.Module
	Raw    []byte
	Source ums.Source
}

// Discovery is the outcome of scanning every source.
type Discovery struct {
	// Modules are ordered by source, then by file path.
	Modules []Loaded
	// Problems holds one *ums.ModuleLoadError per file that was skipped.
	Problems []error
	// Warnings are non-fatal validator findings, prefixed with the file path.
	Warnings []string

	raw map[*ums.Module][]byte
}

// Raw returns the file bytes a module was parsed from.
func (d *Discovery) Raw(m *ums.Module) ([]byte, bool) {
	b, ok := d.raw[m]
	return b, ok
}

// ContentsFor returns the raw bytes of the given modules keyed by module id,
// the shape the report generator digests.
func (d *Discovery) ContentsFor(mods []*ums.Module) map[string][]byte {
	out := make(map[string][]byte, len(mods))
	for _, m := range mods {
		if b, ok := d.raw[m]; ok {
			out[m.ID] = b
		}
	}
	return out
}

type slot struct {
	loaded   *Loaded
	problem  error
	warnings []string
}

// Discover walks every source and parses its module files in parallel. The
// result order does not depend on scheduling: it is source order, then
// lexical path order within a source.
func Discover(ctx context.Context, sources []SourceSpec) (*Discovery, error) {
	timer := logging.StartTimer(logging.CategoryDiscovery, "Discover")
	defer timer.Stop()
	log := logging.Get(logging.CategoryDiscovery)

	files := make([][]string, len(sources))
	slots := make([][]slot, len(sources))
	var walkProblems []error

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := listModuleFiles(src)
		if err != nil {
			log.Warn("Skipping source %s: %v", src.Source, err)
			walkProblems = append(walkProblems, &ums.ModuleLoadError{FilePath: src.Source.Path, Err: err})
			continue
		}
		files[i] = found
		slots[i] = make([]slot, len(found))
		log.Debug("Source %s: %d module files", src.Source, len(found))
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := range sources {
		for j := range files[i] {
			src, name, out := sources[i], files[i][j], &slots[i][j]
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				*out = loadOne(src, name)
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := &Discovery{Problems: walkProblems, raw: make(map[*ums.Module][]byte)}
	for i := range slots {
		for _, s := range slots[i] {
			d.Warnings = append(d.Warnings, s.warnings...)
			if s.problem != nil {
				d.Problems = append(d.Problems, s.problem)
				continue
			}
			d.Modules = append(d.Modules, *s.loaded)
			d.raw[s.loaded.Module] = s.loaded.Raw
		}
	}

	for _, p := range d.Problems {
		log.Warn("%v", p)
	}
	log.Info("Discovered %d modules from %d sources (%d skipped)", len(d.Modules), len(sources), len(d.Problems))
	return d, nil
}

func listModuleFiles(src SourceSpec) ([]string, error) {
	if src.FS == nil {
		return nil, errors.New("source has no filesystem")
	}
	root := src.Root
	if root == "" {
		root = "."
	}
	var out []string
	// WalkDir visits entries in lexical order
	err := fs.WalkDir(src.FS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return fs.SkipDir
			}
			return nil
		}
		if IsModuleFile(d.Name()) {
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

func loadOne(src SourceSpec, name string) slot {
	display := path.Join(src.Source.Path, name)

	data, err := fs.ReadFile(src.FS, name)
	if err != nil {
		return slot{problem: &ums.ModuleLoadError{FilePath: display, Err: err}}
	}
	m, err := ParseModule(data, display)
	if err != nil {
		return slot{problem: err}
	}
	m.Origin.Source = src.Source

	res := validate.Module(m)
	var warnings []string
	for _, w := range res.Warnings {
		warnings = append(warnings, fmt.Sprintf("%s: %s", display, w))
	}
	if !res.Valid {
		return slot{problem: &ums.ModuleLoadError{FilePath: display, Err: res.Err()}, warnings: warnings}
	}
	return slot{loaded: &Loaded{Module: m, Raw: data, Source: src.Source}, warnings: warnings}
}

// Populate adds discovered modules to reg in discovery order.
func Populate(reg *registry.Registry, d *Discovery) {
	for _, l := range d.Modules {
		reg.Add(l.Module, l.Source)
	}
}
