package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"personakit/internal/loader"
	"personakit/internal/logging"
	"personakit/internal/ums"
	"personakit/internal/validate"
)

// fileIssues is the validation outcome of one file.
type fileIssues struct {
	path     string
	errors   []string
	warnings []string
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Validate module and persona files",
		Long: `Validates every *.module.yml and *.persona.yml file under the given paths.
Without arguments the configured module and persona directories are checked.
Exits non-zero when any file has errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = a.defaultValidatePaths()
			}
			return runValidate(cmd.OutOrStdout(), paths)
		},
	}
}

func (a *app) defaultValidatePaths() []string {
	cfg := a.cfg.Resolved()
	var paths []string
	if cfg.StandardLibrary.Enabled && cfg.StandardLibrary.Path != "" {
		paths = append(paths, cfg.StandardLibrary.Path)
	}
	for _, mp := range cfg.LocalModulePaths {
		paths = append(paths, mp.Path)
	}
	return append(paths, cfg.PersonaPaths...)
}

func runValidate(w io.Writer, paths []string) error {
	timer := logging.StartTimer(logging.CategoryValidate, "validate command")
	defer timer.Stop()

	var results []fileIssues
	for _, root := range paths {
		files, err := collectFiles(root)
		if err != nil {
			if os.IsNotExist(err) {
				logging.Get(logging.CategoryValidate).Debug("Skipping missing path %s", root)
				continue
			}
			return err
		}
		for _, f := range files {
			results = append(results, validateFile(f))
		}
	}

	failed, warned := 0, 0
	for _, r := range results {
		switch {
		case len(r.errors) > 0:
			failed++
			fmt.Fprintln(w, errorStyle.Render("✗ ")+r.path)
		case len(r.warnings) > 0:
			warned++
			fmt.Fprintln(w, warningStyle.Render("! ")+r.path)
		default:
			fmt.Fprintln(w, successStyle.Render("✓ ")+r.path)
		}
		for _, e := range r.errors {
			fmt.Fprintln(w, "    "+errorStyle.Render("error: ")+e)
		}
		for _, msg := range r.warnings {
			fmt.Fprintln(w, "    "+warningStyle.Render("warning: ")+msg)
		}
	}
	fmt.Fprintf(w, "\n%d files checked, %d with errors, %d with warnings\n", len(results), failed, warned)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(results))
	}
	return nil
}

// collectFiles returns module and persona files at or below root in lexical order.
func collectFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if loader.IsModuleFile(d.Name()) || loader.IsPersonaFile(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func validateFile(path string) fileIssues {
	out := fileIssues{path: path}

	var res ums.ValidationResult
	switch {
	case loader.IsPersonaFile(path):
		p, _, err := loader.LoadPersona(path)
		if err != nil {
			out.errors = append(out.errors, err.Error())
			return out
		}
		res = validate.Persona(p)
	case loader.IsModuleFile(path):
		m, _, err := loader.LoadModule(path)
		if err != nil {
			out.errors = append(out.errors, err.Error())
			return out
		}
		res = validate.Module(m)
	default:
		out.errors = append(out.errors, "not a module or persona file")
		return out
	}

	for i := range res.Errors {
		out.errors = append(out.errors, res.Errors[i].Error())
	}
	for _, w := range res.Warnings {
		out.warnings = append(out.warnings, w.String())
	}
	return out
}
