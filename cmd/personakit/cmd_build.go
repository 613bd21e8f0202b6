package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"personakit/internal/build"
	"personakit/internal/loader"
	"personakit/internal/logging"
	"personakit/internal/report"
	"personakit/internal/store"
	"personakit/internal/ums"
)

type buildFlags struct {
	output   string
	strategy string
	strict   bool
	preview  bool
	watch    bool
}

func (a *app) buildCmd() *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build <persona.yml>",
		Short: "Build a persona document and its build report",
		Long: `Loads the persona, discovers every configured module source, resolves
each referenced module id under the applicable conflict strategy and writes
the rendered Markdown plus a <name>.build.json report next to it.

Example:
  personakit build personas/code-reviewer.persona.yml -o dist/reviewer.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output Markdown path (default: <persona>.md)")
	cmd.Flags().StringVar(&f.strategy, "conflict-strategy", "", "Override the default conflict strategy: error, warn or replace")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Fail when the persona references unknown modules")
	cmd.Flags().BoolVar(&f.preview, "preview", false, "Render the document to the terminal")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "Rebuild whenever module or persona files change")
	return cmd
}

// defaultOutput derives "<stem>.md" in the working directory from a persona path.
func defaultOutput(personaPath string) string {
	base := filepath.Base(personaPath)
	for _, suf := range loader.PersonaSuffixes {
		if strings.HasSuffix(strings.ToLower(base), suf) {
			return base[:len(base)-len(suf)] + ".md"
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".md"
}

func (a *app) runBuild(cmd *cobra.Command, personaPath string, f *buildFlags) error {
	opts := []build.Option{build.WithStrict(f.strict)}
	if f.strategy != "" {
		s, err := ums.ParseConflictStrategy(f.strategy)
		if err != nil {
			return err
		}
		opts = append(opts, build.WithStrategy(s))
	}
	p := a.pipeline(opts...)

	out := f.output
	if out == "" {
		out = defaultOutput(personaPath)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := p.Build(ctx, personaPath)
	if err != nil {
		return err
	}
	if err := a.emit(ctx, cmd, res, out, f.preview); err != nil {
		return err
	}
	if !f.watch {
		return nil
	}

	w, err := build.NewWatcher(p, personaPath, func(res *build.Result, err error) {
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("rebuild failed: ")+err.Error())
			return
		}
		if err := a.emit(ctx, cmd, res, out, f.preview); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("error: ")+err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return multierr.Append(fmt.Errorf("failed to start watcher: %w", err), w.Stop())
	}
	fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("watching for changes; press Ctrl+C to stop"))
	<-ctx.Done()
	return w.Stop()
}

// emit writes artifacts, prints diagnostics and records the build in the ledger.
func (a *app) emit(ctx context.Context, cmd *cobra.Command, res *build.Result, out string, preview bool) error {
	stderr := cmd.ErrOrStderr()
	printErrors(stderr, res.Problems)
	printWarnings(stderr, res.Warnings)
	if len(res.Missing) > 0 {
		printWarnings(stderr, []string{"unknown modules: " + strings.Join(res.Missing, ", ")})
	}

	var prev *ums.BuildReport
	if !a.cfg.Ledger.Enabled {
		// the previous report on disk stands in for the ledger
		r, err := report.Read(report.PathFor(out))
		if err != nil {
			logging.Get(logging.CategoryCLI).Debug("No previous report: %v", err)
		} else {
			prev = r
		}
	}

	reportPath, err := res.WriteArtifacts(out)
	if err != nil {
		return err
	}

	if a.cfg.Ledger.Enabled {
		if err := a.record(ctx, stderr, res.Report); err != nil {
			return err
		}
	} else if prev != nil {
		printChanged(stderr, report.ChangedModules(report.Digests(prev), report.Digests(res.Report)))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d modules)\n", successStyle.Render("built"), out, len(res.Report.Modules()))
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mutedStyle.Render("report"), reportPath)

	if preview {
		rendered, err := renderTerminal(res.Markdown)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
	}
	return nil
}

func (a *app) record(ctx context.Context, w io.Writer, rep *ums.BuildReport) error {
	ledger, err := store.Open(a.cfg.Resolved().Ledger.Path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	changed, err := ledger.Changed(ctx, rep)
	if err != nil {
		return err
	}
	id, err := ledger.Record(ctx, rep)
	if err != nil {
		return err
	}
	logging.Get(logging.CategoryCLI).Debug("Recorded build %s in %s", id, ledger.Path())
	printChanged(w, changed)
	return nil
}

func printChanged(w io.Writer, changed []string) {
	if len(changed) > 0 {
		fmt.Fprintf(w, "%s %s\n", mutedStyle.Render("changed since last build:"), strings.Join(changed, ", "))
	}
}
