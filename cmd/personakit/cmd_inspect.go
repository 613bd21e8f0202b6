package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"personakit/internal/build"
	"personakit/internal/registry"
	"personakit/internal/render"
)

type inspectFlags struct {
	conflicts bool
	sources   bool
	render    bool
}

func (a *app) inspectCmd() *cobra.Command {
	f := &inspectFlags{}
	cmd := &cobra.Command{
		Use:   "inspect [module-id]",
		Short: "Inspect the module registry, its conflicts and sources",
		Long: `Without arguments prints a registry summary. With a module id prints every
definition of that id and which one wins under the applicable strategy.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.pipeline()
			reg, disc, err := p.Registry(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printErrors(cmd.ErrOrStderr(), disc.Problems)

			if len(args) == 1 {
				return inspectModule(out, p, reg, args[0], f.render)
			}

			fmt.Fprintf(out, "%s %d modules, %d conflicting\n", headerStyle.Render("Registry:"), reg.Size(), len(reg.ConflictingIDs()))
			if f.sources {
				printSources(out, reg)
			}
			if f.conflicts {
				printConflicts(out, p, reg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.conflicts, "conflicts", false, "List ids defined by more than one source")
	cmd.Flags().BoolVar(&f.sources, "sources", false, "Count modules per source")
	cmd.Flags().BoolVar(&f.render, "render", false, "Render the winning definition of the module")
	return cmd
}

func printSources(w io.Writer, reg *registry.Registry) {
	summary := reg.SourceSummary()
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, headerStyle.Render("Sources:"))
	for _, k := range keys {
		fmt.Fprintf(w, "  %-50s %d\n", k, summary[k])
	}
}

func printConflicts(w io.Writer, p *build.Pipeline, reg *registry.Registry) {
	ids := reg.ConflictingIDs()
	fmt.Fprintln(w, headerStyle.Render("Conflicts:"))
	if len(ids) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	for _, id := range ids {
		fmt.Fprintf(w, "  %s %s\n", id, mutedStyle.Render("("+string(p.StrategyFor(reg, id))+")"))
		for _, e := range reg.Conflicts(id) {
			fmt.Fprintf(w, "    #%d %s\n", e.AddedAt, e.Source)
		}
	}
}

func inspectModule(w io.Writer, p *build.Pipeline, reg *registry.Registry, id string, doRender bool) error {
	if !reg.Has(id) {
		return fmt.Errorf("module %s not found", id)
	}
	strategy := p.StrategyFor(reg, id)
	entries := reg.Conflicts(id)

	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Module:"), id)
	fmt.Fprintf(w, "Strategy: %s\n", strategy)
	if len(entries) > 1 {
		fmt.Fprintln(w, "Definitions:")
		for _, e := range entries {
			fmt.Fprintf(w, "  #%d %s %s\n", e.AddedAt, e.Source, e.Module.Origin.Path)
		}
	}

	winner, err := reg.ResolveEntry(id, strategy)
	if err != nil {
		return err
	}
	m := winner.Module
	fmt.Fprintf(w, "Winner: %s (%s)\n", winner.Source, m.Origin.Path)
	fmt.Fprintf(w, "Name: %s\nVersion: %s\n", m.Name(), m.Version)
	if m.Metadata.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", m.Metadata.Description)
	}
	if m.Metadata.Deprecated {
		replacement := m.Metadata.ReplacedBy
		if replacement == "" {
			replacement = "no replacement"
		}
		fmt.Fprintf(w, "Deprecated: %s\n", replacement)
	}

	if doRender {
		rendered, err := renderTerminal(render.RenderModule(m))
		if err != nil {
			return err
		}
		fmt.Fprint(w, "\n"+rendered)
	}
	return nil
}
