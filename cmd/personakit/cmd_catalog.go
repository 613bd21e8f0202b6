package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"personakit/internal/catalog"
	"personakit/internal/registry"
	"personakit/internal/ums"
)

func (a *app) listCmd() *cobra.Command {
	var tier string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkTier(tier); err != nil {
				return err
			}
			reg, err := a.loadRegistry(cmd)
			if err != nil {
				return err
			}
			printModules(cmd.OutOrStdout(), reg, catalog.List(reg.Modules(), tier))
			return nil
		},
	}
	cmd.Flags().StringVar(&tier, "tier", "", "Only list one tier: foundation, principle, technology or execution")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var tier string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search modules by id, name, description, semantic text, tags and capabilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkTier(tier); err != nil {
				return err
			}
			reg, err := a.loadRegistry(cmd)
			if err != nil {
				return err
			}
			found := catalog.List(catalog.Search(reg.Modules(), args[0]), tier)
			if len(found) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No modules match %q\n", args[0])
				return nil
			}
			printModules(cmd.OutOrStdout(), reg, found)
			return nil
		},
	}
	cmd.Flags().StringVar(&tier, "tier", "", "Only search one tier")
	return cmd
}

func checkTier(tier string) error {
	if tier == "" {
		return nil
	}
	for _, t := range ums.AllTiers() {
		if string(t) == tier {
			return nil
		}
	}
	return fmt.Errorf("unknown tier %q (want foundation, principle, technology or execution)", tier)
}

// loadRegistry discovers every configured source and reports skipped files.
func (a *app) loadRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	reg, disc, err := a.pipeline().Registry(cmd.Context())
	if err != nil {
		return nil, err
	}
	printErrors(cmd.ErrOrStderr(), disc.Problems)
	return reg, nil
}

func printModules(w io.Writer, reg *registry.Registry, mods []*ums.Module) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tNAME\tSOURCE")
	for _, m := range mods {
		src := m.Origin.Source.String()
		if n := len(reg.Conflicts(m.ID)); n > 1 {
			src = fmt.Sprintf("%s (+%d)", src, n-1)
		}
		name := m.Name()
		if m.Metadata.Deprecated {
			name += " " + mutedStyle.Render("[deprecated]")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Version, name, src)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d modules\n", len(mods))
}
