// Command personakit composes persona documents from reusable instruction
// modules and records a provenance report for every build.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"personakit/internal/build"
	"personakit/internal/config"
	"personakit/internal/logging"
)

// version is set at link time.
var version = "dev"

// app holds global flag values and the loaded configuration.
type app struct {
	configPath string
	verbose    bool
	jsonLogs   bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "personakit",
		Short: "Compose persona documents from reusable instruction modules",
		Long: `personakit builds a single Markdown persona document from a persona file
that lists instruction modules by id. Modules come from the embedded standard
library and from local module directories; when several sources define the same
id the configured conflict strategy picks the winner.

Every build also writes a <name>.build.json report with the SHA-256 digest of
each composed module file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if err := logging.Init(cfg.Logging.Options(a.verbose, a.jsonLogs)); err != nil {
				return err
			}
			logging.Get(logging.CategoryCLI).Debug("Loaded config %s (base %s)", a.configPath, cfg.BaseDir)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultFileName, "Path to the modules config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&a.jsonLogs, "json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(
		a.buildCmd(),
		a.listCmd(),
		a.searchCmd(),
		a.validateCmd(),
		a.inspectCmd(),
		a.historyCmd(),
	)
	return rootCmd
}

// pipeline builds a pipeline from the loaded config plus extra options.
func (a *app) pipeline(opts ...build.Option) *build.Pipeline {
	opts = append([]build.Option{build.WithToolVersion(version)}, opts...)
	return build.New(a.cfg, opts...)
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
