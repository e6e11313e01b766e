package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// ErrProblems is returned when a command found error-level problems. The problems
// themselves have been logged already.
var ErrProblems = errors.New("configuration has problems")

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modconf",
		Short: "Resolve multi-platform module configuration",
		Long: `modconf reads module.yaml files and their templates, merges them and resolves
the settings that apply to a selection of platforms.

Every value of a module file can be qualified with a platform (settings@android)
or with test code (test-settings). Resolution picks the most specific value
for the selection, fills in defaults, substitutes ${references} and checks the
result against the module schema and policies.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "tool configuration file (default ./modconf.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newDumpCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newSchemaCommand())

	return rootCmd
}
