package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newResolveCommand() *cobra.Command {
	var (
		sel    selectionFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "resolve <module.yaml>",
		Short: "Print the resolved settings of a module",
		Long: `Resolve a module for a selection of platforms and print the complete value.

Problems are logged to stderr. The command fails when the module does not
resolve to a complete value or has error-level problems.`,
		Example: `  # Settings for the JVM
  modconf resolve app/module.yaml --platform jvm

  # Android test settings as YAML
  modconf resolve app/module.yaml -p android --test --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format %q (json, yaml)", format)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx := a.context(cmd.Context())
			defer a.close(ctx)

			m, err := a.frontend.LoadModule(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := m.Resolve(ctx, sel.selection())
			if err != nil {
				return err
			}

			failed := a.report(map[string]bool{}, res.Problems)
			if res.Tree == nil {
				return ErrProblems
			}
			if err := writeValue(a.out, format, res.Value); err != nil {
				return err
			}
			if failed {
				return ErrProblems
			}
			return nil
		},
	}

	sel.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, yaml)")

	return cmd
}

func writeValue(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
