package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openfroyo/modconf/pkg/tree"
)

func newDumpCommand() *cobra.Command {
	var (
		sel   selectionFlags
		stage string
	)

	cmd := &cobra.Command{
		Use:   "dump <module.yaml>",
		Short: "Print an intermediate configuration tree",
		Long: `Print the configuration tree of a module after one pipeline stage, with the
contexts of every key. Paths are printed relative to the module directory.

Stages:
  merged           module and templates merged, defaults included
  merged-resolved  merged with references substituted for every platform
  refined          the values visible for the selection
  resolved         refined with references substituted
  complete         the typed result`,
		Example: `  modconf dump app/module.yaml --stage merged
  modconf dump app/module.yaml --stage refined -p iosArm64`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch stage {
			case "merged", "merged-resolved", "refined", "resolved", "complete":
			default:
				return fmt.Errorf("unknown stage %q (merged, merged-resolved, refined, resolved, complete)", stage)
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
			root := filepath.Dir(m.Path)

			switch stage {
			case "merged":
				a.report(map[string]bool{}, m.Problems)
				return tree.DumpTo(a.out, m.Merged.Root(), root)
			case "merged-resolved":
				a.report(map[string]bool{}, m.Problems)
				merged, _, err := m.ResolveMerged(ctx)
				if err != nil {
					return err
				}
				return tree.DumpTo(a.out, merged.Root(), root)
			}

			res, err := m.Resolve(ctx, sel.selection())
			if err != nil {
				return err
			}
			a.report(map[string]bool{}, res.Problems)

			var n tree.Node
			switch stage {
			case "refined":
				n = res.Refined.Root()
			case "resolved":
				n = res.Resolved.Root()
			default:
				n = res.Tree
			}
			return tree.DumpTo(a.out, n, root)
		},
	}

	sel.register(cmd)
	cmd.Flags().StringVar(&stage, "stage", "refined", "pipeline stage to print")

	return cmd
}
