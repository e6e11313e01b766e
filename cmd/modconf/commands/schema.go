package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openfroyo/modconf/pkg/schema"
)

func newSchemaCommand() *cobra.Command {
	var names bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the module schema",
		Long: `Print the CUE definitions module files are read against. Optional fields,
defaults and the @dependsOn/@transform attributes describe how missing values
are filled in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !names {
				_, err := io.WriteString(out, schema.ModuleSource())
				return err
			}

			registry, err := schema.Builtin()
			if err != nil {
				return err
			}
			for _, name := range registry.Names() {
				if _, err := fmt.Fprintln(out, name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&names, "names", false, "list the object declarations only")

	return cmd
}
