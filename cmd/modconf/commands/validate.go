package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/frontend"
	"github.com/openfroyo/modconf/pkg/model"
	"github.com/openfroyo/modconf/pkg/policy"
)

func newValidateCommand() *cobra.Command {
	var sel selectionFlags

	cmd := &cobra.Command{
		Use:   "validate <module.yaml>...",
		Short: "Check modules against the schema and policies",
		Long: `Validate modules for every platform of their product.

This command checks:
  - YAML syntax and the module schema
  - References and reference cycles
  - CUE constraints of the complete settings
  - Policy compliance (OPA/rego), built-in and configured policies

Without --platform every platform the product declares is validated.`,
		Example: `  # Validate all platforms of two modules
  modconf validate app/module.yaml lib/module.yaml

  # Validate test settings for Android only
  modconf validate app/module.yaml -p android --test`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx := a.context(cmd.Context())
			defer a.close(ctx)

			eng, err := a.policies(ctx)
			if err != nil {
				return err
			}

			// The platform-independent resolution tells which platforms to check.
			base, err := a.frontend.ResolveAll(ctx, args, contexts.Empty)
			if err != nil {
				return err
			}

			failed := false
			for i, path := range args {
				ok, err := a.validateModule(ctx, eng, path, a.selections(base[i], sel))
				if err != nil {
					return err
				}
				failed = failed || !ok
			}

			if failed {
				return ErrProblems
			}
			a.tel.Logger.Infof("%d modules are valid", len(args))
			return nil
		},
	}

	sel.register(cmd)

	return cmd
}

// selections lists the selections a module is validated for.
func (a *app) selections(base *frontend.Resolution, sel selectionFlags) []contexts.Contexts {
	if len(sel.platforms) > 0 {
		return []contexts.Contexts{sel.selection()}
	}

	m, err := model.FromResolution(base)
	if err != nil || len(m.Platforms()) == 0 {
		return []contexts.Contexts{frontend.Selection(nil, sel.test)}
	}

	out := make([]contexts.Contexts, 0, len(m.Platforms()))
	for _, p := range m.Platforms() {
		out = append(out, frontend.Selection([]string{p}, sel.test))
	}
	return out
}

func (a *app) validateModule(ctx context.Context, eng *policy.Engine, path string, selections []contexts.Contexts) (bool, error) {
	m, err := a.frontend.LoadModule(ctx, path)
	if err != nil {
		return false, err
	}

	logger := a.tel.Logger.WithModule(m.Path)
	seen := make(map[string]bool)
	ok := true

	for _, sel := range selections {
		res, err := m.Resolve(ctx, sel)
		if err != nil {
			return false, err
		}

		problems := res.Problems
		if res.Tree != nil {
			result, err := eng.Evaluate(ctx, policy.NewInput(m.Path, sel, res.Value))
			if err != nil {
				return false, err
			}
			c := diagnostics.NewCollector()
			result.Report(c, res.Tree.Trace)
			problems = append(problems, c.Problems()...)
		}

		failed := a.report(seen, problems)
		if failed || res.Tree == nil {
			ok = false
		}
		logger.WithField("selection", sel.String()).
			WithField("problems", len(problems)).
			Debug("Selection validated")
	}

	if ok {
		logger.Info("Module is valid")
	} else {
		logger.Error("Module is invalid")
	}
	return ok, nil
}
