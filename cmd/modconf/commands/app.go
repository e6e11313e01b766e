package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openfroyo/modconf/pkg/config"
	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/frontend"
	"github.com/openfroyo/modconf/pkg/policy"
	"github.com/openfroyo/modconf/pkg/telemetry"
)

// app holds what the commands share: configuration, telemetry and the frontend.
type app struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	frontend *frontend.Frontend
	reporter diagnostics.Reporter
	out      io.Writer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	cfg.Telemetry.ServiceVersion = cmd.Root().Version

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	tel.Metrics.StartMetricsServer()

	f, err := frontend.New(cfg.Frontend, tel)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		tel:      tel,
		frontend: f,
		reporter: diagnostics.NewLogReporter(tel.Logger.Zerolog()),
		out:      cmd.OutOrStdout(),
	}, nil
}

// context attaches the telemetry to ctx.
func (a *app) context(ctx context.Context) context.Context {
	return a.tel.WithContext(ctx)
}

func (a *app) close(ctx context.Context) {
	if err := a.tel.Shutdown(ctx); err != nil {
		a.tel.Logger.WithError(err).Warn("Telemetry shutdown failed")
	}
}

// policies builds a policy engine with the configured custom policies.
func (a *app) policies(ctx context.Context) (*policy.Engine, error) {
	eng, err := policy.NewEngine(a.tel.Logger.NewComponentLogger("policy").Zerolog())
	if err != nil {
		return nil, err
	}
	if len(a.cfg.Policies) > 0 {
		if err := eng.LoadPolicies(ctx, a.cfg.Policies); err != nil {
			return nil, err
		}
	}
	for _, name := range a.cfg.DisabledPolicies {
		if err := eng.DisablePolicy(name); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// report logs problems once each and tells whether one of them is an error.
func (a *app) report(seen map[string]bool, problems []diagnostics.Problem) bool {
	failed := false
	for _, p := range problems {
		if p.Level >= diagnostics.LevelError {
			failed = true
		}
		key := p.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		a.reporter.Report(p)
	}
	return failed
}

// selectionFlags are the flags choosing the platforms to resolve for.
type selectionFlags struct {
	platforms []string
	test      bool
}

func (s *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&s.platforms, "platform", "p", nil, "platforms to resolve for (repeatable)")
	cmd.Flags().BoolVar(&s.test, "test", false, "resolve test code settings")
}

func (s *selectionFlags) selection() contexts.Contexts {
	return frontend.Selection(s.platforms, s.test)
}
