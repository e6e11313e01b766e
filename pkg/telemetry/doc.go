// Package telemetry provides observability for configuration resolution.
//
// It combines structured logging (zerolog), tracing (OpenTelemetry) and metrics
// (Prometheus). The resolution pipeline instruments every stage through it; library
// packages below the pipeline never log.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Stages
//
// StartStage opens a span, derives a stage logger and starts a timer. End records
// the stage duration histogram and the span status:
//
//	stage := tel.StartStage(ctx, "refine", telemetry.AttrModule.String(path))
//	refined := refiner.Refine(merged, selection)
//	stage.End(nil)
//
// # Metrics
//
// Metrics live in their own registry. The CLI can expose it over HTTP with
// Metrics.StartMetricsServer; tests read it with prometheus/testutil.
//
//	modconf_modules_resolved_total{status}
//	modconf_stage_duration_seconds{stage}
//	modconf_resolver_passes
//	modconf_reference_substitutions_total
//	modconf_problems_total{id,level}
//	modconf_cache_lookups_total{result}
//	modconf_active_resolutions
package telemetry
