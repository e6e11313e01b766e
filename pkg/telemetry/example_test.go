package telemetry_test

import (
	"context"
	"errors"

	"github.com/openfroyo/modconf/pkg/telemetry"
)

// Example_stageInstrumentation shows how the pipeline wraps a stage.
func Example_stageInstrumentation() {
	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())
	ctx = telemetry.FromContext(ctx).WithModule("app/module.yaml").WithContext(ctx)

	stage := tel.StartStage(ctx, "refine", telemetry.AttrModule.String("app/module.yaml"))
	stage.Logger.Debug("Refining merged tree")
	stage.End(nil)

	failed := tel.StartStage(ctx, "complete")
	failed.End(errors.New("root could not be completed"))
}

// Example_ciConfiguration shows the configuration used on build servers.
func Example_ciConfiguration() {
	cfg := telemetry.CIConfig("otel-collector:4317")
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
}
