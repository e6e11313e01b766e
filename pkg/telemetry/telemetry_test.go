package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "ci", mutate: func(c *Config) { *c = *CIConfig("collector:4317") }},
		{name: "development", mutate: func(c *Config) { *c = *DevelopmentConfig() }},
		{name: "missing service name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "bad exporter", mutate: func(c *Config) { c.Tracing.Exporter = "jaeger" }, wantErr: true},
		{name: "otlp without endpoint", mutate: func(c *Config) { c.Tracing.Exporter = "otlp" }, wantErr: true},
		{name: "sampling rate", mutate: func(c *Config) { c.Tracing.SamplingRate = 1.5 }, wantErr: true},
		{name: "metrics without namespace", mutate: func(c *Config) { c.Metrics.Namespace = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetrics_Record(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordCacheLookup(CacheMiss)
	m.RecordCacheLookup(CacheHit)
	m.RecordCacheLookup(CacheHit)
	m.ResolutionStarted()
	m.RecordModuleResolved("succeeded")
	m.RecordProblem("unknown.property", "error")
	m.RecordResolver(3, 5)
	m.RecordStage("refine", 2*time.Millisecond)

	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheHit)); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.modulesResolved.WithLabelValues("succeeded")); got != 1 {
		t.Errorf("resolved = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.activeResolutions); got != 0 {
		t.Errorf("active resolutions = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.substitutions); got != 5 {
		t.Errorf("substitutions = %v, want 5", got)
	}
	if n := testutil.CollectAndCount(m.stageDuration); n != 1 {
		t.Errorf("stage series = %d, want 1", n)
	}
}

func TestMetrics_Disabled(t *testing.T) {
	cfg := DefaultConfig().Metrics
	cfg.Enabled = false
	m, err := NewMetrics(cfg)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordCacheLookup(CacheHit)
	m.ResolutionStarted()
	m.RecordModuleResolved("failed")
	m.RecordResolver(1, 1)
	if m.Registry() != nil {
		t.Errorf("disabled metrics have a registry")
	}
	if srv := m.StartMetricsServer(); srv != nil {
		t.Errorf("disabled metrics started a server")
	}
}

func TestStartStage_LogsAndRecords(t *testing.T) {
	var buf bytes.Buffer
	tel := Discard()
	tel.Logger = Wrap(zerolog.New(&buf).Level(zerolog.DebugLevel))
	var err error
	tel.Metrics, err = NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	ctx := tel.WithContext(context.Background())
	ctx = FromContext(ctx).WithModule("module.yaml").WithContext(ctx)
	stage := tel.StartStage(ctx, "merge")
	stage.End(nil)

	out := buf.String()
	for _, want := range []string{`"stage":"merge"`, `"module":"module.yaml"`, "Stage finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q does not contain %q", out, want)
		}
	}
	if n := testutil.CollectAndCount(tel.Metrics.stageDuration); n != 1 {
		t.Errorf("stage series = %d, want 1", n)
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Errorf("FromContext() = nil, want a no-op logger")
	}
	if FromTelemetryContext(context.Background()) != nil {
		t.Errorf("FromTelemetryContext() found telemetry in an empty context")
	}
}
