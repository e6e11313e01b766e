package frontend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/resolve"
	"github.com/openfroyo/modconf/pkg/telemetry"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func newFrontend(t *testing.T, opts Options) (*Frontend, *telemetry.Telemetry) {
	t.Helper()
	tel := telemetry.Discard()
	var err error
	tel.Metrics, err = telemetry.NewMetrics(telemetry.DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	f, err := New(opts, tel)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f, tel
}

func resolveFile(t *testing.T, f *Frontend, path string, platforms ...string) *Resolution {
	t.Helper()
	m, err := f.LoadModule(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}
	res, err := m.Resolve(context.Background(), Selection(platforms, false))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return res
}

// lookup walks nested plain maps.
func lookup(v map[string]any, path ...string) any {
	var cur any = v
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

const appModule = `product:
  type: lib
  platforms: [jvm, android]
aliases:
  jvmAndAndroid: [jvm, android]
apply:
  - ../common.module-template.yaml
settings:
  jvm:
    release: 21
settings@android:
  android:
    minSdk: 26
settings@jvmAndAndroid:
  compose:
    enabled: true
dependencies:
  - org.example:a:1.0
  - coordinates: org.example:b:2.0
    scope: runtime-only
`

const commonTemplate = `settings:
  jvm:
    release: 11
    mainClass: org.example.MainKt
  kotlin:
    languageVersion: "1.9"
`

func TestResolve_TemplateAndModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.module-template.yaml", commonTemplate)
	path := writeFile(t, dir, "app/module.yaml", appModule)

	f, _ := newFrontend(t, DefaultOptions())

	tests := []struct {
		platform string
		path     []string
		want     any
	}{
		{platform: "jvm", path: []string{"settings", "jvm", "release"}, want: int64(21)},
		{platform: "jvm", path: []string{"settings", "jvm", "mainClass"}, want: "org.example.MainKt"},
		{platform: "jvm", path: []string{"settings", "kotlin", "languageVersion"}, want: "1.9"},
		{platform: "jvm", path: []string{"settings", "kotlin", "apiVersion"}, want: "1.9"},
		{platform: "jvm", path: []string{"settings", "android", "minSdk"}, want: int64(21)},
		{platform: "jvm", path: []string{"settings", "compose", "enabled"}, want: true},
		{platform: "android", path: []string{"settings", "android", "minSdk"}, want: int64(26)},
		{platform: "android", path: []string{"settings", "android", "targetSdk"}, want: int64(35)},
		{platform: "android", path: []string{"settings", "android", "applicationId"}, want: "org.example.namespace"},
		{platform: "iosArm64", path: []string{"settings", "compose", "enabled"}, want: false},
		{platform: "jvm", path: []string{"settings", "publishing"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.platform+"/"+strings.Join(tt.path, "."), func(t *testing.T) {
			res := resolveFile(t, f, path, tt.platform)
			if !res.OK() {
				t.Fatalf("resolution failed: %v", res.Problems)
			}
			if diff := cmp.Diff(tt.want, lookup(res.Value, tt.path...)); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_Dependencies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.module-template.yaml", commonTemplate)
	path := writeFile(t, dir, "app/module.yaml", appModule)

	f, _ := newFrontend(t, DefaultOptions())
	res := resolveFile(t, f, path, "jvm")

	want := []any{
		map[string]any{"coordinates": "org.example:a:1.0", "scope": "all", "exported": false},
		map[string]any{"coordinates": "org.example:b:2.0", "scope": "runtime-only", "exported": false},
	}
	if diff := cmp.Diff(want, res.Value["dependencies"]); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
	if res.RunID == "" {
		t.Errorf("resolution has no run ID")
	}
}

func TestLoadModule_ProductNotDefined(t *testing.T) {
	path := writeFile(t, t.TempDir(), "module.yaml", "settings:\n  jvm:\n    release: 17\n")
	f, _ := newFrontend(t, DefaultOptions())

	_, err := f.LoadModule(context.Background(), path)
	if !IsUser(err) {
		t.Fatalf("LoadModule() error = %v, want a user error", err)
	}
	if !errors.Is(err, &ResolutionError{Class: ErrorClassUser, Code: ErrCodeProductNotDefined}) {
		t.Errorf("error %v does not match the product error", err)
	}

	var re *ResolutionError
	errors.As(err, &re)
	if len(re.Problems) != 1 || re.Problems[0].ID != diagnostics.ProductNotDefined {
		t.Errorf("problems = %v, want one %s", re.Problems, diagnostics.ProductNotDefined)
	}
}

func TestLoadModule_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad/module.yaml", "product: [\n")
	missingTemplate := writeFile(t, dir, "tmpl/module.yaml", "product:\n  type: lib\napply:\n  - nowhere.yaml\n")

	f, _ := newFrontend(t, DefaultOptions())

	tests := []struct {
		name  string
		path  string
		check func(error) bool
	}{
		{name: "missing module", path: filepath.Join(dir, "none/module.yaml"), check: IsIO},
		{name: "invalid yaml", path: bad, check: IsUser},
		{name: "missing template", path: missingTemplate, check: IsIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.LoadModule(context.Background(), tt.path)
			if !tt.check(err) {
				t.Errorf("LoadModule() error = %v", err)
			}
		})
	}
}

func TestLoadModule_Cache(t *testing.T) {
	path := writeFile(t, t.TempDir(), "module.yaml", "product:\n  type: lib\n")
	f, tel := newFrontend(t, DefaultOptions())
	ctx := context.Background()

	first, err := f.LoadModule(ctx, path)
	if err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}
	second, err := f.LoadModule(ctx, path)
	if err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}
	if first != second {
		t.Errorf("second load did not hit the cache")
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}
	third, err := f.LoadModule(ctx, path)
	if err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}
	if third == first {
		t.Errorf("modified module was served from the cache")
	}

	want := `
# HELP modconf_cache_lookups_total Merged tree cache lookups by result
# TYPE modconf_cache_lookups_total counter
modconf_cache_lookups_total{result="hit"} 1
modconf_cache_lookups_total{result="miss"} 2
`
	if err := testutil.GatherAndCompare(tel.Metrics.Registry(), strings.NewReader(want), "modconf_cache_lookups_total"); err != nil {
		t.Errorf("cache metrics: %v", err)
	}
}

func TestResolve_Problems(t *testing.T) {
	tests := []struct {
		name     string
		module   string
		wantID   string
		complete bool
	}{
		{
			name:   "reference cycle",
			module: "product:\n  type: lib\nsettings:\n  compose:\n    version: ${version}\n",
			wantID: diagnostics.ReferenceCycle,
		},
		{
			name:   "unresolved reference",
			module: "product:\n  type: lib\nsettings:\n  jvm:\n    mainClass: ${nowhere.main}\n",
			wantID: diagnostics.ReferenceUnresolved,
		},
		{
			name:   "missing product type",
			module: "product:\n  platforms: [jvm]\n",
			wantID: diagnostics.MissingValue,
		},
		{
			name:     "constraint",
			module:   "product:\n  type: lib\nsettings:\n  jvm:\n    release: 5\n",
			wantID:   diagnostics.ConstraintViolation,
			complete: true,
		},
		{
			name:     "unknown property",
			module:   "product:\n  type: lib\nsetings: {}\n",
			wantID:   diagnostics.UnknownProperty,
			complete: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "module.yaml", tt.module)
			f, _ := newFrontend(t, DefaultOptions())
			res := resolveFile(t, f, path, "jvm")

			var ids []string
			for _, p := range res.Problems {
				ids = append(ids, p.ID)
			}
			if diff := cmp.Diff([]string{tt.wantID}, ids); diff != "" {
				t.Errorf("problems mismatch (-want +got):\n%s", diff)
			}
			if got := res.Tree != nil; got != tt.complete {
				t.Errorf("complete = %v, want %v", got, tt.complete)
			}
			if res.OK() {
				t.Errorf("OK() = true with problems")
			}
		})
	}
}

func TestResolveAll(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a", "b", "c", "d"} {
		paths = append(paths, writeFile(t, dir, name+"/module.yaml",
			"product:\n  type: lib\nsettings:\n  ios:\n    teamId: "+name+"\n"))
	}

	f, _ := newFrontend(t, Options{CacheSize: 2, Concurrency: 2})
	results, err := f.ResolveAll(context.Background(), paths, Selection([]string{"iosArm64"}, false))
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}

	var got []any
	for _, r := range results {
		got = append(got, lookup(r.Value, "settings", "ios", "teamId"))
	}
	if diff := cmp.Diff([]any{"a", "b", "c", "d"}, got); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveAll_FailsFast(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good/module.yaml", "product:\n  type: lib\n")
	f, _ := newFrontend(t, DefaultOptions())

	_, err := f.ResolveAll(context.Background(), []string{good, filepath.Join(dir, "missing/module.yaml")}, nil)
	if !IsIO(err) {
		t.Errorf("ResolveAll() error = %v, want an io error", err)
	}
}

func TestResolve_Canceled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "module.yaml", "product:\n  type: lib\n")
	f, _ := newFrontend(t, DefaultOptions())
	m, err := f.LoadModule(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Resolve(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
}

func TestModule_ResolveMerged(t *testing.T) {
	path := writeFile(t, t.TempDir(), "module.yaml",
		"product:\n  type: lib\nsettings:\n  kotlin:\n    languageVersion: \"1.9\"\n")
	f, _ := newFrontend(t, DefaultOptions())
	m, err := f.LoadModule(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}

	before := len(resolve.Unresolved(m.Merged.Root()))
	if before == 0 {
		t.Fatalf("merged tree holds no references")
	}

	merged, stats, err := m.ResolveMerged(context.Background())
	if err != nil {
		t.Fatalf("ResolveMerged() error = %v", err)
	}
	if stats.Substitutions == 0 {
		t.Errorf("ResolveMerged() substituted nothing")
	}
	if after := len(resolve.Unresolved(merged.Root())); after >= before {
		t.Errorf("references left = %d, want fewer than %d", after, before)
	}
	if got := len(resolve.Unresolved(m.Merged.Root())); got != before {
		t.Errorf("cached merged tree changed: %d references, want %d", got, before)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := m.ResolveMerged(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveMerged() error = %v, want context.Canceled", err)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	if _, err := New(Options{CacheSize: -1}, nil); err == nil {
		t.Errorf("New() accepted a negative cache size")
	}
}
