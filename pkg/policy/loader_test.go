package policy

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const minSdkRego = `# Keeps minSdk at 24 or above.
# Older devices are not supported.
package custom.minsdk

import rego.v1

deny contains msg if {
	input.module.settings.android.minSdk < 24
	msg := "minSdk must be at least 24"
}
`

const bundleYAML = `name: company
version: "1.0"
policies:
  - name: kotlin-version
    severity: error
    rego: |
      package company.kotlin

      import rego.v1

      deny contains "Kotlin 1.9 is not supported" if input.module.settings.kotlin.languageVersion == "1.9"
  - name: disabled
    enabled: false
    rego: |
      package company.disabled

      import rego.v1

      deny contains "never" if true
`

func writePolicy(t *testing.T, dir, name, content string) string {
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

func TestLoadFromFile_Rego(t *testing.T) {
	path := writePolicy(t, t.TempDir(), "min-sdk.rego", minSdkRego)

	policies, err := NewLoader(zerolog.Nop()).loadFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}

	want := []Policy{{
		Name:        "min-sdk",
		Description: "Keeps minSdk at 24 or above. Older devices are not supported.",
		Rego:        minSdkRego,
		Severity:    SeverityWarning,
		Enabled:     true,
		Source:      path,
	}}
	if diff := cmp.Diff(want, policies); diff != "" {
		t.Errorf("policies mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromFile_Bundle(t *testing.T) {
	path := writePolicy(t, t.TempDir(), "company.yaml", bundleYAML)

	policies, err := NewLoader(zerolog.Nop()).loadFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("loaded %d policies, want 2", len(policies))
	}

	tests := []struct {
		name     string
		severity Severity
		enabled  bool
	}{
		{name: "kotlin-version", severity: SeverityError, enabled: true},
		{name: "disabled", severity: SeverityWarning, enabled: false},
	}
	for i, tt := range tests {
		p := policies[i]
		if p.Name != tt.name || p.Severity != tt.severity || p.Enabled != tt.enabled {
			t.Errorf("policy %d = %s/%s/%v, want %s/%s/%v", i, p.Name, p.Severity, p.Enabled, tt.name, tt.severity, tt.enabled)
		}
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
	}{
		{name: "unsupported", path: writePolicy(t, dir, "policy.txt", "deny")},
		{name: "invalid yaml", path: writePolicy(t, dir, "broken.yaml", "policies: [")},
		{name: "unnamed", path: writePolicy(t, dir, "unnamed.yaml", "policies:\n  - rego: package x\n")},
		{name: "missing", path: filepath.Join(dir, "missing.rego")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLoader(zerolog.Nop()).loadFromFile(context.Background(), tt.path); err == nil {
				t.Errorf("loadFromFile(%s) succeeded", tt.path)
			}
		})
	}
}

func TestLoadFromPaths_Directory(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "min-sdk.rego", minSdkRego)
	writePolicy(t, dir, "nested/company.yml", bundleYAML)
	writePolicy(t, dir, "nested/broken.yaml", "policies: [")
	writePolicy(t, dir, "README.md", "# policies")

	policies, err := NewLoader(zerolog.Nop()).LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths() error = %v", err)
	}

	var names []string
	for _, p := range policies {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	if diff := cmp.Diff([]string{"disabled", "kotlin-version", "min-sdk"}, names); diff != "" {
		t.Errorf("policies mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewLoader(zerolog.Nop()).LoadFromPaths(context.Background(), []string{filepath.Join(dir, "none")}); err == nil {
		t.Errorf("LoadFromPaths() accepted a missing path")
	}
}

func TestLoadPolicies_Evaluate(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "min-sdk.rego", minSdkRego)
	writePolicy(t, dir, "company.yaml", bundleYAML)

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}

	value := module(func(s map[string]any) {
		s["kotlin"] = map[string]any{"languageVersion": "1.9", "apiVersion": "1.9"}
	})
	res, err := eng.Evaluate(context.Background(), NewInput("module.yaml", nil, value))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	var got []string
	for _, v := range res.Violations {
		got = append(got, v.Policy+": "+v.Message)
	}
	want := []string{
		"kotlin-version: Kotlin 1.9 is not supported",
		"min-sdk: minSdk must be at least 24",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("violations mismatch (-want +got):\n%s", diff)
	}
	if res.Allowed {
		t.Errorf("error-level custom policy did not block")
	}
}

func TestWatch_Reloads(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "min-sdk.rego", minSdkRego)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan []Policy, 1)
	loader := NewLoader(zerolog.Nop())
	err := loader.Watch(ctx, []string{dir}, func(p []Policy) error {
		select {
		case reloaded <- p:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	writePolicy(t, dir, "company.yaml", bundleYAML)

	select {
	case policies := <-reloaded:
		if len(policies) != 3 {
			t.Errorf("reloaded %d policies, want 3", len(policies))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("policies were not reloaded")
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "leading block", content: minSdkRego, want: "Keeps minSdk at 24 or above. Older devices are not supported."},
		{name: "no comments", content: "package x\n", want: ""},
		{name: "after package", content: "package x\n\n# rule\ndeny contains 1 if true\n", want: "rule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDescription(tt.content); got != tt.want {
				t.Errorf("extractDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}
