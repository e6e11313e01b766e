package policy

import (
	"time"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/tree"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that make a module unusable.
	SeverityError Severity = "error"

	// SeverityCritical is for findings that must stop the build.
	SeverityCritical Severity = "critical"
)

// Level maps the severity to a diagnostics level.
func (s Severity) Level() diagnostics.Level {
	switch s {
	case SeverityError:
		return diagnostics.LevelError
	case SeverityCritical:
		return diagnostics.LevelFatal
	default:
		return diagnostics.LevelWarning
	}
}

// Blocking reports whether violations of this severity fail a validation.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy is a Rego module producing a deny set of violations.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description.
	Description string `json:"description" yaml:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego" yaml:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity" yaml:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Source is the file the policy was loaded from, empty for built-in policies.
	Source string `json:"source,omitempty" yaml:"-"`
}

// Violation is a single entry of a policy's deny set.
type Violation struct {
	// Policy is the name of the violated policy.
	Policy string `json:"policy"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`

	// Path is the dotted path of the offending setting, if the policy names one.
	Path string `json:"path,omitempty"`

	// Remediation suggests a fix.
	Remediation string `json:"remediation,omitempty"`
}

// Result is the outcome of evaluating all enabled policies for one module.
type Result struct {
	// Allowed is false when a blocking violation was found.
	Allowed bool `json:"allowed"`

	// Violations lists every policy violation.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists policies that failed to evaluate.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of the evaluated policies.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Report sends every violation to r as a policy problem located at trace.
func (res *Result) Report(r diagnostics.Reporter, trace tree.Trace) {
	for _, v := range res.Violations {
		msg := v.Message
		if v.Path != "" {
			msg += " (" + v.Path + ")"
		}
		r.Report(diagnostics.New(diagnostics.PolicyViolation, v.Severity.Level(), trace, "%s: %s", v.Policy, msg))
	}
}

// Input is the document policies see as input.
type Input struct {
	// Path is the module file.
	Path string `json:"path"`

	// Selection lists the selected platforms.
	Selection []string `json:"selection"`

	// Test is set when test code was selected.
	Test bool `json:"test"`

	// Module is the complete module value.
	Module map[string]any `json:"module"`
}

// NewInput builds the policy input of a resolved module.
func NewInput(path string, selection contexts.Contexts, value map[string]any) Input {
	in := Input{
		Path:      path,
		Selection: []string{},
		Test:      selection.HasKind(contexts.KindTest),
		Module:    value,
	}
	for _, c := range selection.OfKind(contexts.KindPlatform) {
		in.Selection = append(in.Selection, c.String())
	}
	return in
}

// Bundle is a named collection of policies stored in one file.
type Bundle struct {
	// Name is the unique name of the bundle.
	Name string `json:"name" yaml:"name"`

	// Version is the bundle version.
	Version string `json:"version" yaml:"version"`

	// Description provides a human-readable description.
	Description string `json:"description" yaml:"description"`

	// Policies are the policies in this bundle.
	Policies []Policy `json:"policies" yaml:"policies"`
}
