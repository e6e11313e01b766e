package policy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog"
)

// Engine compiles Rego policies and evaluates them against resolved modules.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*compiledPolicy
	logger   zerolog.Logger
}

// compiledPolicy is a policy prepared for evaluation of its deny set.
type compiledPolicy struct {
	policy   Policy
	query    rego.PreparedEvalQuery
	compiled time.Time
}

// NewEngine creates a policy engine with the built-in policies loaded.
func NewEngine(logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		policies: make(map[string]*compiledPolicy),
		logger:   logger.With().Str("component", "policy-engine").Logger(),
	}

	if err := e.loadBuiltinPolicies(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load built-in policies: %w", err)
	}

	return e, nil
}

// Evaluate evaluates every enabled policy against input. A policy that fails to
// evaluate is recorded as a warning and does not stop the others.
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()

	res := &Result{Allowed: true}
	for _, name := range e.names() {
		cp := e.policies[name]
		if !cp.policy.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.EvaluatedPolicies = append(res.EvaluatedPolicies, name)

		violations, err := e.evaluatePolicy(ctx, cp, input)
		if err != nil {
			e.logger.Error().Err(err).
				Str("policy", name).
				Str("module", input.Path).
				Msg("Policy evaluation failed")
			res.Warnings = append(res.Warnings, fmt.Sprintf("policy %s evaluation failed: %v", name, err))
			continue
		}
		res.Violations = append(res.Violations, violations...)
	}

	for _, v := range res.Violations {
		if v.Severity.Blocking() {
			res.Allowed = false
			break
		}
	}
	res.Duration = time.Since(start)

	e.logger.Debug().
		Str("module", input.Path).
		Int("violations", len(res.Violations)).
		Dur("duration", res.Duration).
		Msg("Module policy evaluation completed")

	return res, nil
}

func (e *Engine) names() []string {
	names := make([]string, 0, len(e.policies))
	for name := range e.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// evaluatePolicy evaluates the deny set of a single compiled policy.
func (e *Engine) evaluatePolicy(ctx context.Context, cp *compiledPolicy, input Input) ([]Violation, error) {
	results, err := cp.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("policy evaluation error: %w", err)
	}

	var violations []Violation
	for _, result := range results {
		if len(result.Expressions) == 0 {
			continue
		}
		denySet, ok := result.Expressions[0].Value.([]interface{})
		if !ok {
			continue
		}
		for _, d := range denySet {
			violations = append(violations, createViolation(cp.policy, d))
		}
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Message < violations[j].Message
	})
	return violations, nil
}

// createViolation converts one deny entry. Entries are either a message or an
// object with message, severity, path and remediation fields.
func createViolation(policy Policy, entry interface{}) Violation {
	v := Violation{
		Policy:   policy.Name,
		Severity: policy.Severity,
	}

	switch d := entry.(type) {
	case string:
		v.Message = d
	case map[string]interface{}:
		if msg, ok := d["message"].(string); ok {
			v.Message = msg
		}
		if sev, ok := d["severity"].(string); ok {
			v.Severity = Severity(sev)
		}
		if path, ok := d["path"].(string); ok {
			v.Path = path
		}
		if fix, ok := d["remediation"].(string); ok {
			v.Remediation = fix
		}
	default:
		v.Message = fmt.Sprintf("%v", entry)
	}

	return v
}

// compile prepares the deny query of a policy.
func compile(ctx context.Context, policy Policy) (*compiledPolicy, error) {
	module, err := ast.ParseModule(policy.Name, policy.Rego)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	if module == nil {
		return nil, fmt.Errorf("policy %s is empty", policy.Name)
	}

	query, err := rego.New(
		rego.Module(policy.Name, policy.Rego),
		rego.Query(module.Package.Path.String()+".deny"),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare query: %w", err)
	}

	return &compiledPolicy{policy: policy, query: query, compiled: time.Now()}, nil
}

// Add compiles policies and registers them, replacing policies of the same name.
// Nothing is registered when one of them fails to compile.
func (e *Engine) Add(ctx context.Context, policies ...Policy) error {
	compiled := make([]*compiledPolicy, 0, len(policies))
	for _, p := range policies {
		cp, err := compile(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to compile policy %s: %w", p.Name, err)
		}
		compiled = append(compiled, cp)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cp := range compiled {
		e.policies[cp.policy.Name] = cp
		e.logger.Debug().Str("policy", cp.policy.Name).Msg("Policy compiled successfully")
	}
	return nil
}

// LoadPolicies loads and registers the policies found at paths.
func (e *Engine) LoadPolicies(ctx context.Context, paths []string) error {
	policies, err := NewLoader(e.logger).LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}
	if err := e.Add(ctx, policies...); err != nil {
		return err
	}

	e.logger.Info().
		Int("count", len(policies)).
		Msg("Policies loaded successfully")
	return nil
}

func (e *Engine) loadBuiltinPolicies(ctx context.Context) error {
	builtin := BuiltinPolicies()
	if err := e.Add(ctx, builtin...); err != nil {
		return err
	}
	e.logger.Debug().Int("count", len(builtin)).Msg("Built-in policies loaded")
	return nil
}

// GetPolicy returns a policy by name.
func (e *Engine) GetPolicy(name string) (Policy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp, exists := e.policies[name]
	if !exists {
		return Policy{}, fmt.Errorf("policy not found: %s", name)
	}
	return cp.policy, nil
}

// ListPolicies returns all registered policies sorted by name.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]Policy, 0, len(e.policies))
	for _, name := range e.names() {
		policies = append(policies, e.policies[name].policy)
	}
	return policies
}

// ReloadPolicies drops all custom policies and loads the policies at paths again.
func (e *Engine) ReloadPolicies(ctx context.Context, paths []string) error {
	e.mu.Lock()
	e.policies = make(map[string]*compiledPolicy)
	e.mu.Unlock()

	if err := e.loadBuiltinPolicies(ctx); err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	return e.LoadPolicies(ctx, paths)
}

// EnablePolicy enables a policy by name.
func (e *Engine) EnablePolicy(name string) error {
	return e.setEnabled(name, true)
}

// DisablePolicy disables a policy by name.
func (e *Engine) DisablePolicy(name string) error {
	return e.setEnabled(name, false)
}

func (e *Engine) setEnabled(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, exists := e.policies[name]
	if !exists {
		return fmt.Errorf("policy not found: %s", name)
	}
	cp.policy.Enabled = enabled
	e.logger.Info().Str("policy", name).Bool("enabled", enabled).Msg("Policy toggled")
	return nil
}
