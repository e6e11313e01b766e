package schema

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"
)

// DefaultTransformTimeout bounds the evaluation of a single default expression.
const DefaultTransformTimeout = time.Second

// StarlarkTransform evaluates a Starlark expression with the source value bound to
// `value`. It backs TransformedDefault properties.
type StarlarkTransform struct {
	Expr    string
	Timeout time.Duration
}

// NewStarlarkTransform returns a transform for expr.
func NewStarlarkTransform(expr string) *StarlarkTransform {
	return &StarlarkTransform{Expr: expr, Timeout: DefaultTransformTimeout}
}

// Apply evaluates the expression for value.
func (t *StarlarkTransform) Apply(value any) (any, error) {
	thread := &starlark.Thread{
		Name:  "default-transform",
		Print: func(_ *starlark.Thread, _ string) {},
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTransformTimeout
	}
	timer := time.AfterFunc(timeout, func() {
		thread.Cancel(fmt.Sprintf("timeout after %v", timeout))
	})
	defer timer.Stop()

	input, err := toStarlarkValue(value)
	if err != nil {
		return nil, fmt.Errorf("failed to convert input: %w", err)
	}

	env := starlark.StringDict{
		"value": input,
	}
	out, err := starlark.Eval(thread, "default.star", t.Expr, env)
	if err != nil {
		return nil, fmt.Errorf("transform %q failed: %w", t.Expr, err)
	}
	return fromStarlarkValue(out)
}

func (t *StarlarkTransform) String() string {
	return t.Expr
}

func toStarlarkValue(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case string:
		return starlark.String(val), nil
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func fromStarlarkValue(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
