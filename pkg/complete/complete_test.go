package complete

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/schema"
	"github.com/openfroyo/modconf/pkg/tree"
)

type missingCall struct {
	Anchor   string
	Path     []string
	Relative []string
}

// recorder is a MissingPropertiesHandler collecting its calls.
type recorder struct {
	calls []missingCall
}

func (r *recorder) Missing(anchor tree.Trace, path, relative []string) {
	r.calls = append(r.calls, missingCall{Anchor: anchor.String(), Path: path, Relative: relative})
}

func moduleDecl() *schema.Object {
	product := schema.NewObject("Product",
		&schema.Property{Name: "type", Type: schema.Enum("lib", "app")},
		&schema.Property{Name: "platforms", Type: schema.ListOf(schema.String), Default: schema.StaticDefault{Value: []any{}}},
	)
	dep := schema.NewObject("Dep",
		&schema.Property{Name: "coordinates", Type: schema.String},
	)
	return schema.NewObject("Module",
		&schema.Property{Name: "product", Type: schema.ObjectOf(product)},
		&schema.Property{Name: "deps", Type: schema.ListOf(schema.ObjectOf(dep)), Default: schema.StaticDefault{Value: []any{}}},
		&schema.Property{Name: "env", Type: schema.MapOf(schema.String), Default: schema.StaticDefault{Value: map[string]any{}}},
		&schema.Property{Name: "later", Type: schema.String, Default: schema.TransformedDefault{Path: "x"}},
	)
}

func str(v string) *tree.Scalar {
	return &tree.Scalar{Kind: schema.KindString, Value: v}
}

func kv(key string, line int, v tree.Node) *tree.KeyValue {
	return &tree.KeyValue{Key: key, KeyTrace: tree.At("module.yaml", line, 1), Value: v}
}

func refined(t *testing.T, children ...*tree.KeyValue) tree.Refined {
	t.Helper()
	root := &tree.Mapping{Meta: tree.Meta{Trace: tree.At("module.yaml", 1, 1)}, Children: children}
	r, err := tree.NewRefined(root)
	if err != nil {
		t.Fatalf("NewRefined() error = %v", err)
	}
	return r
}

func TestComplete_MissingRequiredProperty(t *testing.T) {
	r := refined(t,
		kv("product", 1, &tree.Mapping{Children: []*tree.KeyValue{
			kv("platforms", 2, &tree.List{Children: []tree.Node{str("jvm")}}),
		}}),
		kv("deps", 3, &tree.List{}),
		kv("env", 4, &tree.Mapping{}),
		kv("later", 5, str("x")),
	)

	rec := &recorder{}
	got := New(rec).Complete(r, moduleDecl())

	if got.Root() != nil {
		t.Errorf("root completed despite a missing required property")
	}
	want := []missingCall{{
		Anchor:   "module.yaml:1:1",
		Path:     []string{"product", "type"},
		Relative: []string{"type"},
	}}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("handler calls mismatch (-want +got):\n%s", diff)
	}
}

func TestComplete_Success(t *testing.T) {
	r := refined(t,
		kv("product", 1, &tree.Mapping{Children: []*tree.KeyValue{
			kv("type", 2, &tree.Scalar{Kind: schema.KindEnum, Value: "lib"}),
			kv("platforms", 3, &tree.List{Children: []tree.Node{str("jvm"), &tree.Error{}}}),
		}}),
		kv("deps", 4, &tree.List{Children: []tree.Node{
			&tree.Mapping{Children: []*tree.KeyValue{kv("coordinates", 5, str("org:a:1"))}},
			&tree.Mapping{Children: []*tree.KeyValue{kv("coordinates", 6, &tree.Reference{Path: "nowhere"})}},
		}}),
		kv("env", 7, &tree.Mapping{Children: []*tree.KeyValue{kv("A", 8, str("1")), kv("B", 9, &tree.Error{})}}),
		kv("later", 10, &tree.Null{}),
	)

	rec := &recorder{}
	got := New(rec).Complete(r, moduleDecl())
	if got.Root() == nil {
		t.Fatalf("root not completed")
	}
	if len(rec.calls) != 0 {
		t.Errorf("unexpected missing properties: %+v", rec.calls)
	}

	want := map[string]any{
		"product": map[string]any{"type": "lib", "platforms": []any{"jvm"}},
		"deps":    []any{map[string]any{"coordinates": "org:a:1"}},
		"env":     map[string]any{"A": "1"},
		"later":   nil,
	}
	if diff := cmp.Diff(want, tree.Plain(got.Root())); diff != "" {
		t.Errorf("Plain() mismatch (-want +got):\n%s", diff)
	}
}

func TestComplete_AnchorIsLastExplicitTrace(t *testing.T) {
	defaultProduct := &tree.Mapping{Meta: tree.Meta{Trace: tree.DefaultTrace}, Children: []*tree.KeyValue{
		{Key: "platforms", KeyTrace: tree.DefaultTrace, Value: &tree.List{Meta: tree.Meta{Trace: tree.DefaultTrace}}},
	}}
	r := refined(t,
		&tree.KeyValue{Key: "product", KeyTrace: tree.DefaultTrace, Value: defaultProduct},
		kv("deps", 3, &tree.List{Children: []tree.Node{
			&tree.Mapping{Meta: tree.Meta{Trace: tree.At("module.yaml", 4, 5)}},
		}}),
		kv("env", 7, &tree.Mapping{}),
		kv("later", 8, str("x")),
	)

	rec := &recorder{}
	New(rec).Complete(r, moduleDecl())

	want := []missingCall{
		{Anchor: "module.yaml:1:1", Path: []string{"product", "type"}, Relative: []string{"product", "type"}},
		{Anchor: "module.yaml:4:5", Path: []string{"deps", "[0]", "coordinates"}, Relative: []string{"coordinates"}},
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("handler calls mismatch (-want +got):\n%s", diff)
	}
}

func TestComplete_TransformWithoutExpressionIsUserLevel(t *testing.T) {
	r := refined(t,
		kv("product", 1, &tree.Mapping{Children: []*tree.KeyValue{
			kv("type", 2, str("lib")),
			kv("platforms", 3, &tree.List{}),
		}}),
		kv("deps", 4, &tree.List{}),
		kv("env", 5, &tree.Mapping{}),
	)

	c := diagnostics.NewCollector()
	got := New(ReportingHandler(c)).Complete(r, moduleDecl())
	if got.Root() != nil {
		t.Errorf("root completed without 'later'")
	}
	if n := c.Count(diagnostics.MissingValue); n != 1 {
		t.Errorf("missing values reported = %d, want 1", n)
	}
}

func TestComplete_IntegrityViolations(t *testing.T) {
	tests := []struct {
		name     string
		children []*tree.KeyValue
	}{
		{
			name: "undeclared property",
			children: []*tree.KeyValue{
				kv("product", 1, &tree.Mapping{Children: []*tree.KeyValue{kv("type", 2, str("lib")), kv("platforms", 3, &tree.List{})}}),
				kv("deps", 4, &tree.List{}),
				kv("env", 5, &tree.Mapping{}),
				kv("later", 6, str("x")),
				kv("bogus", 7, str("x")),
			},
		},
		{
			name: "derivable default missing",
			children: []*tree.KeyValue{
				kv("product", 1, &tree.Mapping{Children: []*tree.KeyValue{kv("type", 2, str("lib")), kv("platforms", 3, &tree.List{})}}),
				kv("env", 5, &tree.Mapping{}),
				kv("later", 6, str("x")),
			},
		},
		{
			name: "type mismatch from the reader",
			children: []*tree.KeyValue{
				kv("product", 1, str("lib")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := refined(t, tt.children...)
			defer func() {
				rec := recover()
				err, ok := rec.(error)
				var ie *tree.IntegrityError
				if !ok || !errors.As(err, &ie) {
					t.Errorf("recovered %v, want *tree.IntegrityError", rec)
				}
			}()
			New(&recorder{}).Complete(r, moduleDecl())
		})
	}
}

func TestComplete_MismatchFromReferenceIsReported(t *testing.T) {
	resolved := &tree.Mapping{Meta: tree.Meta{Trace: tree.At("module.yaml", 9, 1).WithResolved(tree.At("module.yaml", 2, 1))}}
	r := refined(t,
		kv("product", 1, &tree.Mapping{Children: []*tree.KeyValue{kv("type", 2, str("lib")), kv("platforms", 3, &tree.List{})}}),
		kv("deps", 4, &tree.List{}),
		kv("env", 5, &tree.Mapping{}),
		kv("later", 6, resolved),
	)

	c := diagnostics.NewCollector()
	got := New(&recorder{}, WithReporter(c)).Complete(r, moduleDecl())
	if got.Root() != nil {
		t.Errorf("root completed with a mistyped value")
	}
	if n := c.Count(diagnostics.Expected("string")); n != 1 {
		t.Errorf("type mismatches reported = %d, want 1", n)
	}
}
