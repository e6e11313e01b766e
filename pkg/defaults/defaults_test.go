package defaults

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/schema"
	"github.com/openfroyo/modconf/pkg/tree"
)

var file = contexts.Path{File: "module.yaml"}

func testSchema() *schema.Object {
	dep := schema.NewObject("Dep",
		&schema.Property{Name: "coordinates", Type: schema.String},
		&schema.Property{Name: "scope", Type: schema.Enum("all", "runtime"), Default: schema.StaticDefault{Value: "all"}},
	)
	jvm := schema.NewObject("Jvm",
		&schema.Property{Name: "release", Type: schema.Int, Default: schema.StaticDefault{Value: int64(17)}},
		&schema.Property{Name: "target", Type: schema.Int, Default: schema.DependentDefault{Path: "release"}},
		&schema.Property{Name: "label", Type: schema.String, Default: schema.TransformedDefault{Path: "release", Expr: "str(value)"}},
		&schema.Property{Name: "later", Type: schema.String, Default: schema.TransformedDefault{Path: "release"}},
	)
	publishing := schema.NewObject("Publishing",
		&schema.Property{Name: "group", Type: schema.String},
		&schema.Property{Name: "version", Type: schema.String, Default: schema.StaticDefault{Value: "1.0"}},
	)
	return schema.NewObject("Root",
		&schema.Property{Name: "name", Type: schema.String},
		&schema.Property{Name: "jvm", Type: schema.ObjectOf(jvm), Default: schema.NestedObjectDefault{}},
		&schema.Property{Name: "publishing", Type: schema.ObjectOf(publishing), Default: schema.NullDefault{}},
		&schema.Property{Name: "deps", Type: schema.ListOf(schema.ObjectOf(dep)), Default: schema.StaticDefault{Value: []any{}}},
		&schema.Property{Name: "tags", Type: schema.ListOf(schema.String), Default: schema.StaticDefault{Value: []any{"a"}}},
		&schema.Property{Name: "env", Type: schema.MapOf(schema.String), Default: schema.StaticDefault{Value: map[string]any{}}},
	)
}

func str(v string, cs contexts.Contexts) *tree.Scalar {
	return &tree.Scalar{Meta: tree.Meta{Contexts: cs}, Kind: schema.KindString, Value: v}
}

func kv(key string, v tree.Node) *tree.KeyValue {
	return &tree.KeyValue{Key: key, Value: v}
}

func mapping(cs contexts.Contexts, children ...*tree.KeyValue) *tree.Mapping {
	return &tree.Mapping{Meta: tree.Meta{Contexts: cs}, Children: children}
}

func TestInject_Root(t *testing.T) {
	cs := contexts.Of(file)
	root := mapping(cs, kv("name", str("core", cs)))

	out := Inject(tree.NewUnmerged("module.yaml", root), testSchema()).Root()

	want := `{
  "name" (module.yaml): "core",
  "jvm" (module.yaml, default): {
    "release" (module.yaml, default): 17,
    "target" (module.yaml, default): "${release}",
    "label" (module.yaml, default): "${release}" | str(value)
  },
  "publishing" (module.yaml, default): null,
  "deps" (module.yaml, default): [],
  "tags" (module.yaml, default): [
    "a"
  ],
  "env" (module.yaml, default): {}
}`
	if diff := cmp.Diff(want, tree.Dump(out, "")); diff != "" {
		t.Errorf("Inject() mismatch (-want +got):\n%s", diff)
	}

	for _, c := range out.Children[1:] {
		if !c.Value.Info().Trace.IsDefault() || !c.KeyTrace.IsDefault() {
			t.Errorf("%s: synthesized value without default trace", c.Key)
		}
		if c.Property == nil {
			t.Errorf("%s: synthesized entry without property", c.Key)
		}
	}
}

func TestInject_ExplicitValueSuppressesDefault(t *testing.T) {
	cs := contexts.Of(file)
	jvmCtx := contexts.Of(file, contexts.Platform{Name: "jvm"})
	root := mapping(cs,
		kv("publishing", &tree.Null{Meta: tree.Meta{Contexts: cs}}),
		kv("tags", &tree.List{Meta: tree.Meta{Contexts: jvmCtx}}),
		kv("env", &tree.NoValue{Meta: tree.Meta{Contexts: cs}}),
	)

	out := Inject(tree.NewUnmerged("module.yaml", root), testSchema()).Root()

	if n := len(out.Get("publishing")); n != 1 {
		t.Errorf("publishing has %d candidates, want the explicit one only", n)
	}
	if n := len(out.Get("tags")); n != 2 {
		t.Errorf("tags has %d candidates, want explicit jvm value plus default", n)
	}
	if n := len(out.Get("env")); n != 2 {
		t.Errorf("env has %d candidates, want the empty value plus default", n)
	}
}

func TestInject_NestedDefaultAlwaysAdded(t *testing.T) {
	cs := contexts.Of(file)
	root := mapping(cs,
		kv("jvm", mapping(cs, kv("release", &tree.Scalar{Meta: tree.Meta{Contexts: cs}, Kind: schema.KindInt, Value: int64(21)}))),
	)

	out := Inject(tree.NewUnmerged("module.yaml", root), testSchema()).Root()
	jvms := out.Get("jvm")
	if len(jvms) != 2 {
		t.Fatalf("jvm has %d candidates, want explicit and default", len(jvms))
	}
	explicit := jvms[0].Value.(*tree.Mapping)
	if len(explicit.Children) != 1 {
		t.Errorf("explicit nested object got defaults injected: %v", explicit.Keys())
	}
	if !jvms[1].Value.Info().Contexts.IsDefault() {
		t.Errorf("synthesized jvm object is not default-tagged")
	}
}

func TestInject_ListElementsAndNullDefaultObjects(t *testing.T) {
	cs := contexts.Of(file)
	testCtx := contexts.Of(file, contexts.Test{})
	root := mapping(cs,
		kv("deps", &tree.List{Meta: tree.Meta{Contexts: testCtx}, Children: []tree.Node{
			mapping(testCtx, kv("coordinates", str("org:lib:1", testCtx))),
		}}),
		kv("publishing", mapping(cs, kv("group", str("org", cs)))),
	)

	out := Inject(tree.NewUnmerged("module.yaml", root), testSchema()).Root()

	elem := out.Get("deps")[0].Value.(*tree.List).Children[0].(*tree.Mapping)
	scope := elem.Get("scope")
	if len(scope) != 1 {
		t.Fatalf("list element has %d scope candidates, want 1", len(scope))
	}
	if want := contexts.Of(file, contexts.Test{}, contexts.Default{}); !contexts.Equal(scope[0].Contexts(), want) {
		t.Errorf("scope contexts = %s, want %s", scope[0].Contexts(), want)
	}

	publishing := out.Get("publishing")[0].Value.(*tree.Mapping)
	if v := publishing.Get("version"); len(v) != 1 {
		t.Errorf("explicit null-default object did not receive its defaults")
	}
	if publishing.Object == nil || publishing.Object.Name != "Publishing" {
		t.Errorf("publishing object = %v", publishing.Object)
	}
}

func TestInject_TransformWithoutExpressionSkipped(t *testing.T) {
	out := Inject(tree.NewUnmerged("module.yaml", mapping(nil)), testSchema()).Root()
	jvm := out.Get("jvm")[0].Value.(*tree.Mapping)
	if jvm.Has("later") {
		t.Errorf("transformed default without expression was synthesized")
	}
	label := jvm.Get("label")[0].Value.(*tree.Reference)
	if label.Transform == nil || label.Path != "release" {
		t.Errorf("label = %+v, want reference to release with transform", label)
	}
}
