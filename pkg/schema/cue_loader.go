package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// Registry holds object declarations loaded from CUE definitions.
type Registry struct {
	mu      sync.RWMutex
	ctx     *cue.Context
	source  cue.Value
	objects map[string]*Object
}

// LoadError describes a CUE compilation or declaration problem.
type LoadError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *LoadError) Error() string {
	if e.File == "" {
		return e.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

// LoadCUE compiles src and builds a declaration for every top-level definition.
func LoadCUE(filename, src string) (*Registry, error) {
	ctx := cuecontext.New()
	val := ctx.CompileString(src, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, convertCUEError(err)
	}

	r := &Registry{
		ctx:     ctx,
		source:  val,
		objects: make(map[string]*Object),
	}

	iter, err := val.Fields(cue.Definitions(true))
	if err != nil {
		return nil, convertCUEError(err)
	}
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsDefinition() {
			continue
		}
		if _, err := r.object(definitionName(sel), iter.Value()); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// convertCUEError keeps the first positioned CUE error.
func convertCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Message: err.Error()}
	}
	le := &LoadError{Message: errors.Details(errs[0], nil)}
	if pos := errors.Positions(errs[0]); len(pos) > 0 {
		le.File = pos[0].Filename()
		le.Line = pos[0].Line()
		le.Column = pos[0].Column()
	}
	return le
}

func definitionName(sel cue.Selector) string {
	return strings.TrimPrefix(sel.String(), "#")
}

// Lookup returns the declaration registered under name.
func (r *Registry) Lookup(name string) (*Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.objects[name]
	return o, ok
}

// MustLookup is like Lookup but panics when the declaration does not exist.
func (r *Registry) MustLookup(name string) *Object {
	o, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("schema: no declaration %q", name))
	}
	return o
}

// Names returns all declaration names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.objects))
	for n := range r.objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate unifies a plain value with the definition name and reports constraint
// violations that the declaration model does not capture, such as numeric bounds.
func (r *Registry) Validate(name string, data map[string]any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def := r.source.LookupPath(cue.ParsePath("#" + name))
	if !def.Exists() {
		return fmt.Errorf("schema %s not found", name)
	}

	dataVal := r.ctx.Encode(dropNulls(data))
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	if err := def.Unify(dataVal).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", convertCUEError(err))
	}
	return nil
}

// dropNulls removes null entries so optional CUE fields are left unset.
func dropNulls(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, x := range v {
			if x == nil {
				continue
			}
			out[k] = dropNulls(x)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, x := range v {
			out = append(out, dropNulls(x))
		}
		return out
	default:
		return v
	}
}

func (r *Registry) object(name string, v cue.Value) (*Object, error) {
	if o, ok := r.objects[name]; ok {
		return o, nil
	}
	o := &Object{Name: name}
	// Registered before the walk so recursive declarations terminate.
	r.objects[name] = o

	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return nil, convertCUEError(err)
	}
	for iter.Next() {
		sel := iter.Selector()
		if sel.LabelType() != cue.StringLabel {
			continue
		}
		prop, err := r.property(name, sel.Unquoted(), iter.Value(), iter.IsOptional())
		if err != nil {
			return nil, err
		}
		o.Properties = append(o.Properties, prop)
	}
	return o, nil
}

func (r *Registry) property(owner, name string, v cue.Value, optional bool) (*Property, error) {
	typ, err := r.typeOf(owner+capitalize(name), v)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", owner, name, err)
	}
	prop := &Property{Name: name, Type: typ}

	if args, ok := attrArgs(v, "alias"); ok {
		prop.Aliases = args
	}
	if _, ok := attrArgs(v, "shorthand"); ok {
		prop.Shorthand = true
	}

	def, err := defaultOf(v, typ, optional)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", owner, name, err)
	}
	prop.Default = def
	return prop, nil
}

func defaultOf(v cue.Value, typ *Type, optional bool) (Default, error) {
	if args, ok := attrArgs(v, "dependsOn"); ok {
		if len(args) != 1 {
			return nil, fmt.Errorf("@dependsOn takes exactly one path")
		}
		return DependentDefault{Path: args[0]}, nil
	}
	if args, ok := attrArgs(v, "transform"); ok {
		switch len(args) {
		case 1:
			return TransformedDefault{Path: args[0]}, nil
		case 2:
			return TransformedDefault{Path: args[0], Expr: args[1]}, nil
		default:
			return nil, fmt.Errorf("@transform takes a path and an optional expression")
		}
	}
	if _, ok := attrArgs(v, "nested"); ok {
		if typ.Kind != KindObject {
			return nil, fmt.Errorf("@nested() requires an object type, got %s", typ)
		}
		return NestedObjectDefault{}, nil
	}
	if _, ok := attrArgs(v, "empty"); ok {
		switch typ.Kind {
		case KindList:
			return StaticDefault{Value: []any{}}, nil
		case KindMap:
			return StaticDefault{Value: map[string]any{}}, nil
		default:
			return nil, fmt.Errorf("@empty() requires a list or map type, got %s", typ)
		}
	}
	if optional {
		return NullDefault{}, nil
	}
	if d, ok := v.Default(); ok && typ.IsScalar() {
		value, err := scalarValue(d, typ)
		if err != nil {
			return nil, err
		}
		return StaticDefault{Value: value}, nil
	}
	return nil, nil
}

func scalarValue(v cue.Value, typ *Type) (any, error) {
	switch typ.Kind {
	case KindInt:
		return v.Int64()
	case KindBool:
		return v.Bool()
	default:
		return v.String()
	}
}

func (r *Registry) typeOf(inlineName string, v cue.Value) (*Type, error) {
	if _, ok := attrArgs(v, "path"); ok {
		if v.IncompleteKind() == cue.ListKind {
			return ListOf(Path), nil
		}
		return Path, nil
	}

	switch k := v.IncompleteKind(); {
	case k == cue.StringKind:
		if values := enumValues(v); len(values) > 0 {
			return Enum(values...), nil
		}
		return String, nil
	case k == cue.IntKind:
		return Int, nil
	case k == cue.BoolKind:
		return Bool, nil
	case k == cue.ListKind:
		elem, err := r.typeOf(inlineName+"Item", v.LookupPath(cue.MakePath(cue.AnyIndex)))
		if err != nil {
			return nil, err
		}
		return ListOf(elem), nil
	case k == cue.StructKind:
		if isMap(v) {
			elem, err := r.typeOf(inlineName+"Value", v.LookupPath(cue.MakePath(cue.AnyString)))
			if err != nil {
				return nil, err
			}
			return MapOf(elem), nil
		}
		name := inlineName
		if _, path := v.ReferencePath(); len(path.Selectors()) > 0 {
			sels := path.Selectors()
			name = definitionName(sels[len(sels)-1])
		}
		o, err := r.object(name, v)
		if err != nil {
			return nil, err
		}
		return ObjectOf(o), nil
	default:
		return nil, fmt.Errorf("unsupported CUE kind %v", k)
	}
}

// isMap reports whether v is a struct with a pattern constraint and no fields.
func isMap(v cue.Value) bool {
	pattern := v.LookupPath(cue.MakePath(cue.AnyString))
	if !pattern.Exists() {
		return false
	}
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return false
	}
	return !iter.Next()
}

// enumValues returns the literals of a disjunction of concrete strings.
func enumValues(v cue.Value) []string {
	op, args := v.Expr()
	if op != cue.OrOp {
		return nil
	}
	values := make([]string, 0, len(args))
	for _, a := range args {
		if !a.IsConcrete() {
			return nil
		}
		s, err := a.String()
		if err != nil {
			return nil
		}
		values = append(values, s)
	}
	return values
}

func attrArgs(v cue.Value, key string) ([]string, bool) {
	attr := v.Attribute(key)
	if attr.Err() != nil {
		return nil, false
	}
	args := make([]string, 0, attr.NumArgs())
	for i := 0; i < attr.NumArgs(); i++ {
		s, err := attr.String(i)
		if err != nil {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		args = append(args, strings.Trim(s, `"`))
	}
	return args, true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
