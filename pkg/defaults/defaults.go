// Package defaults adds type-level default values to a source tree before merging.
//
// Defaults are injected at default roots: the tree root, explicit object values of
// properties whose own default is null or absent, and object elements of lists and
// maps. Every synthesized node carries the default trace and the contexts of its
// root plus the default context, which makes it less specific than any explicit
// value at the same key.
package defaults

import (
	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/schema"
	"github.com/openfroyo/modconf/pkg/tree"
)

// Inject returns u with defaults of decl added. When decl is nil the declaration
// attached to the root by the reader is used.
func Inject(u tree.Unmerged, decl *schema.Object) tree.Unmerged {
	root := u.Root()
	if root == nil {
		return u
	}
	if decl == nil {
		decl = root.Object
	}
	if decl == nil {
		return u
	}
	return tree.NewUnmerged(u.Source, defaultRoot(root, decl))
}

// defaultRoot fills the missing properties of an explicit object.
func defaultRoot(m *tree.Mapping, decl *schema.Object) *tree.Mapping {
	m = descend(m, decl)

	var added []*tree.KeyValue
	for _, p := range decl.Properties {
		if _, nested := p.Default.(schema.NestedObjectDefault); !nested && hasOwnCandidate(m, p.Name) {
			continue
		}
		if v := synthesize(p, m.Contexts); v != nil {
			added = append(added, &tree.KeyValue{
				Key:      p.Name,
				KeyTrace: tree.DefaultTrace,
				Value:    v,
				Property: p,
			})
		}
	}
	if len(added) == 0 {
		return m
	}

	children := make([]*tree.KeyValue, 0, len(m.Children)+len(added))
	children = append(children, m.Children...)
	children = append(children, added...)
	out := m.WithChildren(children)
	if out.Object == nil {
		out.Object = decl
	}
	return out
}

// hasOwnCandidate reports whether key already has a value under exactly the
// contexts of the default root. Empty values do not count since the refiner drops
// them.
func hasOwnCandidate(m *tree.Mapping, key string) bool {
	for _, kv := range m.Get(key) {
		if _, empty := kv.Value.(*tree.NoValue); empty {
			continue
		}
		if contexts.Equal(kv.Contexts(), m.Contexts) {
			return true
		}
	}
	return false
}

// descend looks for nested default roots below an object without adding defaults
// at its own level.
func descend(m *tree.Mapping, decl *schema.Object) *tree.Mapping {
	var children []*tree.KeyValue
	for i, kv := range m.Children {
		p := kv.Property
		if p == nil {
			p = decl.Property(kv.Key)
		}
		if p == nil {
			continue
		}
		v := value(kv.Value, p.Type, p.Default)
		if v == kv.Value {
			continue
		}
		if children == nil {
			children = append([]*tree.KeyValue(nil), m.Children...)
		}
		children[i] = kv.WithValue(v)
	}
	if children == nil {
		return m
	}
	return m.WithChildren(children)
}

// value processes an explicit value of the given type. def is the default of the
// owning property, nil for list elements and map values.
func value(n tree.Node, typ *schema.Type, def schema.Default) tree.Node {
	switch typ.Kind {
	case schema.KindObject:
		m, ok := n.(*tree.Mapping)
		if !ok {
			return n
		}
		switch def.(type) {
		case nil, schema.NullDefault:
			return defaultRoot(m, typ.Object)
		default:
			return descend(m, typ.Object)
		}

	case schema.KindList:
		l, ok := n.(*tree.List)
		if !ok || typ.Elem.Kind != schema.KindObject {
			return n
		}
		var children []tree.Node
		for i, c := range l.Children {
			v := value(c, typ.Elem, nil)
			if v == c {
				continue
			}
			if children == nil {
				children = append([]tree.Node(nil), l.Children...)
			}
			children[i] = v
		}
		if children == nil {
			return n
		}
		return l.WithChildren(children)

	case schema.KindMap:
		m, ok := n.(*tree.Mapping)
		if !ok || typ.Elem.Kind != schema.KindObject {
			return n
		}
		var children []*tree.KeyValue
		for i, kv := range m.Children {
			v := value(kv.Value, typ.Elem, nil)
			if v == kv.Value {
				continue
			}
			if children == nil {
				children = append([]*tree.KeyValue(nil), m.Children...)
			}
			children[i] = kv.WithValue(v)
		}
		if children == nil {
			return n
		}
		return m.WithChildren(children)
	}
	return n
}

// synthesize builds the default value of p for a root with contexts cs, or nil when
// the property has no default the injector can produce.
func synthesize(p *schema.Property, cs contexts.Contexts) tree.Node {
	meta := tree.Meta{
		Trace:    tree.DefaultTrace,
		Contexts: cs.With(contexts.Default{}),
	}

	switch d := p.Default.(type) {
	case schema.StaticDefault:
		return literal(meta, p.Type, d.Value)
	case schema.NullDefault:
		return &tree.Null{Meta: meta}
	case schema.NestedObjectDefault:
		return object(meta, p.Type.Object)
	case schema.DependentDefault:
		return &tree.Reference{Meta: meta, Path: d.Path}
	case schema.TransformedDefault:
		if d.Expr == "" {
			return nil
		}
		return &tree.Reference{Meta: meta, Path: d.Path, Transform: schema.NewStarlarkTransform(d.Expr)}
	}
	return nil
}

// object synthesizes an object holding the defaults of every property of decl.
func object(meta tree.Meta, decl *schema.Object) *tree.Mapping {
	m := &tree.Mapping{Meta: meta, Object: decl}
	for _, p := range decl.Properties {
		v := synthesize(p, meta.Contexts)
		if v == nil {
			continue
		}
		m.Children = append(m.Children, &tree.KeyValue{
			Key:      p.Name,
			KeyTrace: tree.DefaultTrace,
			Value:    v,
			Property: p,
		})
	}
	return m
}

// literal converts a static default value.
func literal(meta tree.Meta, typ *schema.Type, v any) tree.Node {
	switch typ.Kind {
	case schema.KindList:
		l := &tree.List{Meta: meta}
		items, _ := v.([]any)
		for _, item := range items {
			l.Children = append(l.Children, literal(meta, typ.Elem, item))
		}
		return l
	case schema.KindMap:
		return &tree.Mapping{Meta: meta}
	case schema.KindObject:
		return object(meta, typ.Object)
	}
	if v == nil {
		return &tree.Null{Meta: meta}
	}
	if i, ok := v.(int); ok {
		v = int64(i)
	}
	return &tree.Scalar{Meta: meta, Kind: typ.Kind, Value: v}
}
