package tree

import (
	"strings"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/schema"
)

// Meta is the metadata carried by every node.
type Meta struct {
	// Trace is the provenance of the node.
	Trace Trace

	// Contexts are the conditions under which the node applies.
	Contexts contexts.Contexts
}

// Info returns the node metadata.
func (m Meta) Info() Meta { return m }

// Node is a configuration tree node. The set of implementations is closed: Scalar,
// Null, NoValue, List, Mapping, Reference, Interpolation and Error, plus the
// complete variants produced by completion.
type Node interface {
	Info() Meta
	withMeta(Meta) Node
}

// WithMeta returns a copy of n with the given metadata.
func WithMeta(n Node, m Meta) Node {
	return n.withMeta(m)
}

// WithContexts returns a copy of n with its contexts replaced.
func WithContexts(n Node, cs contexts.Contexts) Node {
	m := n.Info()
	m.Contexts = cs
	return n.withMeta(m)
}

// WithTrace returns a copy of n with its trace replaced.
func WithTrace(n Node, t Trace) Node {
	m := n.Info()
	m.Trace = t
	return n.withMeta(m)
}

// Scalar is a string, int, bool, path or enum literal.
type Scalar struct {
	Meta
	// Kind is one of the scalar schema kinds.
	Kind schema.Kind
	// Value is a string, int64 or bool.
	Value any
}

// Null is an explicit null.
type Null struct {
	Meta
}

// NoValue is a key written without a value, e.g. `foo:`.
type NoValue struct {
	Meta
}

// List is an ordered sequence of nodes.
type List struct {
	Meta
	Children []Node
}

// Mapping is a generic string-keyed map or, when Object is set, a typed object.
type Mapping struct {
	Meta
	Children []*KeyValue
	Object   *schema.Object
}

// KeyValue is one entry of a Mapping. Before refinement several entries may share a
// key, each tagged with different contexts.
type KeyValue struct {
	Key      string
	KeyTrace Trace
	Value    Node
	// Property is the declaration of the key when the owner is an object.
	Property *schema.Property
}

// Reference points at another tree location by dotted path.
type Reference struct {
	Meta
	Path   string
	Prefix string
	Suffix string
	// Transform is applied to the resolved value, if set.
	Transform Transform
}

// Interpolation is a string with several embedded references.
type Interpolation struct {
	Meta
	Parts []Part
}

// Part is a literal text piece or a reference of an Interpolation.
type Part struct {
	Text      string
	Reference string
}

// Error stands for a value whose problem was already reported.
type Error struct {
	Meta
}

// Transform converts a resolved scalar value.
type Transform interface {
	Apply(value any) (any, error)
	String() string
}

func (n *Scalar) withMeta(m Meta) Node        { c := *n; c.Meta = m; return &c }
func (n *Null) withMeta(m Meta) Node          { c := *n; c.Meta = m; return &c }
func (n *NoValue) withMeta(m Meta) Node       { c := *n; c.Meta = m; return &c }
func (n *List) withMeta(m Meta) Node          { c := *n; c.Meta = m; return &c }
func (n *Mapping) withMeta(m Meta) Node       { c := *n; c.Meta = m; return &c }
func (n *Reference) withMeta(m Meta) Node     { c := *n; c.Meta = m; return &c }
func (n *Interpolation) withMeta(m Meta) Node { c := *n; c.Meta = m; return &c }
func (n *Error) withMeta(m Meta) Node         { c := *n; c.Meta = m; return &c }

// Segments splits the reference path.
func (n *Reference) Segments() []string {
	return strings.Split(n.Path, ".")
}

// References returns the paths referenced by the interpolation, in order.
func (n *Interpolation) References() []string {
	var out []string
	for _, p := range n.Parts {
		if p.Reference != "" {
			out = append(out, p.Reference)
		}
	}
	return out
}

// Contexts returns the contexts of the entry's value.
func (kv *KeyValue) Contexts() contexts.Contexts {
	return kv.Value.Info().Contexts
}

// WithValue returns a copy of the entry holding v.
func (kv *KeyValue) WithValue(v Node) *KeyValue {
	c := *kv
	c.Value = v
	return &c
}

// Get returns all entries stored under key.
func (n *Mapping) Get(key string) []*KeyValue {
	var out []*KeyValue
	for _, kv := range n.Children {
		if kv.Key == key {
			out = append(out, kv)
		}
	}
	return out
}

// Has reports whether at least one entry is stored under key.
func (n *Mapping) Has(key string) bool {
	for _, kv := range n.Children {
		if kv.Key == key {
			return true
		}
	}
	return false
}

// Keys returns the distinct keys in first-occurrence order.
func (n *Mapping) Keys() []string {
	seen := make(map[string]struct{}, len(n.Children))
	out := make([]string, 0, len(n.Children))
	for _, kv := range n.Children {
		if _, ok := seen[kv.Key]; ok {
			continue
		}
		seen[kv.Key] = struct{}{}
		out = append(out, kv.Key)
	}
	return out
}

// WithChildren returns a copy of the mapping with new entries.
func (n *Mapping) WithChildren(children []*KeyValue) *Mapping {
	c := *n
	c.Children = children
	return &c
}

// WithChildren returns a copy of the list with new elements.
func (n *List) WithChildren(children []Node) *List {
	c := *n
	c.Children = children
	return &c
}

// IsMapLike reports whether n is a Mapping.
func IsMapLike(n Node) bool {
	_, ok := n.(*Mapping)
	return ok
}

// HasReferences reports whether n or any descendant is an unresolved reference.
func HasReferences(n Node) bool {
	switch n := n.(type) {
	case *Reference, *Interpolation:
		return true
	case *List:
		for _, c := range n.Children {
			if HasReferences(c) {
				return true
			}
		}
	case *Mapping:
		for _, kv := range n.Children {
			if HasReferences(kv.Value) {
				return true
			}
		}
	}
	return false
}
