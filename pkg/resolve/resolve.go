// Package resolve substitutes references with the values they point at.
//
// Resolution runs in full passes over the tree until a pass performs no
// substitution. A reference whose target still contains references is postponed to
// a later pass; a reference that can never be substituted, including every member of
// a reference cycle, is left in place. Unresolved and FindCycles report what is left.
package resolve

import (
	"fmt"
	"strings"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/schema"
	"github.com/openfroyo/modconf/pkg/tree"
)

// Stats describes a resolution run.
type Stats struct {
	// Passes is the number of full passes, including the final one without
	// substitutions.
	Passes int
	// Substitutions is the total number of substituted references.
	Substitutions int
}

// Resolver substitutes references. It holds no per-call state.
type Resolver struct {
	reporter diagnostics.Reporter
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithReporter sets the sink for failing value transforms.
func WithReporter(r diagnostics.Reporter) Option {
	return func(rs *Resolver) {
		rs.reporter = r
	}
}

// New creates a resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{reporter: diagnostics.Discard}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Merged resolves references of a merged tree. Every candidate of the target is
// substituted as a separate sibling so that the refiner can still choose between
// them.
func (r *Resolver) Merged(m tree.Merged) (tree.Merged, Stats) {
	root, stats := r.fixpoint(m.Root(), true)
	return tree.NewMerged(root), stats
}

// Refined resolves references of a refined tree.
func (r *Resolver) Refined(t tree.Refined) (tree.Refined, Stats) {
	root, stats := r.fixpoint(t.Root(), false)
	return t.WithRoot(root), stats
}

func (r *Resolver) fixpoint(root *tree.Mapping, merged bool) (*tree.Mapping, Stats) {
	var stats Stats
	for {
		p := &pass{Resolver: r, merged: merged}
		next := p.mapping(root, nil)
		stats.Passes++
		stats.Substitutions += p.substitutions
		if p.substitutions == 0 {
			return root, stats
		}
		root = next
	}
}

type pass struct {
	*Resolver
	merged        bool
	substitutions int
}

// mapping rewrites the children of n. ancestors lists the enclosing mappings of n,
// outermost first.
func (p *pass) mapping(n *tree.Mapping, ancestors []*tree.Mapping) *tree.Mapping {
	scope := append(ancestors[:len(ancestors):len(ancestors)], n)

	var children []*tree.KeyValue
	changed := false
	for i, kv := range n.Children {
		values, ok := p.value(kv.Value, scope)
		if !ok {
			if changed {
				children = append(children, kv)
			}
			continue
		}
		if !changed {
			children = append(make([]*tree.KeyValue, 0, len(n.Children)), n.Children[:i]...)
			changed = true
		}
		for _, v := range values {
			children = append(children, kv.WithValue(v))
		}
	}
	if !changed {
		return n
	}
	return n.WithChildren(children)
}

func (p *pass) list(n *tree.List, scope []*tree.Mapping) *tree.List {
	var children []tree.Node
	changed := false
	for i, c := range n.Children {
		values, ok := p.value(c, scope)
		if !ok {
			if changed {
				children = append(children, c)
			}
			continue
		}
		if !changed {
			children = append(make([]tree.Node, 0, len(n.Children)), n.Children[:i]...)
			changed = true
		}
		children = append(children, values...)
	}
	if !changed {
		return n
	}
	return n.WithChildren(children)
}

// value returns the replacement nodes of n, or false when n is unchanged.
func (p *pass) value(n tree.Node, scope []*tree.Mapping) ([]tree.Node, bool) {
	switch n := n.(type) {
	case *tree.Mapping:
		if m := p.mapping(n, scope); m != n {
			return []tree.Node{m}, true
		}
	case *tree.List:
		if l := p.list(n, scope); l != n {
			return []tree.Node{l}, true
		}
	case *tree.Reference:
		if out := p.reference(n, scope); out != nil {
			p.substitutions++
			return out, true
		}
	case *tree.Interpolation:
		if out := p.interpolation(n, scope); out != nil {
			p.substitutions++
			return []tree.Node{out}, true
		}
	}
	return nil, false
}

// lookup finds the nodes at path, starting from the innermost mapping of scope that
// holds the first segment.
func lookup(scope []*tree.Mapping, segments []string) []tree.Node {
	if len(segments) == 0 {
		return nil
	}
	var start *tree.Mapping
	for i := len(scope) - 1; i >= 0; i-- {
		if scope[i].Has(segments[0]) {
			start = scope[i]
			break
		}
	}
	if start == nil {
		return nil
	}

	current := []tree.Node{start}
	for _, seg := range segments {
		var next []tree.Node
		for _, c := range current {
			m, ok := c.(*tree.Mapping)
			if !ok {
				continue
			}
			for _, kv := range m.Get(seg) {
				next = append(next, kv.Value)
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

func (p *pass) reference(ref *tree.Reference, scope []*tree.Mapping) []tree.Node {
	found := lookup(scope, ref.Segments())
	if len(found) == 0 || (!p.merged && len(found) > 1) {
		return nil
	}
	for _, f := range found {
		if tree.HasReferences(f) {
			return nil
		}
	}

	out := make([]tree.Node, 0, len(found))
	for _, f := range found {
		v, ok := p.substitute(ref, f)
		if !ok {
			return nil
		}
		out = append(out, v)
	}
	return out
}

// substitute builds the node replacing ref with target.
func (p *pass) substitute(ref *tree.Reference, target tree.Node) (tree.Node, bool) {
	meta := tree.Meta{
		Trace: ref.Trace.WithResolved(target.Info().Trace),
		Contexts: contexts.Union(
			ref.Contexts,
			target.Info().Contexts.Without(contexts.KindDefault, contexts.KindPath),
		),
	}

	if ref.Prefix == "" && ref.Suffix == "" && ref.Transform == nil {
		return tree.WithMeta(target, meta), true
	}

	var value any
	switch t := target.(type) {
	case *tree.Scalar:
		value = t.Value
	case *tree.Null:
		if ref.Prefix != "" || ref.Suffix != "" {
			return nil, false
		}
	case *tree.Error:
		return &tree.Error{Meta: meta}, true
	default:
		return nil, false
	}

	if ref.Transform != nil {
		v, err := ref.Transform.Apply(value)
		if err != nil {
			p.reporter.Report(diagnostics.New(
				diagnostics.TransformFailed,
				diagnostics.LevelError,
				ref.Trace,
				"cannot derive value from %s with %s: %v",
				ref.Path, ref.Transform, err,
			))
			return &tree.Error{Meta: meta}, true
		}
		value = v
	}

	if ref.Prefix != "" || ref.Suffix != "" {
		return &tree.Scalar{
			Meta:  meta,
			Kind:  schema.KindString,
			Value: ref.Prefix + text(value) + ref.Suffix,
		}, true
	}
	return literal(meta, value, target), true
}

func (p *pass) interpolation(n *tree.Interpolation, scope []*tree.Mapping) tree.Node {
	var b []byte
	var origin *tree.Trace
	for _, part := range n.Parts {
		if part.Reference == "" {
			b = append(b, part.Text...)
			continue
		}
		found := lookup(scope, strings.Split(part.Reference, "."))
		if len(found) != 1 {
			return nil
		}
		s, ok := found[0].(*tree.Scalar)
		if !ok {
			return nil
		}
		if origin == nil {
			t := s.Trace
			origin = &t
		}
		b = append(b, text(s.Value)...)
	}

	meta := n.Meta
	if origin != nil {
		meta.Trace = n.Trace.WithResolved(*origin)
	}
	return &tree.Scalar{Meta: meta, Kind: schema.KindString, Value: string(b)}
}

// literal builds a scalar for a transformed value, keeping the target kind when the
// Go type still matches it.
func literal(meta tree.Meta, v any, target tree.Node) tree.Node {
	kind := schema.KindString
	switch v.(type) {
	case nil:
		return &tree.Null{Meta: meta}
	case int64:
		kind = schema.KindInt
	case bool:
		kind = schema.KindBool
	case string:
		if s, ok := target.(*tree.Scalar); ok {
			if _, same := s.Value.(string); same {
				kind = s.Kind
			}
		}
	default:
		v = fmt.Sprint(v)
	}
	return &tree.Scalar{Meta: meta, Kind: kind, Value: v}
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
