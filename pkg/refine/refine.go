// Package refine specializes a Merged tree to one context selection.
//
// For every key of every mapping the refiner keeps the candidates visible under the
// selection, orders them from least to most specific and reduces them to a single
// value: the most specific scalar wins, lists are concatenated and maps are merged
// key by key.
package refine

import (
	"strings"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/tree"
)

// Refiner applies context selections to merged trees. A Refiner holds no per-call
// state and may be shared between goroutines.
type Refiner struct {
	inheritance contexts.Inheritance
	reporter    diagnostics.Reporter
}

// Option configures a Refiner.
type Option func(*Refiner)

// WithReporter sets the sink for context ambiguities.
func WithReporter(r diagnostics.Reporter) Option {
	return func(rf *Refiner) {
		rf.reporter = r
	}
}

// New creates a refiner using the given specificity relation.
func New(inh contexts.Inheritance, opts ...Option) *Refiner {
	r := &Refiner{
		inheritance: inh,
		reporter:    diagnostics.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refine returns the tree seen under selection.
func (r *Refiner) Refine(m tree.Merged, selection contexts.Contexts) tree.Refined {
	run := &refinement{Refiner: r, selection: selection}
	root := run.mapping(m.Root(), nil)
	return tree.MustRefined(root)
}

type refinement struct {
	*Refiner
	selection contexts.Contexts
}

func (r *refinement) visible(n tree.Node) bool {
	return contexts.Visible(r.inheritance, r.selection, n.Info().Contexts)
}

func (r *refinement) node(n tree.Node, path []string) tree.Node {
	switch n := n.(type) {
	case *tree.Mapping:
		return r.mapping(n, path)
	case *tree.List:
		return r.list(n, path)
	default:
		return n
	}
}

func (r *refinement) list(n *tree.List, path []string) *tree.List {
	children := make([]tree.Node, 0, len(n.Children))
	for _, c := range n.Children {
		if _, ok := c.(*tree.NoValue); ok || !r.visible(c) {
			continue
		}
		children = append(children, r.node(c, path))
	}
	return n.WithChildren(children)
}

func (r *refinement) mapping(n *tree.Mapping, path []string) *tree.Mapping {
	groups := make(map[string][]*tree.KeyValue, len(n.Children))
	for _, kv := range n.Children {
		groups[kv.Key] = append(groups[kv.Key], kv)
	}

	children := make([]*tree.KeyValue, 0, len(groups))
	for _, key := range n.Keys() {
		if kv := r.key(groups[key], append(path[:len(path):len(path)], key)); kv != nil {
			children = append(children, kv)
		}
	}
	return n.WithChildren(children)
}

// key reduces the candidates of one key, or returns nil when none applies.
func (r *refinement) key(all []*tree.KeyValue, path []string) *tree.KeyValue {
	candidates := make([]*tree.KeyValue, 0, len(all))
	for _, kv := range all {
		if r.visible(kv.Value) {
			candidates = append(candidates, kv)
		}
	}
	candidates = withoutNoValues(candidates)
	if len(candidates) == 0 {
		return nil
	}

	r.sort(candidates, path)

	value := candidates[0].Value
	for _, kv := range candidates[1:] {
		value = combine(value, kv.Value)
	}

	out := candidates[len(candidates)-1].WithValue(r.node(value, path))
	if out.Property == nil {
		for _, kv := range candidates {
			if kv.Property != nil {
				out.Property = kv.Property
				break
			}
		}
	}
	return out
}

// withoutNoValues drops no-value markers unless they are the only candidates, in
// which case the key is dropped entirely.
func withoutNoValues(in []*tree.KeyValue) []*tree.KeyValue {
	out := in[:0:0]
	for _, kv := range in {
		if _, ok := kv.Value.(*tree.NoValue); !ok {
			out = append(out, kv)
		}
	}
	return out
}

// sort orders candidates from least to most specific. It repeatedly takes the
// earliest declared candidate that no remaining candidate is strictly less specific
// than, so comparable candidates are always ordered by specificity and declaration
// order only decides between incomparable ones.
func (r *refinement) sort(kvs []*tree.KeyValue, path []string) {
	remaining := append([]*tree.KeyValue(nil), kvs...)
	for i := range kvs {
		next := 0
		for c := range remaining {
			if r.minimal(remaining, c) {
				next = c
				break
			}
		}
		kvs[i] = remaining[next]
		remaining = append(remaining[:next], remaining[next+1:]...)
	}

	for i := 0; i < len(kvs); i++ {
		for j := i + 1; j < len(kvs); j++ {
			if tree.IsMapLike(kvs[i].Value) && tree.IsMapLike(kvs[j].Value) {
				continue
			}
			a, b := kvs[i].Contexts(), kvs[j].Contexts()
			if r.inheritance.Compare(a, b) != contexts.Incomparable {
				continue
			}
			r.reporter.Report(diagnostics.New(
				diagnostics.ContextAmbiguity,
				diagnostics.LevelWarning,
				kvs[j].Value.Info().Trace,
				"ambiguous values for %s: contexts %s and %s are incomparable, using %s",
				strings.Join(path, "."), a, b, kvs[j].Value.Info().Trace,
			))
		}
	}
}

// minimal reports whether no other candidate is strictly less specific than
// candidates[i].
func (r *refinement) minimal(candidates []*tree.KeyValue, i int) bool {
	for j, other := range candidates {
		if j != i && r.inheritance.Compare(other.Contexts(), candidates[i].Contexts()) == contexts.LessSpecific {
			return false
		}
	}
	return true
}

// combine reduces two candidates, second being at least as specific as first.
func combine(first, second tree.Node) tree.Node {
	if _, ok := second.(*tree.Error); ok {
		if _, firstErr := first.(*tree.Error); !firstErr {
			return first
		}
		return second
	}

	switch s := second.(type) {
	case *tree.List:
		if f, ok := first.(*tree.List); ok {
			children := make([]tree.Node, 0, len(f.Children)+len(s.Children))
			children = append(children, f.Children...)
			children = append(children, s.Children...)
			return s.WithChildren(children)
		}
	case *tree.Mapping:
		if f, ok := first.(*tree.Mapping); ok {
			children := make([]*tree.KeyValue, 0, len(f.Children)+len(s.Children))
			children = append(children, f.Children...)
			children = append(children, s.Children...)
			merged := s.WithChildren(children)
			if merged.Object == nil {
				merged.Object = f.Object
			}
			return merged
		}
	}

	trace := second.Info().Trace
	if trace.IsDefault() {
		return second
	}
	return tree.WithTrace(second, trace.WithPreceding(first))
}
