// Package complete validates a refined, resolved tree against its declaration and
// converts it into a complete tree holding plain values only.
//
// Completion never returns a partially complete object: an object with a missing or
// absent property is itself absent, and the absence propagates to its parents.
// Missing required properties are reported once, through a MissingPropertiesHandler.
package complete

import (
	"strconv"
	"strings"

	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/schema"
	"github.com/openfroyo/modconf/pkg/tree"
)

// MissingPropertiesHandler receives required properties without a value.
type MissingPropertiesHandler interface {
	// Missing is called with the most specific explicit trace along the path, the
	// absolute path of the property and the path relative to that trace.
	Missing(anchor tree.Trace, path, relative []string)
}

// HandlerFunc adapts a function to MissingPropertiesHandler.
type HandlerFunc func(anchor tree.Trace, path, relative []string)

// Missing implements MissingPropertiesHandler.
func (f HandlerFunc) Missing(anchor tree.Trace, path, relative []string) {
	f(anchor, path, relative)
}

// ReportingHandler turns missing properties into validation.missing.value problems.
func ReportingHandler(r diagnostics.Reporter) MissingPropertiesHandler {
	return HandlerFunc(func(anchor tree.Trace, path, relative []string) {
		r.Report(diagnostics.New(
			diagnostics.MissingValue,
			diagnostics.LevelError,
			anchor,
			"missing value for '%s' (required by '%s')",
			strings.Join(relative, "."), strings.Join(path, "."),
		))
	})
}

// Completer converts refined trees into complete trees.
type Completer struct {
	handler  MissingPropertiesHandler
	reporter diagnostics.Reporter
}

// Option configures a Completer.
type Option func(*Completer)

// WithReporter sets the sink for values of the wrong type produced by references.
func WithReporter(r diagnostics.Reporter) Option {
	return func(c *Completer) {
		c.reporter = r
	}
}

// New creates a completer reporting missing properties to h.
func New(h MissingPropertiesHandler, opts ...Option) *Completer {
	c := &Completer{handler: h, reporter: diagnostics.Discard}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete validates r against decl. The root of the result is nil when the tree
// cannot be completed. Broken invariants between stages panic with a
// *tree.IntegrityError.
func (c *Completer) Complete(r tree.Refined, decl *schema.Object) tree.Complete {
	root := r.Root()
	if decl == nil {
		decl = root.Object
	}
	if decl == nil {
		tree.Violation("complete", nil, "root has no object declaration")
	}

	a := anchor{trace: root.Trace}
	return tree.NewComplete(c.object(root, decl, nil, a))
}

// anchor is the most specific explicit trace seen along the current path, with the
// length of the path at that point.
type anchor struct {
	trace tree.Trace
	depth int
}

func (a anchor) enter(t tree.Trace, depth int) anchor {
	if t.IsDefault() || (t.File == "" && t.Line == 0) {
		return a
	}
	return anchor{trace: t, depth: depth}
}

func (c *Completer) node(n tree.Node, typ *schema.Type, path []string, a anchor) tree.CompleteNode {
	switch n := n.(type) {
	case *tree.Error, *tree.Reference, *tree.Interpolation, *tree.NoValue:
		return nil
	case *tree.Null:
		return n
	case *tree.Scalar:
		if typ != nil && !typ.IsScalar() {
			return c.mismatch(n, typ, path)
		}
		return n
	case *tree.List:
		if typ != nil && typ.Kind != schema.KindList {
			return c.mismatch(n, typ, path)
		}
		var elem *schema.Type
		if typ != nil {
			elem = typ.Elem
		}
		out := &tree.CompleteList{Meta: n.Meta, Children: make([]tree.CompleteNode, 0, len(n.Children))}
		for i, child := range n.Children {
			p := appendPath(path, "["+strconv.Itoa(i)+"]")
			if v := c.node(child, elem, p, a.enter(child.Info().Trace, len(p))); v != nil {
				out.Children = append(out.Children, v)
			}
		}
		return out
	case *tree.Mapping:
		switch {
		case typ != nil && typ.Kind == schema.KindObject:
			return nilIfAbsent(c.object(n, typ.Object, path, a))
		case typ != nil && typ.Kind == schema.KindMap:
			return c.mapping(n, typ.Elem, path, a)
		case typ == nil && n.Object != nil:
			return nilIfAbsent(c.object(n, n.Object, path, a))
		case typ == nil:
			return c.mapping(n, nil, path, a)
		default:
			return c.mismatch(n, typ, path)
		}
	}
	tree.Violation("complete", path, "unexpected node %T", n)
	return nil
}

// nilIfAbsent avoids wrapping a nil object into a non-nil interface.
func nilIfAbsent(o *tree.CompleteObject) tree.CompleteNode {
	if o == nil {
		return nil
	}
	return o
}

// mismatch handles a value whose shape does not match its declaration. Values that
// came from a reference are a user problem, anything else is a reader bug.
func (c *Completer) mismatch(n tree.Node, typ *schema.Type, path []string) tree.CompleteNode {
	trace := n.Info().Trace
	if trace.Resolved == nil {
		tree.Violation("complete", path, "%T does not match declared type %s", n, typ)
	}
	c.reporter.Report(diagnostics.New(
		diagnostics.Expected(typ.Kind.String()),
		diagnostics.LevelError,
		trace,
		"referenced value for '%s' is not a %s",
		strings.Join(path, "."), typ,
	))
	return nil
}

func (c *Completer) mapping(n *tree.Mapping, elem *schema.Type, path []string, a anchor) tree.CompleteNode {
	out := &tree.CompleteMap{Meta: n.Meta, Entries: make([]*tree.CompleteEntry, 0, len(n.Children))}
	for _, kv := range n.Children {
		p := appendPath(path, kv.Key)
		v := c.node(kv.Value, elem, p, a.enter(kv.KeyTrace, len(p)))
		if v == nil {
			continue
		}
		out.Entries = append(out.Entries, &tree.CompleteEntry{Key: kv.Key, KeyTrace: kv.KeyTrace, Value: v})
	}
	return out
}

func (c *Completer) object(n *tree.Mapping, decl *schema.Object, path []string, a anchor) *tree.CompleteObject {
	values := make(map[string]tree.CompleteNode, len(n.Children))
	entries := make(map[string]*tree.KeyValue, len(n.Children))
	complete := true

	for _, kv := range n.Children {
		p := appendPath(path, kv.Key)
		prop := decl.Property(kv.Key)
		if prop == nil {
			tree.Violation("complete", p, "property is not declared by %s", decl.Name)
		}
		entries[prop.Name] = kv
		v := c.node(kv.Value, prop.Type, p, a.enter(kv.KeyTrace, len(p)))
		if v == nil {
			complete = false
			continue
		}
		values[prop.Name] = v
	}

	for _, prop := range decl.Properties {
		if _, present := entries[prop.Name]; present {
			continue
		}
		p := appendPath(path, prop.Name)
		if schema.Derivable(prop.Default) {
			tree.Violation("complete", p, "default of %s was not injected", prop)
		}
		c.handler.Missing(a.trace, p, append([]string(nil), p[a.depth:]...))
		complete = false
	}

	if !complete {
		return nil
	}

	out := &tree.CompleteObject{Meta: n.Meta, Object: decl}
	for _, prop := range decl.Properties {
		v, ok := values[prop.Name]
		if !ok {
			continue
		}
		kv := entries[prop.Name]
		out.Properties = append(out.Properties, &tree.CompleteEntry{
			Key:      prop.Name,
			KeyTrace: kv.KeyTrace,
			Value:    v,
			Property: prop,
		})
	}
	return out
}

func appendPath(path []string, seg string) []string {
	return append(path[:len(path):len(path)], seg)
}
