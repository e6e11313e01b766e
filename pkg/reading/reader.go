// Package reading builds unmerged trees from module and template YAML files.
//
// Every node gets a trace with its file position and the contexts of its key: the
// file itself, the platform of a `name@platform` modifier and the test context for
// `test-` blocks. Children inherit the contexts of their parent. Values are checked
// against the schema; problems are reported and the offending value becomes an error
// node so that later stages never report it again.
package reading

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/schema"
	"github.com/openfroyo/modconf/pkg/tree"
)

// Reader reads configuration files.
type Reader struct {
	reporter  diagnostics.Reporter
	platforms contexts.PlatformInheritance
	minimal   bool
}

// Option configures a Reader.
type Option func(*Reader)

// WithReporter sets the sink for reading problems.
func WithReporter(rep diagnostics.Reporter) Option {
	return func(r *Reader) {
		r.reporter = rep
	}
}

// WithPlatforms sets the relation used to validate modifiers, including user
// aliases.
func WithPlatforms(p contexts.PlatformInheritance) Option {
	return func(r *Reader) {
		r.platforms = p
	}
}

// Minimal makes the reader accept any modifier and skip unknown properties
// silently. It is used to read the few properties needed before aliases are known.
func Minimal() Option {
	return func(r *Reader) {
		r.minimal = true
	}
}

// New creates a reader.
func New(opts ...Option) *Reader {
	r := &Reader{
		reporter:  diagnostics.Discard,
		platforms: contexts.NewPlatformInheritance(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read reads the file at path as an instance of decl.
func (r *Reader) Read(path string, decl *schema.Object) (tree.Unmerged, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tree.Unmerged{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return r.ReadBytes(path, data, decl)
}

// ReadBytes reads data as the content of the file name.
func (r *Reader) ReadBytes(name string, data []byte, decl *schema.Object) (tree.Unmerged, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return tree.Unmerged{}, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	f := &file{Reader: r, name: name, dir: filepath.Dir(name)}
	cs := contexts.Of(contexts.Path{File: name})

	if doc.Kind == 0 || len(doc.Content) == 0 {
		root := &tree.Mapping{Meta: tree.Meta{Trace: tree.At(name, 1, 1), Contexts: cs}, Object: decl}
		return tree.NewUnmerged(name, root), nil
	}

	node := doc.Content[0]
	if node.Kind != yaml.MappingNode {
		f.report(diagnostics.Expected("object"), node, "expected an object at the top level, got %s", describe(node))
		root := &tree.Mapping{Meta: tree.Meta{Trace: f.trace(node), Contexts: cs}, Object: decl}
		return tree.NewUnmerged(name, root), nil
	}
	return tree.NewUnmerged(name, f.object(node, decl, cs)), nil
}

// file holds the state of reading one file.
type file struct {
	*Reader
	name string
	dir  string
}

func (f *file) trace(n *yaml.Node) tree.Trace {
	return tree.At(f.name, n.Line, n.Column)
}

func (f *file) report(id string, n *yaml.Node, format string, args ...any) {
	f.reporter.Report(diagnostics.New(id, diagnostics.LevelError, f.trace(n), format, args...))
}

func (f *file) warn(id string, n *yaml.Node, format string, args ...any) {
	f.reporter.Report(diagnostics.New(id, diagnostics.LevelWarning, f.trace(n), format, args...))
}

// key parses a mapping key into its name and the contexts of its value.
func (f *file) key(n *yaml.Node, cs contexts.Contexts) (string, contexts.Contexts, bool) {
	name, modifier := splitKey(n.Value)
	if first, _, multiple := strings.Cut(modifier, "+"); multiple {
		f.warn(diagnostics.MultipleQualifiersUnsupported, n,
			"multiple qualifiers are not supported in %q, using %q", n.Value, first)
		modifier = first
	}
	mcs, ok := f.modifierContexts(modifier)
	if !ok {
		f.report(diagnostics.UnknownModifier, n, "unknown platform or alias %q", modifier)
		return "", nil, false
	}
	return name, cs.With(mcs...), true
}

func (f *file) object(n *yaml.Node, decl *schema.Object, cs contexts.Contexts) *tree.Mapping {
	m := &tree.Mapping{Meta: tree.Meta{Trace: f.trace(n), Contexts: cs}, Object: decl}
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		name, kcs, ok := f.key(keyNode, cs)
		if !ok {
			continue
		}

		prop := decl.Property(name)
		if prop == nil && strings.HasPrefix(name, testPrefix) {
			if p := decl.Property(strings.TrimPrefix(name, testPrefix)); p != nil {
				prop = p
				kcs = kcs.With(contexts.Test{})
			}
		}
		if prop == nil {
			if !f.minimal {
				f.report(diagnostics.UnknownProperty, keyNode, "unknown property %q in %s", name, decl.Name)
			}
			continue
		}

		m.Children = append(m.Children, &tree.KeyValue{
			Key:      prop.Name,
			KeyTrace: f.trace(keyNode),
			Value:    f.value(valueNode, prop.Type, kcs),
			Property: prop,
		})
	}
	return m
}

func (f *file) value(n *yaml.Node, typ *schema.Type, cs contexts.Contexts) tree.Node {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	meta := tree.Meta{Trace: f.trace(n), Contexts: cs}

	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		if n.Value == "" {
			return &tree.NoValue{Meta: meta}
		}
		return &tree.Null{Meta: meta}
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		if ref := parseReferences(n.Value, meta); ref != nil {
			return ref
		}
	}

	switch typ.Kind {
	case schema.KindString, schema.KindEnum, schema.KindPath, schema.KindInt, schema.KindBool:
		return f.scalar(n, typ, meta)
	case schema.KindList:
		return f.list(n, typ, meta)
	case schema.KindMap:
		return f.mapping(n, typ, meta)
	case schema.KindObject:
		switch {
		case n.Kind == yaml.MappingNode:
			return f.object(n, typ.Object, cs)
		case n.Kind == yaml.ScalarNode:
			if p := shorthand(typ.Object); p != nil {
				m := &tree.Mapping{Meta: meta, Object: typ.Object}
				m.Children = []*tree.KeyValue{{
					Key:      p.Name,
					KeyTrace: meta.Trace,
					Value:    f.value(n, p.Type, cs),
					Property: p,
				}}
				return m
			}
		}
	}
	return f.mismatch(n, typ, meta)
}

func (f *file) mismatch(n *yaml.Node, typ *schema.Type, meta tree.Meta) tree.Node {
	f.report(diagnostics.Expected(typ.Kind.String()), n, "expected %s, got %s", typ, describe(n))
	return &tree.Error{Meta: meta}
}

func (f *file) scalar(n *yaml.Node, typ *schema.Type, meta tree.Meta) tree.Node {
	if n.Kind != yaml.ScalarNode {
		return f.mismatch(n, typ, meta)
	}

	switch typ.Kind {
	case schema.KindString:
		return &tree.Scalar{Meta: meta, Kind: schema.KindString, Value: n.Value}

	case schema.KindEnum:
		if !typ.Allows(n.Value) {
			f.report(diagnostics.Expected("enum"), n, "unexpected value %q, expected one of %s",
				n.Value, strings.Join(typ.Values, ", "))
			return &tree.Error{Meta: meta}
		}
		return &tree.Scalar{Meta: meta, Kind: schema.KindEnum, Value: n.Value}

	case schema.KindPath:
		p := n.Value
		if !filepath.IsAbs(p) {
			p = filepath.Join(f.dir, p)
		}
		return &tree.Scalar{Meta: meta, Kind: schema.KindPath, Value: p}

	case schema.KindInt:
		if n.Tag != "!!int" {
			return f.mismatch(n, typ, meta)
		}
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return f.mismatch(n, typ, meta)
		}
		return &tree.Scalar{Meta: meta, Kind: schema.KindInt, Value: i}

	case schema.KindBool:
		var b bool
		if n.Tag != "!!bool" || n.Decode(&b) != nil {
			return f.mismatch(n, typ, meta)
		}
		return &tree.Scalar{Meta: meta, Kind: schema.KindBool, Value: b}
	}
	return f.mismatch(n, typ, meta)
}

func (f *file) list(n *yaml.Node, typ *schema.Type, meta tree.Meta) tree.Node {
	if n.Kind != yaml.SequenceNode {
		return f.mismatch(n, typ, meta)
	}
	l := &tree.List{Meta: meta, Children: make([]tree.Node, 0, len(n.Content))}
	for _, item := range n.Content {
		l.Children = append(l.Children, f.value(item, typ.Elem, meta.Contexts))
	}
	return l
}

// mapping reads a string-keyed map. A list of single-key mappings is accepted as
// well, which keeps the order of entries explicit in the source.
func (f *file) mapping(n *yaml.Node, typ *schema.Type, meta tree.Meta) tree.Node {
	m := &tree.Mapping{Meta: meta}
	add := func(keyNode, valueNode *yaml.Node) {
		name, kcs, ok := f.key(keyNode, meta.Contexts)
		if !ok {
			return
		}
		m.Children = append(m.Children, &tree.KeyValue{
			Key:      name,
			KeyTrace: f.trace(keyNode),
			Value:    f.value(valueNode, typ.Elem, kcs),
		})
	}

	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			add(n.Content[i], n.Content[i+1])
		}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
				return f.mismatch(n, typ, meta)
			}
			add(item.Content[0], item.Content[1])
		}
	default:
		return f.mismatch(n, typ, meta)
	}
	return m
}

// shorthand returns the property a scalar is assigned to when an object is written
// as a plain value.
func shorthand(o *schema.Object) *schema.Property {
	for _, p := range o.Properties {
		if p.Shorthand {
			return p
		}
	}
	return nil
}

func describe(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "an object"
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		return fmt.Sprintf("%q", n.Value)
	default:
		return "an unsupported value"
	}
}
