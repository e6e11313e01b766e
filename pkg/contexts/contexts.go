package contexts

import (
	"path/filepath"
	"strings"
)

// Kind groups contexts into independent specificity dimensions.
type Kind int

const (
	// KindPlatform marks platform contexts (jvm, android, ios, ...).
	KindPlatform Kind = iota
	// KindTest marks the test build mode.
	KindTest
	// KindPath marks the source file of a node.
	KindPath
	// KindDefault marks type-level default values.
	KindDefault
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindTest:
		return "test"
	case KindPath:
		return "path"
	case KindDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Context is a single tag attached to a tree node.
type Context interface {
	// Kind reports the dimension of the context.
	Kind() Kind
	// String renders the context for diagnostics and dumps.
	String() string
}

// Platform is a platform or platform alias context.
type Platform struct {
	Name string
}

// Kind implements Context.
func (Platform) Kind() Kind { return KindPlatform }

func (p Platform) String() string { return p.Name }

// Test marks values coming from test-only blocks.
type Test struct{}

// Kind implements Context.
func (Test) Kind() Kind { return KindTest }

func (Test) String() string { return "test" }

// Path tags a node with the file it was read from.
type Path struct {
	File string
}

// Kind implements Context.
func (Path) Kind() Kind { return KindPath }

func (p Path) String() string { return filepath.ToSlash(p.File) }

// Relative renders the path relative to root with forward slashes.
func (p Path) Relative(root string) string {
	rel := p.File
	if root != "" {
		if r, err := filepath.Rel(root, p.File); err == nil {
			rel = r
		}
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), `\`, "/")
}

// Default tags type-level default values.
type Default struct{}

// Kind implements Context.
func (Default) Kind() Kind { return KindDefault }

func (Default) String() string { return "default" }

// Contexts is an ordered set of contexts. The zero value is the empty set, which
// applies to every selection.
type Contexts []Context

// Empty is the empty context set.
var Empty = Contexts{}

// Of builds a context set, dropping duplicates while keeping the first occurrence.
func Of(cs ...Context) Contexts {
	return Contexts(nil).With(cs...)
}

// Platforms builds a set of platform contexts from names.
func Platforms(names ...string) Contexts {
	out := make(Contexts, 0, len(names))
	for _, n := range names {
		out = out.With(Platform{Name: n})
	}
	return out
}

func key(c Context) string {
	return c.Kind().String() + ":" + c.String()
}

// Has reports whether the set contains c.
func (cs Contexts) Has(c Context) bool {
	k := key(c)
	for _, x := range cs {
		if key(x) == k {
			return true
		}
	}
	return false
}

// HasKind reports whether the set contains a context of the given kind.
func (cs Contexts) HasKind(kind Kind) bool {
	for _, x := range cs {
		if x.Kind() == kind {
			return true
		}
	}
	return false
}

// IsDefault reports whether the set carries the default marker.
func (cs Contexts) IsDefault() bool {
	return cs.HasKind(KindDefault)
}

// With returns a new set with the given contexts appended.
func (cs Contexts) With(more ...Context) Contexts {
	out := make(Contexts, 0, len(cs)+len(more))
	out = append(out, cs...)
	for _, c := range more {
		if c == nil || out.Has(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Union returns the contexts of both sets, a first.
func Union(a, b Contexts) Contexts {
	return a.With(b...)
}

// Intersect returns the contexts present in both sets, in a's order.
func Intersect(a, b Contexts) Contexts {
	out := make(Contexts, 0, len(a))
	for _, c := range a {
		if b.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// OfKind returns only the contexts of the given kind.
func (cs Contexts) OfKind(kind Kind) Contexts {
	var out Contexts
	for _, c := range cs {
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

// Without returns the set with all contexts of the given kinds removed.
func (cs Contexts) Without(kinds ...Kind) Contexts {
	out := make(Contexts, 0, len(cs))
outer:
	for _, c := range cs {
		for _, k := range kinds {
			if c.Kind() == k {
				continue outer
			}
		}
		out = append(out, c)
	}
	return out
}

// Equal reports whether both sets hold the same contexts, ignoring order.
func Equal(a, b Contexts) bool {
	if len(a) != len(b) {
		return false
	}
	for _, c := range a {
		if !b.Has(c) {
			return false
		}
	}
	return true
}

// Render joins the contexts with ", ", printing paths relative to root.
func (cs Contexts) Render(root string) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		if p, ok := c.(Path); ok {
			parts = append(parts, p.Relative(root))
			continue
		}
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ", ")
}

func (cs Contexts) String() string {
	return "(" + cs.Render("") + ")"
}
