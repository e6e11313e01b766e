package tree

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/schema"
)

const dumpIndent = "  "

// Dump renders n as indented JSON-like text. Every key is followed by its
// parenthesized contexts, with paths printed relative to root. The format is meant
// for debugging and golden files only.
func Dump(n Node, root string) string {
	var b strings.Builder
	d := dumper{w: &b, root: root}
	d.node(n, 0)
	return b.String()
}

// DumpTo writes the dump of n to w.
func DumpTo(w io.Writer, n Node, root string) error {
	_, err := io.WriteString(w, Dump(n, root)+"\n")
	return err
}

type dumper struct {
	w    *strings.Builder
	root string
}

type dumpEntry struct {
	key      string
	contexts contexts.Contexts
	value    Node
}

func (d *dumper) node(n Node, depth int) {
	switch n := n.(type) {
	case *Mapping:
		entries := make([]dumpEntry, 0, len(n.Children))
		for _, kv := range n.Children {
			entries = append(entries, dumpEntry{kv.Key, kv.Contexts(), kv.Value})
		}
		d.object(entries, depth)
	case *CompleteMap:
		d.object(completeEntries(n.Entries), depth)
	case *CompleteObject:
		if n == nil {
			d.w.WriteString("null")
			return
		}
		d.object(completeEntries(n.Properties), depth)
	case *List:
		d.list(n.Children, depth)
	case *CompleteList:
		children := make([]Node, 0, len(n.Children))
		for _, c := range n.Children {
			children = append(children, c)
		}
		d.list(children, depth)
	case *Scalar:
		d.w.WriteString(scalarText(n, d.root))
	case *Null:
		d.w.WriteString("null")
	case *NoValue:
		d.w.WriteString("<no value>")
	case *Error:
		d.w.WriteString("<error>")
	case *Reference:
		text := n.Prefix + "${" + n.Path + "}" + n.Suffix
		d.w.WriteString(strconv.Quote(text))
		if n.Transform != nil {
			d.w.WriteString(" | " + n.Transform.String())
		}
	case *Interpolation:
		var text strings.Builder
		for _, p := range n.Parts {
			if p.Reference != "" {
				text.WriteString("${" + p.Reference + "}")
			} else {
				text.WriteString(p.Text)
			}
		}
		d.w.WriteString(strconv.Quote(text.String()))
	case nil:
		d.w.WriteString("null")
	default:
		d.w.WriteString(fmt.Sprintf("<%T>", n))
	}
}

func completeEntries(in []*CompleteEntry) []dumpEntry {
	out := make([]dumpEntry, 0, len(in))
	for _, e := range in {
		out = append(out, dumpEntry{e.Key, e.Value.Info().Contexts, e.Value})
	}
	return out
}

func (d *dumper) object(entries []dumpEntry, depth int) {
	if len(entries) == 0 {
		d.w.WriteString("{}")
		return
	}
	d.w.WriteString("{\n")
	inner := strings.Repeat(dumpIndent, depth+1)
	for i, e := range entries {
		d.w.WriteString(inner)
		d.w.WriteString(strconv.Quote(e.key))
		d.w.WriteString(" (" + e.contexts.Render(d.root) + "): ")
		d.node(e.value, depth+1)
		if i < len(entries)-1 {
			d.w.WriteString(",")
		}
		d.w.WriteString("\n")
	}
	d.w.WriteString(strings.Repeat(dumpIndent, depth) + "}")
}

func (d *dumper) list(children []Node, depth int) {
	if len(children) == 0 {
		d.w.WriteString("[]")
		return
	}
	d.w.WriteString("[\n")
	inner := strings.Repeat(dumpIndent, depth+1)
	for i, c := range children {
		d.w.WriteString(inner)
		d.node(c, depth+1)
		if i < len(children)-1 {
			d.w.WriteString(",")
		}
		d.w.WriteString("\n")
	}
	d.w.WriteString(strings.Repeat(dumpIndent, depth) + "]")
}

func scalarText(n *Scalar, root string) string {
	switch v := n.Value.(type) {
	case string:
		if n.Kind == schema.KindPath {
			v = contexts.Path{File: v}.Relative(root)
		}
		return strconv.Quote(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strconv.Quote(fmt.Sprint(v))
	}
}
