package tree

import "github.com/openfroyo/modconf/pkg/schema"

// CompleteNode is a node of a complete tree: a Scalar, a Null, a CompleteList, a
// CompleteMap or a CompleteObject. References, interpolations, errors and no-value
// markers never appear in a complete tree.
type CompleteNode interface {
	Node
	completeNode()
}

func (*Scalar) completeNode()         {}
func (*Null) completeNode()           {}
func (*CompleteList) completeNode()   {}
func (*CompleteMap) completeNode()    {}
func (*CompleteObject) completeNode() {}

// CompleteList is a list of complete values.
type CompleteList struct {
	Meta
	Children []CompleteNode
}

// CompleteMap is a string-keyed map of complete values.
type CompleteMap struct {
	Meta
	Entries []*CompleteEntry
}

// CompleteEntry is a key of a CompleteMap or a property of a CompleteObject.
type CompleteEntry struct {
	Key      string
	KeyTrace Trace
	Value    CompleteNode
	Property *schema.Property
}

// CompleteObject is a typed object with every required property present.
type CompleteObject struct {
	Meta
	Object     *schema.Object
	Properties []*CompleteEntry
}

func (n *CompleteList) withMeta(m Meta) Node   { c := *n; c.Meta = m; return &c }
func (n *CompleteMap) withMeta(m Meta) Node    { c := *n; c.Meta = m; return &c }
func (n *CompleteObject) withMeta(m Meta) Node { c := *n; c.Meta = m; return &c }

// Get returns the entry value stored under key.
func (n *CompleteMap) Get(key string) (CompleteNode, bool) {
	for _, e := range n.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Get returns the value of a property, or nil when it is absent.
func (n *CompleteObject) Get(name string) CompleteNode {
	if n == nil {
		return nil
	}
	for _, e := range n.Properties {
		if e.Key == name {
			return e.Value
		}
	}
	return nil
}

// Lookup follows a dotted path through objects and maps.
func (n *CompleteObject) Lookup(path ...string) CompleteNode {
	var cur CompleteNode = n
	for _, seg := range path {
		switch c := cur.(type) {
		case *CompleteObject:
			cur = c.Get(seg)
		case *CompleteMap:
			cur, _ = c.Get(seg)
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Plain converts a complete node into plain Go values: maps, slices, strings, int64,
// bool and nil.
func Plain(n CompleteNode) any {
	switch n := n.(type) {
	case *Scalar:
		return n.Value
	case *Null:
		return nil
	case *CompleteList:
		out := make([]any, 0, len(n.Children))
		for _, c := range n.Children {
			out = append(out, Plain(c))
		}
		return out
	case *CompleteMap:
		out := make(map[string]any, len(n.Entries))
		for _, e := range n.Entries {
			out[e.Key] = Plain(e.Value)
		}
		return out
	case *CompleteObject:
		if n == nil {
			return nil
		}
		out := make(map[string]any, len(n.Properties))
		for _, e := range n.Properties {
			out[e.Key] = Plain(e.Value)
		}
		return out
	}
	return nil
}
