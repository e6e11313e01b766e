package resolve

import (
	"sort"
	"strconv"
	"strings"

	"github.com/openfroyo/modconf/pkg/tree"
)

// Leftover is a reference that resolution could not substitute.
type Leftover struct {
	// Path is the location of the reference, list elements written as "[i]".
	Path []string
	// Ref is the referenced dotted path.
	Ref string
	// Target is the location Ref points at, or nil when no enclosing mapping holds
	// its first segment.
	Target []string
	Trace  tree.Trace
}

// Key returns the dotted location of the reference.
func (l Leftover) Key() string { return strings.Join(l.Path, ".") }

// Unresolved lists the references left in the tree rooted at root, in tree order.
func Unresolved(root *tree.Mapping) []Leftover {
	var out []Leftover
	var walk func(n tree.Node, path []string, scopes []scope)
	walk = func(n tree.Node, path []string, scopes []scope) {
		switch n := n.(type) {
		case *tree.Mapping:
			scopes = append(scopes[:len(scopes):len(scopes)], scope{n, path})
			for _, kv := range n.Children {
				walk(kv.Value, appendPath(path, kv.Key), scopes)
			}
		case *tree.List:
			for i, c := range n.Children {
				walk(c, appendPath(path, "["+strconv.Itoa(i)+"]"), scopes)
			}
		case *tree.Reference:
			out = append(out, leftover(path, n.Path, n.Trace, scopes))
		case *tree.Interpolation:
			for _, ref := range n.References() {
				out = append(out, leftover(path, ref, n.Trace, scopes))
			}
		}
	}
	walk(root, nil, nil)
	return out
}

type scope struct {
	mapping *tree.Mapping
	path    []string
}

func appendPath(path []string, seg string) []string {
	return append(path[:len(path):len(path)], seg)
}

func leftover(path []string, ref string, trace tree.Trace, scopes []scope) Leftover {
	l := Leftover{Path: path, Ref: ref, Trace: trace}
	segments := strings.Split(ref, ".")
	for i := len(scopes) - 1; i >= 0; i-- {
		if scopes[i].mapping.Has(segments[0]) {
			l.Target = append(append([]string(nil), scopes[i].path...), segments...)
			break
		}
	}
	return l
}

// FindCycles returns the reference cycles among leftovers. A reference depends on
// every leftover located at or below its target. Each cycle lists reference
// locations and ends with its first element.
func FindCycles(leftovers []Leftover) [][]string {
	edges := make(map[string][]string, len(leftovers))
	ids := make([]string, 0, len(leftovers))
	for _, u := range leftovers {
		id := u.Key()
		if _, ok := edges[id]; !ok {
			ids = append(ids, id)
			edges[id] = nil
		}
		if u.Target == nil {
			continue
		}
		for _, v := range leftovers {
			if hasPrefix(v.Path, u.Target) {
				edges[id] = append(edges[id], v.Key())
			}
		}
	}
	sort.Strings(ids)

	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	seen := make(map[string]bool)
	var cycles [][]string

	var visit func(id string, path []string)
	visit = func(id string, path []string) {
		visited[id] = true
		recStack[id] = true
		path = append(path, id)

		for _, next := range edges[id] {
			if !visited[next] {
				visit(next, path)
				continue
			}
			if !recStack[next] {
				continue
			}
			// Found a cycle: cut the current path at its first occurrence.
			for i, p := range path {
				if p != next {
					continue
				}
				cycle := append(append([]string(nil), path[i:]...), next)
				if key := canonical(cycle); !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
				break
			}
		}
		recStack[id] = false
	}

	for _, id := range ids {
		if !visited[id] {
			visit(id, nil)
		}
	}
	return cycles
}

// FormatCycle renders a cycle for messages.
func FormatCycle(cycle []string) string {
	return strings.Join(cycle, " -> ")
}

func hasPrefix(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}

// canonical identifies a cycle independently of its starting element.
func canonical(cycle []string) string {
	nodes := cycle[:len(cycle)-1]
	start := 0
	for i := range nodes {
		if nodes[i] < nodes[start] {
			start = i
		}
	}
	rotated := append(append([]string(nil), nodes[start:]...), nodes[:start]...)
	return strings.Join(rotated, "\x00")
}
