package tree

import (
	"fmt"
	"path/filepath"
)

// Trace records where a node came from.
type Trace struct {
	// File is the source file, empty for synthetic nodes.
	File string

	// Line and Column are 1-based positions inside File.
	Line   int
	Column int

	// Default marks values synthesized from type-level defaults.
	Default bool

	// Preceding is the candidate this node superseded during refinement.
	Preceding Node

	// Resolved is the trace of the value a reference was substituted with.
	Resolved *Trace
}

// DefaultTrace is the trace of synthesized default values.
var DefaultTrace = Trace{Default: true}

// At returns a source trace.
func At(file string, line, column int) Trace {
	return Trace{File: file, Line: line, Column: column}
}

// IsDefault reports whether the trace belongs to a synthesized default.
func (t Trace) IsDefault() bool {
	return t.Default
}

// WithPreceding returns a copy of the trace recording the superseded node.
func (t Trace) WithPreceding(n Node) Trace {
	t.Preceding = n
	return t
}

// WithResolved returns a copy of the trace recording the substituted value origin.
func (t Trace) WithResolved(origin Trace) Trace {
	t.Resolved = &origin
	return t
}

// Chain returns the traces of every superseded candidate, most recent first.
func (t Trace) Chain() []Trace {
	var out []Trace
	for p := t.Preceding; p != nil; {
		pt := p.Info().Trace
		out = append(out, pt)
		p = pt.Preceding
	}
	return out
}

func (t Trace) String() string {
	if t.Default {
		return "<default>"
	}
	if t.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", filepath.ToSlash(t.File), t.Line, t.Column)
}
