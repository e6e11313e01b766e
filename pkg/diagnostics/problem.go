package diagnostics

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/openfroyo/modconf/pkg/tree"
)

// Level is the severity of a problem.
type Level int

const (
	LevelWarning Level = iota
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalText renders the level name in JSON and YAML output.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Problem IDs reported by the reader and the pipeline.
const (
	UnknownProperty               = "unknown.property"
	UnknownModifier               = "unknown.modifier"
	MultipleQualifiersUnsupported = "multiple.qualifiers.unsupported"
	ContextAmbiguity              = "context.ambiguity"
	MissingValue                  = "validation.missing.value"
	ReferenceUnresolved           = "reference.unresolved"
	ReferenceCycle                = "reference.cycle"
	ProductNotDefined             = "product.not.defined"
	TransformFailed               = "reference.transform.failed"
	PolicyViolation               = "policy.violation"
	ConstraintViolation           = "validation.constraint"
	expectedPrefix                = "validation.expected."
)

// Expected returns the ID of a type mismatch problem, e.g. validation.expected.int.
func Expected(kind string) string {
	return expectedPrefix + kind
}

// Problem is a user-facing diagnostic.
type Problem struct {
	// ID identifies the kind of problem.
	ID string `json:"id" yaml:"id"`

	// Message is the human-readable description.
	Message string `json:"message" yaml:"message"`

	// Level is the severity.
	Level Level `json:"level" yaml:"level"`

	// Trace points at the source of the problem.
	Trace tree.Trace `json:"-" yaml:"-"`

	// Location is the rendered trace.
	Location string `json:"location" yaml:"location"`
}

// New creates a problem.
func New(id string, level Level, trace tree.Trace, format string, args ...any) Problem {
	return Problem{
		ID:       id,
		Message:  fmt.Sprintf(format, args...),
		Level:    level,
		Trace:    trace,
		Location: trace.String(),
	}
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", p.Location, p.Level, p.Message, p.ID)
}

// Reporter receives problems. Implementations must be safe for concurrent use.
type Reporter interface {
	Report(p Problem)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Problem)

// Report implements Reporter.
func (f ReporterFunc) Report(p Problem) { f(p) }

// Discard drops every problem.
var Discard Reporter = ReporterFunc(func(Problem) {})

// Collector stores reported problems.
type Collector struct {
	mu       sync.Mutex
	problems []Problem
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report implements Reporter.
func (c *Collector) Report(p Problem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.problems = append(c.problems, p)
}

// Problems returns the collected problems ordered by location, then ID.
func (c *Collector) Problems() []Problem {
	c.mu.Lock()
	out := append([]Problem(nil), c.problems...)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Trace, out[j].Trace
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// HasErrors reports whether any problem is an error or worse.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.problems {
		if p.Level >= LevelError {
			return true
		}
	}
	return false
}

// Count returns the number of collected problems with the given ID.
func (c *Collector) Count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.problems {
		if p.ID == id || (strings.HasSuffix(id, ".") && strings.HasPrefix(p.ID, id)) {
			n++
		}
	}
	return n
}

// Reset drops all collected problems.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.problems = nil
}

// Tee forwards problems to every reporter.
func Tee(reporters ...Reporter) Reporter {
	return ReporterFunc(func(p Problem) {
		for _, r := range reporters {
			if r != nil {
				r.Report(p)
			}
		}
	})
}
