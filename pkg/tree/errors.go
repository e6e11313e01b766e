package tree

import (
	"fmt"
	"strings"
)

// IntegrityError reports a broken invariant between pipeline stages, e.g. a property
// present in the tree but missing from its object declaration. It is raised with panic
// and never caused by user input.
type IntegrityError struct {
	Stage   string
	Path    []string
	Message string
}

func (e *IntegrityError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: integrity violation: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: integrity violation at %s: %s", e.Stage, strings.Join(e.Path, "."), e.Message)
}

// Violation panics with an IntegrityError.
func Violation(stage string, path []string, format string, args ...any) {
	panic(&IntegrityError{
		Stage:   stage,
		Path:    append([]string(nil), path...),
		Message: fmt.Sprintf(format, args...),
	})
}
