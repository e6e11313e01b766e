package frontend

import (
	"errors"
	"fmt"

	"github.com/openfroyo/modconf/pkg/diagnostics"
)

// ErrorClass classifies resolution failures.
type ErrorClass string

const (
	// ErrorClassUser is a problem in the configuration files; the diagnostics
	// explain it.
	ErrorClassUser ErrorClass = "user"

	// ErrorClassIO is a failure to access the files.
	ErrorClassIO ErrorClass = "io"

	// ErrorClassInternal is a broken invariant between pipeline stages.
	ErrorClassInternal ErrorClass = "internal"
)

// Error codes.
const (
	ErrCodeRead              = "READ_ERROR"
	ErrCodeParse             = "PARSE_ERROR"
	ErrCodeSchema            = "SCHEMA_ERROR"
	ErrCodeProductNotDefined = "PRODUCT_NOT_DEFINED"
	ErrCodeIntegrity         = "INTEGRITY_VIOLATION"
)

// ResolutionError is a classified failure of loading or resolving a module.
type ResolutionError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Module is the module file the error belongs to.
	Module string `json:"module,omitempty"`

	// Stage is the pipeline stage that failed.
	Stage string `json:"stage,omitempty"`

	// Problems are the diagnostics collected before the failure.
	Problems []diagnostics.Problem `json:"problems,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Module != "" {
		msg += fmt.Sprintf(" (module=%s", e.Module)
		if e.Stage != "" {
			msg += ", stage=" + e.Stage
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is matches errors of the same class and code.
func (e *ResolutionError) Is(target error) bool {
	t, ok := target.(*ResolutionError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewUserError creates an error caused by the configuration files.
func NewUserError(message string, err error) *ResolutionError {
	return &ResolutionError{Class: ErrorClassUser, Message: message, Err: err}
}

// NewIOError creates an error caused by file access.
func NewIOError(message string, err error) *ResolutionError {
	return &ResolutionError{Class: ErrorClassIO, Message: message, Err: err, Code: ErrCodeRead}
}

// NewInternalError creates an error for a broken pipeline invariant.
func NewInternalError(message string, err error) *ResolutionError {
	return &ResolutionError{Class: ErrorClassInternal, Message: message, Err: err, Code: ErrCodeIntegrity}
}

// WithModule sets the module file.
func (e *ResolutionError) WithModule(path string) *ResolutionError {
	e.Module = path
	return e
}

// WithStage sets the failing stage.
func (e *ResolutionError) WithStage(stage string) *ResolutionError {
	e.Stage = stage
	return e
}

// WithCode sets the error code.
func (e *ResolutionError) WithCode(code string) *ResolutionError {
	e.Code = code
	return e
}

// WithProblems attaches collected diagnostics.
func (e *ResolutionError) WithProblems(problems []diagnostics.Problem) *ResolutionError {
	e.Problems = problems
	return e
}

func classOf(err error) (ErrorClass, bool) {
	var e *ResolutionError
	if errors.As(err, &e) {
		return e.Class, true
	}
	return "", false
}

// IsUser reports whether err is caused by the configuration files.
func IsUser(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassUser
}

// IsIO reports whether err is a file access failure.
func IsIO(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassIO
}

// IsInternal reports whether err is a broken pipeline invariant.
func IsInternal(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassInternal
}
