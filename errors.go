package fhirmodel

import (
	"fmt"
	"strings"

	"github.com/gofhir/model/pool"
)

// RootLoc is the synthetic location used for whole-object failures:
// decode errors and cross-field validator errors.
const RootLoc = "__root__"

// Error type codes carried by FieldError.Type.
const (
	ErrTypeWrongResourceType = "wrong.resource_type"
	ErrTypeExtraField        = "value_error.extra"
	ErrTypeValue             = "value_error"
	ErrTypeType              = "type_error"
)

// FieldError is a single structured validation failure: a location path
// into the value tree, a human-readable message and a stable type code.
type FieldError struct {
	Loc  []string
	Msg  string
	Type string
}

// Path returns the dotted location path.
func (e FieldError) Path() string {
	return pool.JoinPath(e.Loc...)
}

func (e FieldError) String() string {
	return e.Path() + ": " + e.Msg + " (" + e.Type + ")"
}

// ValidationError aggregates the field errors raised while constructing
// or mutating a model instance. Model is the fully-qualified Go type
// name of the offending type.
type ValidationError struct {
	Model  string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation error(s) for %s", len(e.Errors), e.Model)
	for _, fe := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(fe.String())
	}
	return b.String()
}

// ConfigError reports a misconfigured model type, such as a root
// validator whose name collides with an existing member. It is raised
// at setup time, never per instance.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

// DecodeError wraps a failure to parse raw bytes or text into a value
// mapping, anchored at the synthetic root location.
type DecodeError struct {
	Loc string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Loc, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError wraps err at the synthetic root location.
func NewDecodeError(err error) *DecodeError {
	return &DecodeError{Loc: RootLoc, Err: err}
}

// UnsupportedExcludeError reports an exclusion set of an unsupported
// type. Only string sets and per-key mappings are accepted.
type UnsupportedExcludeError struct {
	Got any
}

func (e *UnsupportedExcludeError) Error() string {
	return fmt.Sprintf("only a string set or per-key mapping exclude value is accepted, got %T", e.Got)
}
