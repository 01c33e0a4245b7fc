package domain

import (
	"errors"
	"fmt"
)

// Load errors. Both abort the whole load.
var (
	// ErrMissingLibraryFile is returned when a required document or directory is absent.
	ErrMissingLibraryFile = errors.New("missing library file")
	// ErrMalformedDocument is returned when a document cannot be decoded,
	// including unknown fields and missing required fields.
	ErrMalformedDocument = errors.New("malformed document")
)

// Validation errors. The first one found aborts library construction.
var (
	ErrInvalidVersion         = errors.New("invalid version")
	ErrUnknownModuleReference = errors.New("unknown module reference")
	ErrUnknownToolReference   = errors.New("unknown tool reference")
	ErrUnknownLeafNode        = errors.New("unknown leaf node")
	ErrReservedTreeName       = errors.New("tree name is reserved by a known node")
	ErrDuplicateTreeName      = errors.New("duplicate tree name")
	ErrUnknownParticipant     = errors.New("unknown participant")
	ErrUnknownWorkflowStep    = errors.New("unknown workflow step")
	ErrDuplicateWorkflow      = errors.New("duplicate workflow title")
)

// Lookup errors.
var (
	ErrTreeNotFound     = errors.New("tree not found")
	ErrWorkflowNotFound = errors.New("workflow not found")
)

// LoadError locates a load failure. Kind is ErrMissingLibraryFile or
// ErrMalformedDocument.
type LoadError struct {
	Kind  error
	Path  string
	Field string
	Err   error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Path)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ValidationError reports the first cross-reference violation found.
// Document is the document holding the offending Name.
type ValidationError struct {
	Kind     error
	Document string
	Name     string
	Detail   string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %q in %s", e.Kind, e.Name, e.Document)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}
