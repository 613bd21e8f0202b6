package ums

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable discriminant of personakit errors.
type ErrorKind string

const (
	KindConflict    ErrorKind = "conflict"
	KindValidation  ErrorKind = "validation"
	KindModuleLoad  ErrorKind = "module_load"
	KindPersonaLoad ErrorKind = "persona_load"
	KindBuild       ErrorKind = "build"
)

type kinded interface {
	Kind() ErrorKind
}

// KindOf returns the kind of the first personakit error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// ConflictError is raised when several sources define one ID under the error strategy.
type ConflictError struct {
	ID            string
	ConflictCount int
	Sources       []Source
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("module %s is defined by %d sources %v", e.ID, e.ConflictCount, e.Sources)
}

func (e *ConflictError) Kind() ErrorKind { return KindConflict }

// ValidationError is a structural or schema violation at a field path.
type ValidationError struct {
	Path    string
	Message string
	// Section optionally names the schema section the rule comes from.
	Section string
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	if e.Section != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Section)
	}
	return msg
}

func (e *ValidationError) Kind() ErrorKind { return KindValidation }

// ValidationWarning is a non-fatal finding.
type ValidationWarning struct {
	Path    string
	Message string
}

func (w ValidationWarning) String() string {
	if w.Path == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Path, w.Message)
}

// ModuleLoadError is an I/O or parse failure for a module file.
type ModuleLoadError struct {
	FilePath string
	Err      error
}

func (e *ModuleLoadError) Error() string {
	return fmt.Sprintf("failed to load module %s: %v", e.FilePath, e.Err)
}

func (e *ModuleLoadError) Unwrap() error   { return e.Err }
func (e *ModuleLoadError) Kind() ErrorKind { return KindModuleLoad }

// PersonaLoadError is an I/O or parse failure for a persona file.
type PersonaLoadError struct {
	FilePath string
	Err      error
}

func (e *PersonaLoadError) Error() string {
	return fmt.Sprintf("failed to load persona %s: %v", e.FilePath, e.Err)
}

func (e *PersonaLoadError) Unwrap() error   { return e.Err }
func (e *PersonaLoadError) Kind() ErrorKind { return KindPersonaLoad }

// BuildError is a pipeline failure not otherwise classified.
type BuildError struct {
	Op  string
	Err error
}

func (e *BuildError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("build %s failed", e.Op)
	}
	return fmt.Sprintf("build %s: %v", e.Op, e.Err)
}

func (e *BuildError) Unwrap() error   { return e.Err }
func (e *BuildError) Kind() ErrorKind { return KindBuild }

// ValidationResult is the outcome of a validator.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// AddError records an error and marks the result invalid.
func (r *ValidationResult) AddError(path, section, format string, args ...interface{}) {
	r.Errors = append(r.Errors, ValidationError{Path: path, Section: section, Message: fmt.Sprintf(format, args...)})
	r.Valid = false
}

// AddWarning records a warning.
func (r *ValidationResult) AddWarning(path, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, ValidationWarning{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Err returns the first error as an error value, or nil when valid.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	e := r.Errors[0]
	return &e
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() ValidationResult {
	return ValidationResult{Valid: true}
}
