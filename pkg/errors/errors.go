// Package errors provides the structured error kinds shared by the service
// layers. Callers classify failures with errors.As or the Is helper instead of
// matching on message text.
package errors

import (
	"errors"
	"fmt"
)

// ValidationError indicates invalid input, configuration or gazetteer data.
type ValidationError struct {
	Op  string // package.Function
	Msg string // human friendly message (no raw addresses)
	Err error  // optional cause
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("validation: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("validation: %s: %s", e.Op, e.Msg)
}

func (e *ValidationError) Unwrap() error           { return e.Err }
func (e *ValidationError) Operation() string       { return e.Op }
func (e *ValidationError) Message() string         { return e.Msg }
func (e *ValidationError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewValidation(op, msg string, err error) error {
	return &ValidationError{Op: op, Msg: msg, Err: err}
}

// DBError represents storage failures.
type DBError struct {
	Op  string
	Msg string
	Err error
}

func (e *DBError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("db: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("db: %s: %s", e.Op, e.Msg)
}

func (e *DBError) Unwrap() error           { return e.Err }
func (e *DBError) Operation() string       { return e.Op }
func (e *DBError) Message() string         { return e.Msg }
func (e *DBError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewDB(op, msg string, err error) error { return &DBError{Op: op, Msg: msg, Err: err} }

// ExternalAPIError represents failures in a remote system such as the geocoder.
type ExternalAPIError struct {
	Op     string
	Msg    string
	Err    error
	System string // e.g. "google"
}

func (e *ExternalAPIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	sys := e.System
	if sys == "" {
		sys = "external"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", sys, e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", sys, e.Op, e.Msg)
}

func (e *ExternalAPIError) Unwrap() error     { return e.Err }
func (e *ExternalAPIError) Operation() string { return e.Op }
func (e *ExternalAPIError) Message() string   { return e.Msg }
func (e *ExternalAPIError) Context() map[string]any {
	return map[string]any{"op": e.Op, "msg": e.Msg, "system": e.System}
}

func NewExternal(op, system, msg string, err error) error {
	return &ExternalAPIError{Op: op, System: system, Msg: msg, Err: err}
}

// NotFoundError reports a lookup that matched nothing: a missing location row
// or a geocoder query with zero results.
type NotFoundError struct {
	Op       string
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Key != "" {
		return fmt.Sprintf("not found: %s: %s %s", e.Op, e.Resource, e.Key)
	}
	return fmt.Sprintf("not found: %s: %s", e.Op, e.Resource)
}

func (e *NotFoundError) Operation() string { return e.Op }
func (e *NotFoundError) Message() string   { return e.Resource + " not found" }
func (e *NotFoundError) Context() map[string]any {
	return map[string]any{"op": e.Op, "resource": e.Resource, "key": e.Key}
}

func NewNotFound(op, resource, key string) error {
	return &NotFoundError{Op: op, Resource: resource, Key: key}
}

// Kind sentinels for use with Is.
// Example: if errors.Is(err, errors.ErrNotFound) { ... }
var (
	ErrValidation = &ValidationError{}
	ErrDB         = &DBError{}
	ErrExternal   = &ExternalAPIError{}
	ErrNotFound   = &NotFoundError{}
)

// Is reports whether err carries the same kind as target. Kind sentinels match
// any error of their type anywhere in the chain; other targets fall back to
// errors.Is.
func Is(err, target error) bool {
	if err == nil || target == nil {
		return errors.Is(err, target)
	}
	switch target.(type) {
	case *ValidationError:
		var v *ValidationError
		return errors.As(err, &v)
	case *DBError:
		var d *DBError
		return errors.As(err, &d)
	case *ExternalAPIError:
		var ex *ExternalAPIError
		return errors.As(err, &ex)
	case *NotFoundError:
		var nf *NotFoundError
		return errors.As(err, &nf)
	default:
		return errors.Is(err, target)
	}
}
