package apperrors

import (
	"errors"
	"maps"
	"strings"
)

// appError implements the Error interface. It supports wrapping, an HTTP status
// code, a Kind for classification and a set of structured details.
type appError struct {
	msg           string         // primary error message
	base          error          // base error for errors.Is/As compatibility
	wrappedErrors []error        // additional wrapped errors
	statuscode    int            // HTTP status code
	kind          Kind           // failure class, inherited by children
	details       map[string]any // structured context for failure records
	expandError   bool           // controls error message expansion
	prefix        string         // optional message prefix
}

// Error returns the message, with the prefix when one is set.
func (e *appError) Error() string {
	if e.prefix != "" {
		return e.prefix + ": " + e.msg
	}
	return e.msg
}

// ErrorAll returns the full message including wrapped errors if expandError is
// true. Otherwise, returns the same as Error().
func (e *appError) ErrorAll() string {
	if !e.expandError {
		return e.Error()
	}
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.wrappedErrors {
		if err == e.base {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the base error for compatibility with errors.Is / errors.As.
func (e *appError) Unwrap() error {
	return e.base
}

// UnwrapAll returns all wrapped errors in the order they were added.
func (e *appError) UnwrapAll() []error {
	return e.wrappedErrors
}

// derive returns a child of e that inherits status, kind and details.
func (e *appError) derive(msg string, wrapped []error) *appError {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: wrapped,
		statuscode:    e.statuscode,
		kind:          e.kind,
		details:       maps.Clone(e.details),
		expandError:   e.expandError,
	}
}

// Msg creates a new error with a new message and wraps the original error
// together with everything it already wrapped.
func (e *appError) Msg(msg string) Error {
	return e.derive(msg, append([]error{e}, e.wrappedErrors...))
}

// New creates a fresh error using the current error as a template.
func (e *appError) New(msg string) Error {
	return e.derive(msg, nil)
}

// MsgErr creates a new error with a message and wraps additional errors.
// Nil errors are dropped.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	return e.derive(msg, append([]error{e}, nonNil(errs)...))
}

// Err creates a new error by attaching additional errors to the current error.
// The new error keeps the original message.
func (e *appError) Err(errs ...error) Error {
	return e.derive(e.msg, append([]error{e}, nonNil(errs)...))
}

// Prefix returns a shallow copy with an updated prefix.
// The original error remains unchanged.
func (e *appError) Prefix(p string) Error {
	cp := *e
	cp.prefix = p
	return &cp
}

// SetExpandError returns a shallow copy with an updated expansion flag.
// The original error remains unchanged.
func (e *appError) SetExpandError(flag bool) Error {
	cp := *e
	cp.expandError = flag
	return &cp
}

// SetStatusCode returns a shallow copy with an updated status code.
// The original error remains unchanged.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

// StatusCode returns the current HTTP status code.
func (e *appError) StatusCode() int {
	return e.statuscode
}

// SetKind returns a shallow copy classified as k.
// The original error remains unchanged.
func (e *appError) SetKind(k Kind) Error {
	cp := *e
	cp.kind = k
	return &cp
}

// Kind returns the failure class.
func (e *appError) Kind() Kind {
	return e.kind
}

// With returns a copy carrying the detail. The receiver is left untouched.
func (e *appError) With(key string, value any) Error {
	cp := *e
	cp.details = maps.Clone(e.details)
	if cp.details == nil {
		cp.details = make(map[string]any)
	}
	cp.details[key] = value
	return &cp
}

// Details returns a copy of the structured details.
func (e *appError) Details() map[string]any {
	return maps.Clone(e.details)
}

// New creates a root-level error with the given message.
// This is the entry point for creating new errors.
func New(msg string) Error {
	return &appError{
		msg: msg,
	}
}

// Is checks if the error is equal to the target error by checking
// both the base error and all wrapped errors.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func nonNil(errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
