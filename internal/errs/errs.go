// Package errs defines the error taxonomy shared across the indexing and
// search subsystems: configuration, per-file, per-query, timeout, and
// internal-invariant errors (see spec.md §7).
package errs

import "fmt"

// Class categorizes an error for the purposes of propagation and exit codes.
type Class int

const (
	// ClassConfig covers bad roots, unknown kinds, and other argument errors.
	ClassConfig Class = iota
	// ClassPerFile covers parse failures, permission errors, decoding failures.
	ClassPerFile
	// ClassPerQuery covers invalid regex, backend exhaustion.
	ClassPerQuery
	// ClassTimeout covers per-file parser timeouts and backend timeouts.
	ClassTimeout
	// ClassInternal covers panics and invariant violations.
	ClassInternal
)

func (c Class) String() string {
	switch c {
	case ClassConfig:
		return "config"
	case ClassPerFile:
		return "per-file"
	case ClassPerQuery:
		return "per-query"
	case ClassTimeout:
		return "timeout"
	case ClassInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Class and optional file context.
type Error struct {
	Class Class
	File  string
	Err   error
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.File, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given class.
func New(class Class, err error) *Error {
	return &Error{Class: class, Err: err}
}

// NewFile builds a per-file Error tied to a path.
func NewFile(class Class, file string, err error) *Error {
	return &Error{Class: class, File: file, Err: err}
}

// Config wraps err as a configuration error.
func Config(err error) *Error { return New(ClassConfig, err) }

// Internal wraps err as an internal invariant violation.
func Internal(err error) *Error { return New(ClassInternal, err) }

// Timeout wraps err as a timeout diagnostic.
func Timeout(err error) *Error { return New(ClassTimeout, err) }

// PerQuery wraps err as a per-query diagnostic.
func PerQuery(err error) *Error { return New(ClassPerQuery, err) }

// PerFile wraps err as a per-file diagnostic tied to path.
func PerFile(path string, err error) *Error { return NewFile(ClassPerFile, path, err) }

// ClassOf reports the Class of err, or ClassInternal if err is not an *Error.
func ClassOf(err error) Class {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Class
	}
	return ClassInternal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
