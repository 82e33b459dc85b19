package model

import "errors"

// Kind is a stable category for programmatic error handling.
//
// These categories are intended to remain stable across versions.
// Callers should branch on Kind/Code rather than matching error strings.
//
// NOTE: Error() strings are intentionally kept human-readable and may evolve.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	// KindValidation: bad or missing input. Recoverable by the operator
	// correcting the input; never retried automatically.
	KindValidation Kind = "Validation"
	// KindRender: bad template or background image. Recoverable by
	// re-authoring the template.
	KindRender Kind = "Render"
	// KindUpload: pinning service or transport failure. Carries the
	// service's own detail when available.
	KindUpload Kind = "Upload"
	// KindLedger: signature rejection, chain mismatch, or confirmation
	// ambiguity. Surfaced verbatim.
	KindLedger Kind = "Ledger"
	// KindNotFound: missing project or certificate in the local store.
	KindNotFound Kind = "NotFound"
	KindInternal Kind = "Internal"
)

// Error is the pipeline's structured error type.
//
// Code is a stable identifier (e.g. CERT-VAL-001, CERT-UP-002) that names
// the violated contract. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError returns a structured error with no cause.
func NewError(kind Kind, code, msg string) error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// WrapError returns a structured error wrapping cause.
func WrapError(kind Kind, code, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, code, msg)
	}
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// ErrCode returns the stable Code for a structured error, or "" if unknown.
func ErrCode(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
