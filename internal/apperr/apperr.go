// ABOUTME: Typed application errors shared by every service layer
// ABOUTME: Each error carries a stable Kind plus a human-readable message

package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error so the HTTP layer can map it to a status code.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindBadRequest   Kind = "bad_request"
	KindInternal     Kind = "internal"
)

// Error is the error type returned by services.
type Error struct {
	Kind    Kind
	Message string
	Fields  FieldErrors // validation failures, only set for KindBadRequest
	Err     error       // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, so errors.Is(err, apperr.ErrForbidden) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind sentinels for errors.Is comparisons.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrBadRequest   = &Error{Kind: KindBadRequest}
	ErrInternal     = &Error{Kind: KindInternal}
)

// E builds a new error of the given kind.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a new error of the given kind that keeps cause in its chain.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

func NotFound(format string, args ...any) *Error     { return E(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error     { return E(KindConflict, format, args...) }
func Forbidden(format string, args ...any) *Error    { return E(KindForbidden, format, args...) }
func Unauthorized(format string, args ...any) *Error { return E(KindUnauthorized, format, args...) }
func BadRequest(format string, args ...any) *Error   { return E(KindBadRequest, format, args...) }
func Internal(format string, args ...any) *Error     { return E(KindInternal, format, args...) }

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal
// for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// FieldErrors maps an input field to what is wrong with it.
type FieldErrors map[string]string

// Add records a problem for field, keeping the first one reported.
func (f FieldErrors) Add(field, problem string) {
	if _, ok := f[field]; !ok {
		f[field] = problem
	}
}

// Err returns nil when there are no field errors, otherwise a BadRequest error
// listing them.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{Kind: KindBadRequest, Message: "validation failed: " + f.String(), Fields: f}
}

func (f FieldErrors) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+f[k])
	}
	return strings.Join(parts, "; ")
}
