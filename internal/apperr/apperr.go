// Package apperr defines the five failure categories exposed to API clients
// and the context chain recorded as an error travels up the call stack.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
	"strings"
)

// Kind is the externally visible failure category
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindInvalidInput
	KindNotFound
)

// String returns the kind name used in logs
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for the kind
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInvalidInput:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Description is the only text a client sees for non-validation failures
func (k Kind) Description() string {
	switch k {
	case KindBadRequest:
		return "Bad request"
	case KindUnauthorized:
		return "Unauthorized"
	case KindInvalidInput:
		return "Invalid input"
	case KindNotFound:
		return "Not found"
	default:
		return "Internal server error"
	}
}

// FieldError describes one problem with one input field
type FieldError struct {
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

// Fields maps a field name to its validation problems
type Fields map[string][]FieldError

// Add appends a problem for field
func (f Fields) Add(field, code, message string) Fields {
	f[field] = append(f[field], FieldError{Code: code, Message: message})
	return f
}

// Error is a categorized failure plus the context of the layer that produced or wrapped it
type Error struct {
	Kind   Kind
	Fields Fields
	Op     string
	Args   []any
	Origin string
	Err    error
}

func (e *Error) Error() string {
	var msg string
	if e.Err != nil {
		msg = e.Err.Error()
	} else {
		msg = e.Kind.Description()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Err: errors.New(message), Origin: caller(2)}
}

// BadRequest creates a malformed-request error
func BadRequest(message string) error {
	return New(KindBadRequest, message)
}

// Unauthorized creates an authentication failure
func Unauthorized(message string) error {
	return New(KindUnauthorized, message)
}

// NotFound creates a missing-resource error
func NotFound(message string) error {
	return New(KindNotFound, message)
}

// Internal creates an unexpected failure
func Internal(message string) error {
	return New(KindInternal, message)
}

// Invalid creates a validation failure for a single field
func Invalid(field, code, message string) *Error {
	return &Error{
		Kind:   KindInvalidInput,
		Fields: Fields{}.Add(field, code, message),
		Err:    fmt.Errorf("%s: %s", field, message),
		Origin: caller(2),
	}
}

// InvalidFields creates a validation failure covering several fields
func InvalidFields(fields Fields) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	return &Error{
		Kind:   KindInvalidInput,
		Fields: fields,
		Err:    fmt.Errorf("invalid fields: %s", strings.Join(names, ", ")),
		Origin: caller(2),
	}
}

// WithParam attaches a parameter to every field problem of e
func (e *Error) WithParam(key, value string) *Error {
	for name, list := range e.Fields {
		for i := range list {
			if list[i].Params == nil {
				list[i].Params = map[string]string{}
			}
			list[i].Params[key] = value
		}
		e.Fields[name] = list
	}
	return e
}

// Wrap records op and args around err, keeping the kind of err.
// Errors without a kind become Internal.
func Wrap(err error, op string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Fields: FieldsOf(err), Op: op, Args: args, Origin: caller(2), Err: err}
}

// WrapAs records op and args around err and forces kind
func WrapAs(kind Kind, err error, op string, args ...any) error {
	if err == nil {
		return nil
	}
	e := &Error{Kind: kind, Op: op, Args: args, Origin: caller(2), Err: err}
	if kind == KindInvalidInput {
		e.Fields = FieldsOf(err)
	}
	return e
}

// KindOf returns the category of err, Internal when err carries none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FieldsOf returns the field problems carried by err, if any
func FieldsOf(err error) Fields {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// Trace lists every layer of err from outermost to innermost, ending with the root cause
func Trace(err error) []string {
	var frames []string
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if e, ok := cur.(*Error); ok {
			frames = append(frames, e.frame())
			continue
		}
		if errors.Unwrap(cur) == nil {
			frames = append(frames, cur.Error())
		}
	}
	return frames
}

func (e *Error) frame() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if len(e.Args) > 0 {
		b.WriteString(" ")
		b.WriteString(formatArgs(e.Args))
	}
	if e.Origin != "" {
		b.WriteString(" at ")
		b.WriteString(e.Origin)
	}
	return b.String()
}

func formatArgs(args []any) string {
	parts := make([]string, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			parts = append(parts, fmt.Sprintf("%v=%v", args[i], args[i+1]))
		} else {
			parts = append(parts, fmt.Sprintf("%v", args[i]))
		}
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// caller reports the first frame at or above skip that lies outside this file
func caller(skip int) string {
	for {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			return ""
		}
		if base := filepath.Base(file); base != "apperr.go" {
			return fmt.Sprintf("%s:%d", base, line)
		}
		skip++
	}
}
