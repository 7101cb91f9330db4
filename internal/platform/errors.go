package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a backend failure once, at the adapter boundary.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "other"
	}
}

// NoRowsCode is the code reported when a single-row read matched nothing.
const NoRowsCode = "PGRST116"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrBucketExists = errors.New("the resource already exists")
)

// Error is a classified backend failure. Message carries the upstream text.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error.
func NewError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound is the zero-rows result of a single-row read.
func NotFound(table string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    NoRowsCode,
		Message: fmt.Sprintf("JSON object requested, multiple (or no) rows returned from %s", table),
	}
}

// KindOf reports the classification of err, KindOther for unclassified errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

func IsNotFound(err error) bool     { return err != nil && KindOf(err) == KindNotFound }
func IsConflict(err error) bool     { return err != nil && KindOf(err) == KindConflict }
func IsForbidden(err error) bool    { return err != nil && KindOf(err) == KindForbidden }
func IsUnauthorized(err error) bool { return err != nil && KindOf(err) == KindUnauthorized }

// IsBucketExists matches both the sentinel and upstream "already exists" messages.
func IsBucketExists(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBucketExists) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
