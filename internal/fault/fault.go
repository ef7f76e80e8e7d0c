// Package fault defines the error taxonomy shared by the bridge and the
// numeric codes used when errors are rendered as XML-RPC faults.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindRemote
	KindNotSupported
	KindMethodNotFound
)

// Stable fault codes. Editors key retry and error dialogs off these, so they never change.
const (
	CodeValidation     = 400
	CodeAuth           = 403
	CodeNotFound       = 404
	CodeInternal       = 500
	CodeNotSupported   = 501
	CodeRemote         = 502
	CodeMethodNotFound = -32601
	CodeParse          = -32700
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindRemote:
		return "remote"
	case KindNotSupported:
		return "not_supported"
	case KindMethodNotFound:
		return "method_not_found"
	default:
		return "unknown"
	}
}

// Code returns the fault code for the kind.
func (k Kind) Code() int {
	switch k {
	case KindValidation:
		return CodeValidation
	case KindAuth:
		return CodeAuth
	case KindNotFound:
		return CodeNotFound
	case KindRemote:
		return CodeRemote
	case KindNotSupported:
		return CodeNotSupported
	case KindMethodNotFound:
		return CodeMethodNotFound
	default:
		return CodeInternal
	}
}

// Error is a classified error. Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, fault.ErrAuth) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrAuth           = &Error{Kind: KindAuth}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrRemote         = &Error{Kind: KindRemote}
	ErrNotSupported   = &Error{Kind: KindNotSupported}
	ErrMethodNotFound = &Error{Kind: KindMethodNotFound}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

func Auth(format string, args ...any) *Error {
	return newf(KindAuth, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func NotSupported(format string, args ...any) *Error {
	return newf(KindNotSupported, format, args...)
}

func MethodNotFound(method string) *Error {
	return newf(KindMethodNotFound, "Method %s not implemented", method)
}

// Remote wraps a failure reported by (or while reaching) the remote store.
func Remote(err error, format string, args ...any) *Error {
	e := newf(KindRemote, format, args...)
	e.Err = err
	return e
}

// Wrap attaches a cause to a classified error without changing its kind.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	e := newf(kind, format, args...)
	e.Err = err
	return e
}

// KindOf reports the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// CodeOf returns the fault code for err; unclassified errors map to CodeInternal.
func CodeOf(err error) int {
	return KindOf(err).Code()
}
