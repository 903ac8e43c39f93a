package rule

import (
	"errors"
	"log/slog"
	"strings"
)

// Predefined error causes (sentinel values). Every failure returned by
// [Parse], [Validate], or [Evaluate] wraps exactly one of these and is
// always reachable from the caller through [InvalidArgument].
var (
	ErrParse           = NewError("parse error")
	ErrType            = NewError("type error")
	ErrArity           = NewError("wrong number of arguments")
	ErrUnknownFunction = NewError("unknown function")
	ErrDomain          = NewError("value out of domain")
	ErrMath            = NewError("math error")

	// InvalidArgument is the single public error kind returned by the
	// exported API. Every cause above Is-matches InvalidArgument, so
	// callers that only care "was the formula or env bad" can test
	// errors.Is(err, rule.InvalidArgument) without caring which of the
	// six causes produced it.
	InvalidArgument = NewError("invalid argument")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer.
type Error struct {
	msg   string
	err   error
	attrs []slog.Attr
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the same sentinel cause, or the public
// InvalidArgument umbrella every cause belongs to.
func (e *Error) Is(target error) bool {
	if target == InvalidArgument {
		return isCause(e)
	}

	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.msg == t.msg && e.msg != ""
}

// isCause reports whether err ultimately wraps one of the six causes.
func isCause(err error) bool {
	for _, cause := range []*Error{
		ErrParse, ErrType, ErrArity, ErrUnknownFunction, ErrDomain, ErrMath,
	} {
		if errors.Is(err, cause) {
			return true
		}
	}

	return false
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs,
	}
}

// With adds attributes to the error for structured logging, returning a
// new Error to preserve immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// asInvalidArgument folds any of the six causes into the single public
// InvalidArgument error, preserving the original as the wrapped cause.
func asInvalidArgument(err error) error {
	if err == nil {
		return nil
	}

	return InvalidArgument.Wrap(err)
}
