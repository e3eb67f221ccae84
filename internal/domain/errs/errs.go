// Package errs defines the error kinds shared by the query pipeline.
//
// Every failure that can end a chat turn carries exactly one kind so callers
// can classify it with errors.Is and turn it into an error envelope.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds.
var (
	// ErrParse marks parser output that is malformed or fails schema validation.
	ErrParse = errors.New("parse error")
	// ErrNoData marks a valid query that matched no usable rows.
	ErrNoData = errors.New("no data")
	// ErrUnsupportedQuery marks a query_type the interpreter does not know.
	ErrUnsupportedQuery = errors.New("unsupported query")
	// ErrUpstream marks a failed call to the parsing service.
	ErrUpstream = errors.New("upstream failure")
	// ErrFallback marks a failed code-execution fallback.
	ErrFallback = errors.New("fallback failed")
)

// Error is an operation-tagged error with a kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind tags err with op and kind.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Newf builds a kinded error from a formatted message.
func Newf(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Message returns the human-readable part of err without the op prefix.
// It is what ends up in an error envelope's answer.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Err != nil {
			return Message(e.Err)
		}
		return e.Kind.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// KindOf reports the first known kind carried by err, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrParse, ErrNoData, ErrUnsupportedQuery, ErrUpstream, ErrFallback} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName returns a short label for metrics and logs.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrParse:
		return "parse"
	case ErrNoData:
		return "no_data"
	case ErrUnsupportedQuery:
		return "unsupported_query"
	case ErrUpstream:
		return "upstream"
	case ErrFallback:
		return "fallback"
	default:
		return "unknown"
	}
}
