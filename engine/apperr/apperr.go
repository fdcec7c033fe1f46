// Package apperr gives every sentinel error in this module a category
// callers can switch on without chaining errors.Is comparisons. Error
// kinds are fixed and small (capacity exceeded, not present, segment
// unavailable, ...), so each sentinel just carries a Kind rather than
// per-call-site context.
package apperr

import "errors"

// ErrorKind categorizes a sentinel error for dispatch without a long
// errors.Is chain.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	CapacityExceeded
	IndexOutOfRange
	AlreadyPresent
	NotPresent
	SegmentUnavailable
	IntrospectionTimeout
	PushTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case CapacityExceeded:
		return "capacity_exceeded"
	case IndexOutOfRange:
		return "index_out_of_range"
	case AlreadyPresent:
		return "already_present"
	case NotPresent:
		return "not_present"
	case SegmentUnavailable:
		return "segment_unavailable"
	case IntrospectionTimeout:
		return "introspection_timeout"
	case PushTimeout:
		return "push_timeout"
	default:
		return "unknown"
	}
}

// Error is a sentinel error carrying a Kind. Package-level sentinels
// (e.g. shmseg.ErrSegmentUnavailable) are *Error values; wrapping one
// with fmt.Errorf("...: %w", err) preserves both errors.Is against the
// sentinel and Kind extraction via As/Kind below.
type Error struct {
	kind ErrorKind
	msg  string
}

// New constructs a sentinel error of the given kind. Intended for
// package-level `var Err... = apperr.New(...)` declarations, one per
// taxonomy entry in spec §7.
func New(kind ErrorKind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind reports the error's category.
func (e *Error) Kind() ErrorKind { return e.kind }

// Is treats two *Error values as equal sentinels when they share a
// kind and message, so errors.Is(wrapped, SomePackageSentinel) matches
// even across a package boundary that redeclares an equivalent
// sentinel rather than importing this one directly.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.kind == e.kind && other.msg == e.msg
}

// KindOf walks err's Unwrap chain for the first *apperr.Error and
// returns its Kind, or (Unknown, false) if err carries none.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind(), true
	}
	return Unknown, false
}
