package blockproxy

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure the way DESIGN NOTES §9 asks for,
// replacing the source's sentinel -1/errno convention.
type ErrorKind int

const (
	// ShortIO marks a transport or backing read/write that returned
	// fewer bytes than requested without an underlying error.
	ShortIO ErrorKind = iota
	// BackingIO marks a failed read/write against the backing store.
	BackingIO
	// BadFormat marks a structural decode failure (MBR, VHD footer/header).
	BadFormat
	// PolicyViolation marks a request rejected by policy (write to read-only).
	PolicyViolation
	// TransportClosed marks a transport that can no longer carry requests.
	TransportClosed
	// AllocFailure marks a resource acquisition failure (mapping, mutex, VHD block).
	AllocFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ShortIO:
		return "short-io"
	case BackingIO:
		return "backing-io"
	case BadFormat:
		return "bad-format"
	case PolicyViolation:
		return "policy-violation"
	case TransportClosed:
		return "transport-closed"
	case AllocFailure:
		return "alloc-failure"
	default:
		return "unknown"
	}
}

// Error is the Ok(bytes) | Err(ErrorKind, errno) result variant DESIGN
// NOTES §9 calls for. Errno carries the platform error number when one
// is available, for packaging into a protocol response (§4.6).
type Error struct {
	Kind  ErrorKind
	Errno int
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (errno=%d)", e.Kind, e.Err, e.Errno)
	}
	return fmt.Sprintf("%s (errno=%d)", e.Kind, e.Errno)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with kind and an errno looked up via errnoOf.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Errno: errnoOf(err), Err: err}
}

// KindOf extracts the ErrorKind from err, defaulting to BackingIO for
// unclassified errors the way the session loop needs a kind to package
// a response with.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return BackingIO
}

// ErrnoOf extracts the platform errno carried by err, or 0.
func ErrnoOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Errno
	}
	return 0
}
