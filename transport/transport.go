// Package transport implements the C5 transport abstraction: three
// concrete transports — stream socket, local shared-memory ring with
// paired wake events, and a kernel-driver ioctl exchange — presented
// behind one uniform read/write/flush contract (§4.5).
package transport

import "errors"

// Transport is the uniform contract every concrete transport satisfies
// (§4.5). DESIGN NOTES §9: "replace the conditional-on-global-mode
// branch with a sum type or interface abstraction".
type Transport interface {
	// Read fills buf completely or reports an error/EOF; partial
	// reads are retried internally per spec.md §4.5's "full-length
	// loops" requirement.
	Read(buf []byte) error
	Write(buf []byte) error
	Flush() error
	// Grow is the buffer-grow renegotiation hook (§4.5 kernel-driver
	// buffer grow protocol, DESIGN NOTES §9 "Buffer-grow is a method
	// on the transport"). Implementations that don't need to react to
	// a larger buffer_size (stream) return nil.
	Grow(newSize int) error
	Close() error
}

// ErrTransportClosed is returned by Read/Write once a transport can no
// longer carry requests (peer disconnected between requests, §5).
var ErrTransportClosed = errors.New("transport: closed")

// ErrUnsupportedTransport is returned by the non-windows stub of the
// kernel-driver transport (kernel_other.go). The shared-memory
// transport has no stub: shm_other.go emulates it outside windows.
var ErrUnsupportedTransport = errors.New("transport: not supported on this platform")

// ErrInsufficientBuffer is returned by the windows kernel-driver
// transport's Read when the receive ioctl delivers fewer bytes than
// requested (§4.5). Nothing reacts to it with a buffer grow and retry:
// the session loop ends with it like any other transport error.
var ErrInsufficientBuffer = errors.New("transport: client request exceeds current buffer")
