package transport

import (
	"io"
	"net"
)

// Stream is the socket transport (§4.5): a framed blocking stream over
// a single connection, a named local byte-stream, or the process's
// stdio handle ("-"). read/write perform full-length loops over the
// underlying syscalls, retrying short I/O until satisfied or
// EOF/error, matching spec.md's "full-length loops ... retrying short
// I/O" requirement.
type Stream struct {
	rw   io.ReadWriteCloser
	conn net.Conn // non-nil only for the TCP/listener variant; used for SetNoDelay
}

// NewStream wraps an already-established connection or pipe.
func NewStream(rw io.ReadWriteCloser) *Stream {
	s := &Stream{rw: rw}
	if c, ok := rw.(net.Conn); ok {
		s.conn = c
		if tc, ok := c.(*net.TCPConn); ok {
			// §4.5: "After accept, TCP_NODELAY is set."
			_ = tc.SetNoDelay(true)
		}
	}
	return s
}

// ListenOnce starts a TCP listener on port, accepts exactly one client
// (§4.5 "a listener that accepts exactly one client"), and returns a
// Stream wrapping that connection. The listener itself is closed right
// after accept: this server never fans out to a second client (§1
// Non-goals: no multi-client fan-out).
func ListenOnce(port string) (*Stream, error) {
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, err
	}
	defer ln.Close()

	conn, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	return NewStream(conn), nil
}

// Stdio wraps the process's standard input/output as the comm device
// selected by "-" (§4.5, §6).
func Stdio(in io.Reader, out io.Writer) *Stream {
	return &Stream{rw: stdioRWC{in, out}}
}

type stdioRWC struct {
	in  io.Reader
	out io.Writer
}

func (s stdioRWC) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdioRWC) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s stdioRWC) Close() error                { return nil }

func (s *Stream) Read(buf []byte) error {
	_, err := io.ReadFull(s.rw, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTransportClosed
	}
	return err
}

func (s *Stream) Write(buf []byte) error {
	n := 0
	for n < len(buf) {
		written, err := s.rw.Write(buf[n:])
		n += written
		if err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op for the socket transport (§4.5).
func (s *Stream) Flush() error { return nil }

// Grow is a no-op: the socket transport's buffer is an ordinary heap
// allocation managed by the session loop, not by the transport itself
// (§3 BufferPool, §9 DESIGN NOTES: "the socket variant reallocates the
// heap buffer").
func (s *Stream) Grow(int) error { return nil }

func (s *Stream) Close() error { return s.rw.Close() }
