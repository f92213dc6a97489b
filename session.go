package blockproxy

import (
	"log/slog"

	"blockproxy/transport"
)

// Session is the C6 protocol engine: one request at a time, over one
// transport, against one logical image. Mirrors the teacher's
// top-level dispatch-by-magic loop (CheckFmt followed by a switch)
// generalized from "what kind of boot image is this" to "what kind of
// request is this".
type Session struct {
	Transport transport.Transport
	IO        *LogicalIO
	Geometry  ImageGeometry
	Log       *slog.Logger

	buf []byte
}

const initialBufferSize = 64 * 1024

// NewSession wires a transport to a logical image and geometry. A
// nil logger falls back to slog.Default() so callers in tests don't
// need to thread one through.
func NewSession(t transport.Transport, io *LogicalIO, geom ImageGeometry, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{Transport: t, IO: io, Geometry: geom, Log: log, buf: make([]byte, initialBufferSize)}
}

// Serve runs the request loop until the transport reports closure or
// an unrecoverable transport error occurs (§4.6, §5: "one request at a
// time, no pipelining"). A clean close is reported as nil.
func (s *Session) Serve() error {
	for {
		code, err := s.readCode()
		if err == transport.ErrTransportClosed {
			return nil
		}
		if err != nil {
			return err
		}

		switch RequestCode(code) {
		case CodeInfo:
			err = s.handleInfo()
		case CodeRead:
			err = s.handleRead()
		case CodeWrite:
			err = s.handleWrite()
		default:
			s.Log.Warn("unknown request code", "code", code)
			err = s.handleUnknown()
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) readCode() (uint64, error) {
	var raw [8]byte
	if err := s.Transport.Read(raw[:]); err != nil {
		return 0, err
	}
	var code uint64
	if err := decodeLE(raw[:], &code); err != nil {
		return 0, NewError(BadFormat, err)
	}
	return code, nil
}

func (s *Session) handleInfo() error {
	resp := InfoResponse{
		FileSize:     s.Geometry.FileSize,
		ReqAlignment: s.Geometry.ReqAlignment,
		Flags:        uint64(s.Geometry.Flags),
	}
	if err := s.Transport.Write(encodeLE(resp)); err != nil {
		return err
	}
	return s.Transport.Flush()
}

func (s *Session) handleRead() error {
	var raw [16]byte
	if err := s.Transport.Read(raw[:]); err != nil {
		return err
	}
	var req DataRequest
	if err := decodeLE(raw[:], &req); err != nil {
		return NewError(BadFormat, err)
	}

	if err := s.ensureBuffer(int(req.Length)); err != nil {
		return s.respondError(errnoENODEV)
	}

	working := s.buf[:req.Length]
	for i := range working {
		working[i] = 0
	}
	n, err := s.IO.Read(working, req.Offset)
	if err != nil {
		s.Log.Error("read failed", "offset", req.Offset, "length", req.Length, "err", errnoSuffix(err))
		return s.respondError(uint64(errnoOf(err)))
	}

	resp := DataResponse{Errno: 0, Length: uint64(n)}
	if err := s.Transport.Write(encodeLE(resp)); err != nil {
		return err
	}
	if err := s.Transport.Write(s.buf[:n]); err != nil {
		return err
	}
	return s.Transport.Flush()
}

func (s *Session) handleWrite() error {
	var raw [16]byte
	if err := s.Transport.Read(raw[:]); err != nil {
		return err
	}
	var req DataRequest
	if err := decodeLE(raw[:], &req); err != nil {
		return NewError(BadFormat, err)
	}

	if s.Geometry.Flags.ReadOnly() {
		// Drain the payload so the stream stays framed even though
		// the write is rejected (§4.6, §7).
		if err := s.drain(int(req.Length)); err != nil {
			return err
		}
		return s.respondError(errnoEBADF)
	}

	if err := s.ensureBuffer(int(req.Length)); err != nil {
		return s.respondError(errnoENODEV)
	}
	if err := s.Transport.Read(s.buf[:req.Length]); err != nil {
		return err
	}

	n, err := s.IO.Write(s.buf[:req.Length], req.Offset)
	if err != nil {
		s.Log.Error("write failed", "offset", req.Offset, "length", req.Length, "err", errnoSuffix(err))
		return s.respondError(uint64(errnoOf(err)))
	}

	resp := DataResponse{Errno: 0, Length: uint64(n)}
	if err := s.Transport.Write(encodeLE(resp)); err != nil {
		return err
	}
	return s.Transport.Flush()
}

// handleUnknown answers an unrecognized request code with a bare
// 8-byte ENODEV value (§4.6, §7, §8 scenario 6) and keeps the session
// alive — unlike handleRead/handleWrite errors, this is not a
// DataResponse{Errno,Length} record, just the raw errno.
func (s *Session) handleUnknown() error {
	if err := s.Transport.Write(encodeLE(uint64(errnoENODEV))); err != nil {
		return err
	}
	return s.Transport.Flush()
}

func (s *Session) respondError(errno uint64) error {
	resp := DataResponse{Errno: errno, Length: 0}
	if err := s.Transport.Write(encodeLE(resp)); err != nil {
		return err
	}
	return s.Transport.Flush()
}

// drain discards n bytes the client already queued to send, so a
// rejected write doesn't desynchronize the following request header.
func (s *Session) drain(n int) error {
	if err := s.ensureBuffer(n); err != nil {
		return err
	}
	return s.Transport.Read(s.buf[:n])
}

// ensureBuffer grows the session's scratch buffer (and renegotiates
// the transport's own buffer via Grow) to hold n bytes, per the
// buffer-grow protocol (§4.5, §9). The new size is rounded up to
// req_alignment so a request landing just past the old size doesn't
// immediately trigger another grow on the next slightly larger one.
func (s *Session) ensureBuffer(n int) error {
	if n <= len(s.buf) {
		return nil
	}
	target := n
	if align := s.Geometry.ReqAlignment; align > 1 {
		target = int(alignTo(uint64(n), align))
	}
	if err := s.Transport.Grow(target); err != nil {
		return err
	}
	s.buf = make([]byte, target)
	return nil
}
