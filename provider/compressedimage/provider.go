package compressedimage

import (
	"errors"
	"io"
	"os"
)

// sniffLen mirrors the teacher's 4096-byte peek in Decompress before
// committing to a codec.
const sniffLen = 4096

// session is one open compressed backing image: the scratch file the
// image was spooled into, kept for the lifetime of the session and
// removed on close.
type session struct {
	scratch  *os.File
	readOnly bool
}

var errReadOnlySession = errors.New("compressedimage: session opened read-only")

// Open decompresses name into a scratch file and returns a token plus
// the read/write/close callbacks and reported size the §6.1 plugin
// ABI expects from a PluginOpenFunc. Writes always land on the
// spooled scratch copy, never back through the codec: there is no
// general-purpose streaming re-compressor here, matching the
// teacher's own Encoder.Write ("todo: not impl yet") — compression on
// write stays out of scope for this provider (see DESIGN.md).
func Open(name string, readOnly bool) (uintptr, ReadFunc, WriteFunc, CloseFunc, uint64, error) {
	src, err := os.Open(name)
	if err != nil {
		return allOnes, nil, nil, nil, 0, err
	}
	defer src.Close()

	peek := make([]byte, sniffLen)
	n, _ := src.Read(peek)
	codec := Detect(peek[:n])
	if codec == Unknown {
		return allOnes, nil, nil, nil, 0, errUnsupportedCodec
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return allOnes, nil, nil, nil, 0, err
	}

	scratch, err := os.CreateTemp("", "blockproxy-compressedimage-*.img")
	if err != nil {
		return allOnes, nil, nil, nil, 0, err
	}

	size, err := spool(codec, src, scratch)
	if err != nil {
		scratch.Close()
		os.Remove(scratch.Name())
		return allOnes, nil, nil, nil, 0, err
	}

	s := &session{scratch: scratch, readOnly: readOnly}
	token := registerSession(s)
	return token, readCallback, writeCallback, closeCallback, uint64(size), nil
}

const allOnes = ^uintptr(0)

type (
	ReadFunc  func(token uintptr, buf []byte, off int64) (int, error)
	WriteFunc func(token uintptr, buf []byte, off int64) (int, error)
	CloseFunc func(token uintptr) error
)

func readCallback(token uintptr, buf []byte, off int64) (int, error) {
	s, ok := lookupSession(token)
	if !ok {
		return 0, errUnknownToken
	}
	return s.scratch.ReadAt(buf, off)
}

func writeCallback(token uintptr, buf []byte, off int64) (int, error) {
	s, ok := lookupSession(token)
	if !ok {
		return 0, errUnknownToken
	}
	if s.readOnly {
		return 0, errReadOnlySession
	}
	return s.scratch.WriteAt(buf, off)
}

func closeCallback(token uintptr) error {
	s, ok := lookupSession(token)
	if !ok {
		return errUnknownToken
	}
	unregisterSession(token)
	path := s.scratch.Name()
	if err := s.scratch.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
