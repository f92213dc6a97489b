package blockproxy

import (
	"io"
	"os"
)

// BackingHandle is the C1 contract: positional read/write/close over
// either an open file descriptor or a plugin session token (plugin.go).
type BackingHandle interface {
	// Pread reads len(buf) bytes at offset, returning the number of
	// bytes actually transferred. A short read is not an error by
	// itself; callers decide whether that is acceptable.
	Pread(buf []byte, offset int64) (int, error)
	Pwrite(buf []byte, offset int64) (int, error)
	// Size reports the backing store's physical size, or (0, false) if
	// the variant cannot determine it directly (C7 then needs an
	// explicit size; it makes no OS volume query).
	Size() (uint64, bool)
	Close() error
}

// fileBacking is the file-backed BackingHandle variant (§4.1).
type fileBacking struct {
	f        *os.File
	readOnly bool
}

// OpenFileBacking opens path as the backing store. Implementers should
// request direct/unbuffered and force-sync semantics where available;
// openDirectFlags (platform-specific) returns 0 on platforms where
// those flags would be silent no-ops anyway, which keeps this code
// path identical everywhere.
func OpenFileBacking(path string, readOnly bool) (BackingHandle, error) {
	flag := os.O_RDONLY
	if !readOnly {
		flag = os.O_RDWR
	}
	flag |= openDirectFlags()

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, NewError(BackingIO, err)
	}
	return &fileBacking{f: f, readOnly: readOnly}, nil
}

func (b *fileBacking) Pread(buf []byte, offset int64) (int, error) {
	n, err := b.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return n, NewError(BackingIO, err)
	}
	return n, nil
}

func (b *fileBacking) Pwrite(buf []byte, offset int64) (int, error) {
	if b.readOnly {
		return 0, NewError(PolicyViolation, errWriteReadOnly)
	}
	n, err := b.f.WriteAt(buf, offset)
	if err != nil {
		return n, NewError(BackingIO, err)
	}
	return n, nil
}

func (b *fileBacking) Size() (uint64, bool) {
	info, err := b.f.Stat()
	if err != nil {
		return 0, false
	}
	if info.Mode()&os.ModeDevice != 0 {
		// Regular Stat().Size() is frequently zero for block/char
		// devices, so their size is reported as unknown; nothing in
		// this package queries the device for its real size.
		return 0, false
	}
	return uint64(info.Size()), true
}

func (b *fileBacking) Close() error {
	if b.f == nil {
		return nil
	}
	return b.f.Close()
}

var errWriteReadOnly = simpleErr("write rejected: backing handle is read-only")
