// Package compressedimage implements a backing provider (§6.1 plugin
// ABI) over a compressed disk image: on open the whole image is
// decompressed once to a scratch file, which then serves every
// subsequent read/write exactly like an ordinary file backing.
package compressedimage

import "bytes"

// Codec identifies a compression format by magic bytes, the same
// detection shape as the teacher's format_t/CheckFmt pair in
// format.go, trimmed to the compression-only subset: boot-image and
// kernel magics (CHROMEOS, AOSP, DTB, MTK, ...) have no meaning for an
// arbitrary backing image.
type Codec int

const (
	Unknown Codec = iota
	Gzip
	Bzip2
	XZ
	LZMA
	LZ4
	Brotli
)

const (
	gzip1Magic  = "\x1f\x8b"
	gzip2Magic  = "\x1f\x9e"
	bzip2Magic  = "BZh"
	xzMagic     = "\xfd7zXZ"
	lz4LegMagic = "\x02\x21\x4c\x18"
	lz41Magic   = "\x03\x21\x4c\x18"
	lz42Magic   = "\x04\x22\x4d\x18"
	brotliMagic = "\xce\xb2\xcf\x81"
)

func checkedMatch(buf []byte, magic string) bool {
	return len(buf) >= len(magic) && bytes.Equal(buf[:len(magic)], []byte(magic))
}

// Detect inspects the first bytes of a candidate image the way
// CheckFmt does, returning Unknown for anything not in the codec set
// this provider understands (a plain raw or VHD image falls through
// to Unknown and is rejected by Open).
func Detect(buf []byte) Codec {
	switch {
	case checkedMatch(buf, gzip1Magic), checkedMatch(buf, gzip2Magic):
		return Gzip
	case checkedMatch(buf, xzMagic):
		return XZ
	case len(buf) >= 13 && bytes.Equal(buf[:3], []byte("\x5d\x00\x00")) && (buf[12] == 0xff || buf[12] == 0x00):
		return LZMA
	case checkedMatch(buf, bzip2Magic):
		return Bzip2
	case checkedMatch(buf, lz41Magic), checkedMatch(buf, lz42Magic), checkedMatch(buf, lz4LegMagic):
		return LZ4
	case checkedMatch(buf, brotliMagic):
		return Brotli
	default:
		return Unknown
	}
}

func (c Codec) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case XZ:
		return "xz"
	case LZMA:
		return "lzma"
	case LZ4:
		return "lz4"
	case Brotli:
		return "brotli"
	default:
		return "unknown"
	}
}
