package compressedimage

import (
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"io"

	"github.com/dsnet/compress/brotli"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// errUnsupportedCodec mirrors the teacher's "not a supported
// compressed type" diagnostic in compress.go/Decompress.
var errUnsupportedCodec = errors.New("compressedimage: unrecognized or unsupported codec")

// newDecodeReader wires each codec to its ecosystem decoder, the same
// switch-on-format_t shape as the teacher's NewDecoder in compress.go,
// generalized from "boot image partition" inputs to arbitrary backing
// images.
func newDecodeReader(c Codec, r io.Reader) (io.Reader, error) {
	switch c {
	case Gzip:
		return gzip.NewReader(r)
	case XZ:
		return xz.NewReader(r)
	case LZMA:
		return lzma.NewReader(r)
	case Bzip2:
		return bzip2.NewReader(r), nil
	case LZ4:
		return lz4.NewReader(r), nil
	case Brotli:
		return brotli.NewReader(r, nil)
	default:
		return nil, errUnsupportedCodec
	}
}

// spool decompresses the whole of src into dst, matching §6.1's
// expand-once-on-open contract: once spooling finishes, the provider
// never touches the codec again for the lifetime of the session.
func spool(c Codec, src io.Reader, dst io.Writer) (int64, error) {
	r, err := newDecodeReader(c, src)
	if err != nil {
		return 0, err
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}
	return io.Copy(dst, r)
}
