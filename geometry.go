package blockproxy

// Flags is the INFO-response flag bitset (§3). Only ReadOnly is
// observable in the core; other bits are reserved for parity with the
// wire layout but never set by this implementation.
type Flags uint64

const (
	// FlagReadOnly marks the image as write-rejecting at C6.
	FlagReadOnly Flags = 1 << 0
)

func (f Flags) ReadOnly() bool { return f&FlagReadOnly != 0 }

// ImageGeometry is the size/offset/alignment state resolved at startup
// and reported in the INFO response (§3, §4.6).
type ImageGeometry struct {
	// PhysicalSize is the total addressable size of the backing store.
	PhysicalSize uint64
	// CurrentSize is the logical size of the image: equal to
	// PhysicalSize unless VHD mode is active, in which case it is the
	// VHD's decoded virtual size.
	CurrentSize uint64
	// ImageOffset is the byte offset within the backing store at which
	// the logical image begins (nonzero when a partition is selected).
	ImageOffset uint64
	// FileSize is the number of bytes exposed to the client, starting
	// at ImageOffset. Invariant: ImageOffset+FileSize <= CurrentSize.
	FileSize uint64
	// ReqAlignment is the minimum alignment the client must honor.
	ReqAlignment uint64
	Flags        Flags
}

// Validate checks the geometry invariant from spec.md §3.
func (g ImageGeometry) Validate() error {
	if g.ImageOffset+g.FileSize > g.CurrentSize {
		return NewError(BadFormat, errRangeExceedsImage)
	}
	if g.ReqAlignment == 0 {
		return NewError(BadFormat, errZeroAlignment)
	}
	return nil
}

var (
	errRangeExceedsImage = simpleErr("image_offset + file_size exceeds current_size")
	errZeroAlignment     = simpleErr("req_alignment must be >= 1")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
