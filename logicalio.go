package blockproxy

import "blockproxy/vhd"

// LogicalIO is the C4 dispatcher: it applies the image base offset and
// routes to the VHD translator when active, or directly to the
// backing handle otherwise (§4.4).
type LogicalIO struct {
	Backing     BackingHandle
	ImageOffset uint64
	VHD         *vhd.Translator // nil when not in VHD mode
}

func (l *LogicalIO) Read(out []byte, offset uint64) (int, error) {
	base := l.ImageOffset + offset
	if l.VHD != nil {
		return l.VHD.Read(l.backingAdapter(), out, base)
	}
	return l.Backing.Pread(out, int64(base))
}

func (l *LogicalIO) Write(in []byte, offset uint64) (int, error) {
	base := l.ImageOffset + offset
	if l.VHD != nil {
		return l.VHD.Write(l.backingAdapter(), in, base)
	}
	return l.Backing.Pwrite(in, int64(base))
}

// backingAdapter exposes Backing through the vhd.Backing interface
// the translator depends on, keeping package vhd free of any
// dependency back on the root package (§9 DESIGN NOTES: "no globals;
// pass explicitly to read/write").
func (l *LogicalIO) backingAdapter() vhd.Backing {
	return backingHandleAdapter{l.Backing}
}

type backingHandleAdapter struct {
	h BackingHandle
}

func (a backingHandleAdapter) Pread(buf []byte, offset int64) (int, error) {
	return a.h.Pread(buf, offset)
}

func (a backingHandleAdapter) Pwrite(buf []byte, offset int64) (int, error) {
	return a.h.Pwrite(buf, offset)
}
