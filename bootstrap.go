package blockproxy

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"blockproxy/transport"
	"blockproxy/vhd"
)

// Config is the fully-resolved set of choices C7 bootstrap derives
// from the command line before C6 can start serving (§4.7).
type Config struct {
	BackingPath  string
	ReadOnly     bool
	Partition    int // 0 means "whole image"
	ImageOffset  uint64
	NoVHD        bool
	PluginLib    string
	PluginEntry  string
	Comm         string // "-", "tcp:<port>", "shm:<name>" or "drv:<path>"; OpenTransport rejects any other form, including a bare port number or a device path
	SingleLockFn func(string) (func() error, error)
}

// ParseSizeSuffix parses a size literal with an optional case-sensitive
// suffix (§4.7, Open Question resolved in DESIGN.md): uppercase
// K/M/G/T means the binary (1024-based) multiplier, lowercase k/m/g/t
// means the decimal (1000-based) one, and B or b means plain bytes,
// matching ImDisk's own command-line convention that this proxy is
// modeled on.
func ParseSizeSuffix(s string) (uint64, error) {
	if s == "" {
		return 0, NewError(BadFormat, errEmptySize)
	}
	suffix := s[len(s)-1]
	mult := uint64(1)
	numPart := s
	hasSuffix := true
	switch suffix {
	case 'B', 'b':
		mult = 1
	case 'K':
		mult = 1024
	case 'M':
		mult = 1024 * 1024
	case 'G':
		mult = 1024 * 1024 * 1024
	case 'T':
		mult = 1024 * 1024 * 1024 * 1024
	case 'k':
		mult = 1000
	case 'm':
		mult = 1000 * 1000
	case 'g':
		mult = 1000 * 1000 * 1000
	case 't':
		mult = 1000 * 1000 * 1000 * 1000
	default:
		hasSuffix = false
	}
	if hasSuffix {
		numPart = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(numPart, 10, 64)
	if err != nil {
		return 0, NewError(BadFormat, err)
	}
	return n * mult, nil
}

// ResolvePhysicalSize determines physical_size (§4.7): an explicit
// value always wins; otherwise the backing handle's own Size() is
// used when known. No OS volume or device size query is made: when
// neither source gives a size, the result is an error, so block and
// character devices need an explicit size.
func ResolvePhysicalSize(explicit uint64, bh BackingHandle, path string) (uint64, error) {
	if explicit != 0 {
		return explicit, nil
	}
	if sz, ok := bh.Size(); ok {
		return sz, nil
	}
	// Neither an explicit size nor the backing handle's own Size() was
	// usable; classifyBackingPath still runs so a Stat failure on path
	// surfaces as the actual cause rather than the generic message below.
	if _, _, _, err := classifyBackingPath(path); err != nil {
		return 0, err
	}
	return 0, NewError(BadFormat, errCannotResolveSize)
}

// AcquireSingleInstance enforces the single-instance guard for the
// file-backed/stdio/TCP server paths (§4.5): only one blockproxyd may
// serve a given backing path at a time. cfg.SingleLockFn lets callers
// (tests) supply a stand-in; production callers leave it nil and get
// the platform's singleInstanceGuard (devinfo_unix.go/devinfo_windows.go).
func AcquireSingleInstance(cfg Config) (func() error, error) {
	lockFn := cfg.SingleLockFn
	if lockFn == nil {
		lockFn = singleInstanceGuard
	}
	return lockFn(singleInstanceLockName(cfg.BackingPath))
}

// singleInstanceLockName turns an arbitrary backing path into a name
// safe to use both as a bare unix lock-file name and as a windows
// named-mutex name (neither tolerates path separators).
func singleInstanceLockName(backingPath string) string {
	var b strings.Builder
	b.WriteString("blockproxyd-")
	for _, r := range backingPath {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// BuildGeometry resolves C7's remaining steps once the backing store
// and physical_size are known: optional VHD detection, optional
// partition selection, and the image_offset-only-when-zero rule (§4.7,
// §9 Open Question: a nonzero partition-derived offset replaces any
// explicit image_offset from the command line; the explicit value is
// used only when partition resolution yields offset zero).
func BuildGeometry(cfg Config, bh BackingHandle, physicalSize uint64) (ImageGeometry, *vhd.Translator, error) {
	geom := ImageGeometry{
		PhysicalSize: physicalSize,
		CurrentSize:  physicalSize,
		ImageOffset:  cfg.ImageOffset,
		FileSize:     physicalSize,
		ReqAlignment: sectorSize,
	}
	if cfg.ReadOnly {
		geom.Flags |= FlagReadOnly
	}

	if cfg.Partition > 0 {
		off, sz, err := ResolvePartition(bh, cfg.Partition)
		if err != nil {
			return ImageGeometry{}, nil, err
		}
		if off != 0 {
			geom.ImageOffset = off
		}
		geom.FileSize = sz
		geom.CurrentSize = physicalSize
	}

	var translator *vhd.Translator
	if !cfg.NoVHD {
		tr, ok, err := vhd.Detect(backingHandleAdapter{bh}, geom.FileSize)
		if err != nil {
			return ImageGeometry{}, nil, err
		}
		if ok {
			translator = tr
			geom.CurrentSize = tr.CurrentSize()
			geom.FileSize = tr.CurrentSize()
		}
	}

	if err := geom.Validate(); err != nil {
		return ImageGeometry{}, nil, err
	}
	return geom, translator, nil
}

// OpenTransport dispatches cfg.Comm to the concrete transport
// constructor it names (§4.7, §6): "-" for stdio, "tcp:<port>" for the
// socket listener, "shm:<name>" for the shared-memory transport,
// "drv:<path>" for the kernel-driver transport.
func OpenTransport(comm string) (transport.Transport, error) {
	switch {
	case comm == "-":
		return transport.Stdio(os.Stdin, os.Stdout), nil
	case strings.HasPrefix(comm, "tcp:"):
		return transport.ListenOnce(strings.TrimPrefix(comm, "tcp:"))
	case strings.HasPrefix(comm, "shm:"):
		return transport.NewSharedMem(strings.TrimPrefix(comm, "shm:"), initialBufferSize)
	case strings.HasPrefix(comm, "drv:"):
		return transport.NewKernelDriver(strings.TrimPrefix(comm, "drv:"))
	default:
		return nil, NewError(BadFormat, fmt.Errorf("%w: %q", errUnknownCommSpec, comm))
	}
}

var (
	errEmptySize         = simpleErr("empty size literal")
	errCannotResolveSize = simpleErr("cannot resolve physical_size: pass an explicit size")
	errUnknownCommSpec   = simpleErr("unrecognized comm endpoint spec")
)
