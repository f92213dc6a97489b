package transport

import "unsafe"

// mappedRegion is what each platform's createSharedRegion hands back:
// the mapped bytes plus the teardown call. The unix implementation
// gets region straight from github.com/edsrzf/mmap-go (whose MMap type
// is itself a []byte); the windows implementation builds region with
// unsafe.Slice over a MapViewOfFile address, since mmap-go's own Map
// only knows how to map *os.File, not a named HANDLE.
type mappedRegion struct {
	bytes []byte
	unmap func() error
}

// shmHeaderSize is the fixed-size prefix carried ahead of the payload
// slot in the mapped region (§3 BufferPool: "a memory-mapped region
// prefixed by a transport header").
const shmHeaderSize = 64

// shmSync is the platform primitive pair backing the named request and
// response events plus the single-instance server mutex (§4.5).
// Implemented by shm_windows.go (real named kernel objects) and
// shm_other.go (portable emulation over flock + FIFOs), the same
// real-impl/stub split the teacher uses in stub/windows_stub.go vs
// stub/unix_stub.go, just inverted: these primitives are Windows-
// native in the system this proxy is modeled on, so the "native" side
// lives in the windows build and the portable fallback lives opposite it.
type shmSync interface {
	// SignalResponse wakes the client waiting for a response.
	SignalResponse() error
	// WaitRequest blocks until the client has posted a new request.
	WaitRequest() error
	Close() error
}

// SharedMem is the shared-memory transport (§4.5). A named mapping
// sized header+buffer_size is created alongside a server mutex and a
// request/response event pair.
type SharedMem struct {
	device      string
	region      mappedRegion
	bufferSize  int
	readCursor  int
	writeCursor int
	sync        shmSync
	unlockOnce  func() error
}

// namespacedName composes "{ns_prefix}{device}{suffix}" per §4.5.
func namespacedName(device, suffix string) string {
	return namespacePrefix() + device + suffix
}

// NewSharedMem creates the named mapping and auxiliary objects for
// device, sized to hold bufferSize bytes of payload behind the fixed
// header.
func NewSharedMem(device string, bufferSize int) (*SharedMem, error) {
	unlock, err := acquireServerMutex(namespacedName(device, "_Server"))
	if err != nil {
		return nil, err
	}

	region, err := createSharedRegion(namespacedName(device, ""), shmHeaderSize+bufferSize)
	if err != nil {
		unlock()
		return nil, err
	}

	sync, err := newShmSync(namespacedName(device, "_Request"), namespacedName(device, "_Response"))
	if err != nil {
		region.unmap()
		unlock()
		return nil, err
	}

	return &SharedMem{device: device, region: region, bufferSize: bufferSize, sync: sync, unlockOnce: unlock}, nil
}

// primary returns the mapped payload slot, i.e. BufferPool.primary
// when it is backed by this transport (§3).
func (s *SharedMem) primary() []byte {
	return s.region.bytes[shmHeaderSize:]
}

// samePrimary is the "pointer equality check against primary" §4.5
// describes as the zero-copy trigger: a caller buffer that already
// aliases the mapped payload slot is used in place instead of copied.
func samePrimary(buf, primary []byte) bool {
	if len(buf) == 0 || len(primary) == 0 {
		return false
	}
	return unsafe.Pointer(&buf[0]) == unsafe.Pointer(&primary[0])
}

func (s *SharedMem) Read(buf []byte) error {
	if samePrimary(buf, s.primary()) {
		s.readCursor += len(buf)
		return nil
	}
	src := s.primary()[s.readCursor : s.readCursor+len(buf)]
	copy(buf, src)
	s.readCursor += len(buf)
	return nil
}

func (s *SharedMem) Write(buf []byte) error {
	if samePrimary(buf, s.primary()) {
		s.writeCursor += len(buf)
		return nil
	}
	dst := s.primary()[s.writeCursor : s.writeCursor+len(buf)]
	copy(dst, buf)
	s.writeCursor += len(buf)
	return nil
}

// Flush implements §4.5: "resets both cursors, signals the response
// event, waits on the request event."
func (s *SharedMem) Flush() error {
	s.readCursor = 0
	s.writeCursor = 0
	if err := s.sync.SignalResponse(); err != nil {
		return err
	}
	return s.sync.WaitRequest()
}

// Grow re-maps the region to hold a larger buffer_size. The header
// itself never changes size (§9 DESIGN NOTES: "a no-op on the header
// but resizes the payload slice").
func (s *SharedMem) Grow(newSize int) error {
	if newSize <= s.bufferSize {
		return nil
	}
	if err := s.region.unmap(); err != nil {
		return err
	}
	region, err := createSharedRegion(namespacedName(s.device, ""), shmHeaderSize+newSize)
	if err != nil {
		return err
	}
	s.region = region
	s.bufferSize = newSize
	return nil
}

func (s *SharedMem) Close() error {
	err1 := s.region.unmap()
	err2 := s.sync.Close()
	err3 := s.unlockOnce()
	if err1 != nil {
		return err1
	}
	if err2 != nil {
		return err2
	}
	return err3
}
