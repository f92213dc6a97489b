//go:build !windows

package transport

import (
	"os"
	"path/filepath"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// namespacePrefix: no OS-level namespace concept outside Windows, so
// named objects just become paths under a fixed well-known directory.
func namespacePrefix() string { return "" }

func shmDir() string {
	return filepath.Join(os.TempDir(), "blockproxyd-shm")
}

// acquireServerMutex emulates the named-mutex single-instance check
// with an exclusively-locked regular file, the same primitive
// singleInstanceGuard uses in the root package (§4.5, §7).
func acquireServerMutex(name string) (func() error, error) {
	if err := os.MkdirAll(shmDir(), 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(shmDir(), name+".lock")
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		return nil, errAlreadyRunningShm
	}
	return func() error {
		unix.Flock(fd, unix.LOCK_UN)
		return unix.Close(fd)
	}, nil
}

type simpleErrShm string

func (e simpleErrShm) Error() string { return string(e) }

const errAlreadyRunningShm = simpleErrShm("shm: server already running for this device")

// createSharedRegion backs the named region with a sparse file under
// shmDir so unrelated processes addressing the same device name map
// the same memory, the portable equivalent of Windows' page-file-
// backed named section.
func createSharedRegion(name string, size int) (mappedRegion, error) {
	if err := os.MkdirAll(shmDir(), 0o755); err != nil {
		return mappedRegion{}, err
	}
	path := filepath.Join(shmDir(), name+".map")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return mappedRegion{}, err
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return mappedRegion{}, err
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return mappedRegion{}, err
	}
	return mappedRegion{bytes: []byte(m), unmap: func() error { return m.Unmap() }}, nil
}

// fifoShmSync pairs two named FIFOs as the portable stand-in for a
// named event pair: a single byte written to one side wakes a reader
// blocked on the other (§4.5).
type fifoShmSync struct {
	requestPath  string
	responsePath string
	request      *os.File
	response     *os.File
}

func newShmSync(requestName, responseName string) (shmSync, error) {
	if err := os.MkdirAll(shmDir(), 0o755); err != nil {
		return nil, err
	}
	reqPath := filepath.Join(shmDir(), requestName+".fifo")
	respPath := filepath.Join(shmDir(), responseName+".fifo")
	for _, p := range []string{reqPath, respPath} {
		if err := unix.Mkfifo(p, 0o644); err != nil && !os.IsExist(err) {
			return nil, err
		}
	}
	return &fifoShmSync{requestPath: reqPath, responsePath: respPath}, nil
}

func (f *fifoShmSync) SignalResponse() error {
	out, err := os.OpenFile(f.responsePath, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = out.Write([]byte{1})
	return err
}

func (f *fifoShmSync) WaitRequest() error {
	in, err := os.OpenFile(f.requestPath, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer in.Close()
	buf := make([]byte, 1)
	_, err = in.Read(buf)
	return err
}

func (f *fifoShmSync) Close() error {
	var firstErr error
	if f.request != nil {
		firstErr = f.request.Close()
	}
	if f.response != nil {
		if err := f.response.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
