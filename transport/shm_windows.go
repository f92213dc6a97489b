//go:build windows

package transport

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// namespacePrefix puts shared objects in the Global namespace so a
// service-context server is reachable from a client running in a
// user session (§4.5).
func namespacePrefix() string { return "Global\\" }

// acquireServerMutex enforces the single-instance rule (§4.5, §7)
// using a named mutex: a second server for the same device fails to
// start rather than silently racing the first.
func acquireServerMutex(name string) (func() error, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateMutex(nil, false, namePtr)
	if err == windows.ERROR_ALREADY_EXISTS {
		return nil, fmt.Errorf("shm: server mutex %q already held", name)
	}
	if h == 0 {
		return nil, err
	}
	return func() error { return windows.CloseHandle(h) }, nil
}

// createSharedRegion backs the region with the system paging file via
// CreateFileMapping(INVALID_HANDLE_VALUE, ...), then maps it, matching
// §4.5's "anonymous named mapping".
func createSharedRegion(name string, size int) (mappedRegion, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return mappedRegion{}, err
	}
	h, err := windows.CreateFileMapping(
		windows.InvalidHandle,
		nil,
		windows.PAGE_READWRITE,
		0,
		uint32(size),
		namePtr,
	)
	if err != nil {
		return mappedRegion{}, err
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		return mappedRegion{}, err
	}

	bytes := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	unmap := func() error { return windows.UnmapViewOfFile(addr) }
	return mappedRegion{bytes: bytes, unmap: unmap}, nil
}

// winShmSync pairs two named auto-reset events for the request/response
// handshake described in §4.5.
type winShmSync struct {
	request  windows.Handle
	response windows.Handle
}

func newShmSync(requestName, responseName string) (shmSync, error) {
	req, err := createEvent(requestName)
	if err != nil {
		return nil, err
	}
	resp, err := createEvent(responseName)
	if err != nil {
		windows.CloseHandle(req)
		return nil, err
	}
	return &winShmSync{request: req, response: resp}, nil
}

func createEvent(name string) (windows.Handle, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	return windows.CreateEvent(nil, 0, 0, namePtr)
}

func (w *winShmSync) SignalResponse() error {
	return windows.SetEvent(w.response)
}

func (w *winShmSync) WaitRequest() error {
	_, err := windows.WaitForSingleObject(w.request, windows.INFINITE)
	return err
}

func (w *winShmSync) Close() error {
	err1 := windows.CloseHandle(w.request)
	err2 := windows.CloseHandle(w.response)
	if err1 != nil {
		return err1
	}
	return err2
}
