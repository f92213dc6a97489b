//go:build windows

package blockproxy

import (
	"golang.org/x/sys/windows"
)

// openDirectFlags: os.OpenFile has no direct-I/O knob on windows (that
// requires CreateFile's FILE_FLAG_NO_BUFFERING, which os.OpenFile does
// not expose); treated as the silent no-op spec.md §4.1 explicitly
// allows for.
func openDirectFlags() int {
	return 0
}

type devKind int

const (
	devRegular devKind = iota
	devBlock
	devChar
)

// classifyBackingPath has no Major/Minor/Mkdev concept on windows
// (those are the stub/windows_stub.go always-zero values in the
// teacher); a volume or \\.\PhysicalDriveN path is treated as a block
// device, everything else as a regular file.
func classifyBackingPath(path string) (devKind, uint32, uint32, error) {
	if len(path) >= 4 && path[:4] == `\\.\` {
		return devBlock, 0, 0, nil
	}
	return devRegular, 0, 0, nil
}

// singleInstanceGuard uses a named windows mutex, the same primitive
// spec.md §4.5 specifies for the shared-memory transport's
// single-instance guard, reused here for the plain file-backed path.
func singleInstanceGuard(name string) (func() error, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, NewError(AllocFailure, err)
	}
	h, err := windows.CreateMutex(nil, false, p)
	if err == windows.ERROR_ALREADY_EXISTS {
		windows.CloseHandle(h)
		return nil, NewError(AllocFailure, errAlreadyRunning)
	}
	if err != nil {
		return nil, NewError(AllocFailure, err)
	}
	return func() error {
		return windows.CloseHandle(h)
	}, nil
}

var errAlreadyRunning = simpleErr("another instance already holds the server mutex")
