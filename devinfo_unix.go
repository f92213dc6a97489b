//go:build !windows

package blockproxy

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// devKind classifies the backing path the way the teacher's
// stub/unix_stub.go classified cpio entry device numbers
// (Major/Minor/Mkdev/Stat), repurposed here to tell C7 whether the
// backing path is a regular file, a block device, or a character
// device before it decides how to resolve physical_size (§4.7).
type devKind int

const (
	devRegular devKind = iota
	devBlock
	devChar
)

func classifyBackingPath(path string) (devKind, uint32, uint32, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return devRegular, 0, 0, NewError(BackingIO, err)
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFBLK:
		return devBlock, unix.Major(uint64(st.Rdev)), unix.Minor(uint64(st.Rdev)), nil
	case unix.S_IFCHR:
		return devChar, unix.Major(uint64(st.Rdev)), unix.Minor(uint64(st.Rdev)), nil
	default:
		return devRegular, 0, 0, nil
	}
}

func singleInstanceLockDir() string {
	return filepath.Join(os.TempDir(), "blockproxyd-locks")
}

// singleInstanceGuard takes an advisory exclusive lock on a file named
// after lockName under singleInstanceLockDir, standing in for the
// shared-memory transport's named server mutex (§4.5: "fails startup
// if already held — single-instance guard"). lockName is expected to
// already be a bare, separator-free name (bootstrap.go's
// singleInstanceLockName produces one).
func singleInstanceGuard(lockName string) (func() error, error) {
	dir := singleInstanceLockDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewError(AllocFailure, err)
	}
	fd, err := unix.Open(filepath.Join(dir, lockName+".lock"), unix.O_CREAT|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, NewError(AllocFailure, err)
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		return nil, NewError(AllocFailure, errAlreadyRunning)
	}
	return func() error {
		unix.Flock(fd, unix.LOCK_UN)
		return unix.Close(fd)
	}, nil
}

var errAlreadyRunning = simpleErr("another instance already holds the server mutex")
