package blockproxy

import (
	"errors"
	"syscall"
)

// errnoOf pulls a platform error number out of err, if any is present
// in its chain. syscall.Errno is defined on every Go platform, so this
// needs no build tags.
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}

// ENODEV-ish / EBADF-ish platform error numbers used to package
// protocol responses per spec.md §4.6/§7. These are the POSIX values;
// on windows the numeric values differ but the *meaning* (unknown
// device / bad file descriptor) is what the wire protocol cares about,
// and ImDisk's own proxy service reports the POSIX-flavored numbers
// from its libc runtime regardless of host OS, so this repo does the
// same for wire compatibility.
const (
	errnoEBADF  = 9
	errnoENODEV = 19
)
