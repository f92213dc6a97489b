//go:build linux

package blockproxy

import "golang.org/x/sys/unix"

// openDirectFlags requests O_DIRECT on Linux, where it is honored.
// Other unix variants get 0 from devinfo_unix_bsd.go: per spec.md
// §4.1 implementers "must tolerate systems where these flags are
// silent no-ops", and on those platforms O_DIRECT isn't even a
// defined open(2) flag, so the honest equivalent is not requesting it.
func openDirectFlags() int {
	return unix.O_DIRECT
}
