//go:build !windows && !linux

package blockproxy

// openDirectFlags is a no-op outside Linux; see devinfo_linux.go.
func openDirectFlags() int {
	return 0
}
