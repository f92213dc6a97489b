package compressedimage

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Sessions are addressed by an opaque token rather than a Go pointer
// because the plugin ABI crosses into code the host process loaded
// via the stdlib plugin package (§6.1): the token is the only thing
// that needs to round-trip through that boundary.
var (
	sessionsMu sync.Mutex
	sessions   = map[uintptr]*session{}
	nextToken  uint64
)

var errUnknownToken = errors.New("compressedimage: unknown session token")

func registerSession(s *session) uintptr {
	token := uintptr(atomic.AddUint64(&nextToken, 1))
	sessionsMu.Lock()
	sessions[token] = s
	sessionsMu.Unlock()
	return token
}

func lookupSession(token uintptr) (*session, bool) {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	s, ok := sessions[token]
	return s, ok
}

func unregisterSession(token uintptr) {
	sessionsMu.Lock()
	delete(sessions, token)
	sessionsMu.Unlock()
}
