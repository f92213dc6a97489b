package blockproxy

import (
	"plugin"
)

// PluginAllOnes is the sentinel session-token value meaning "open
// failed" per spec.md §4.1/§6.
const PluginAllOnes uintptr = ^uintptr(0)

// PluginReadFunc/PluginWriteFunc/PluginCloseFunc mirror the plugin
// ABI's three function-pointer callbacks (§6): read(h, buf, len,
// off) -> ssize_t, write(h, buf, len, off) -> ssize_t, close(h) -> int.
type (
	PluginReadFunc  func(token uintptr, buf []byte, off int64) (int, error)
	PluginWriteFunc func(token uintptr, buf []byte, off int64) (int, error)
	PluginCloseFunc func(token uintptr) error
)

// PluginOpenFunc is the single entry point: open(name, read_only) ->
// (token, read, write, close, size). A token equal to PluginAllOnes
// means failure; a nonzero size becomes physical_size (§4.1/§6).
type PluginOpenFunc func(name string, readOnly bool) (
	token uintptr,
	read PluginReadFunc,
	write PluginWriteFunc,
	close PluginCloseFunc,
	size uint64,
	err error,
)

// pluginBacking adapts a loaded provider's callbacks to BackingHandle.
type pluginBacking struct {
	token uintptr
	read  PluginReadFunc
	write PluginWriteFunc
	close PluginCloseFunc
	size  uint64
}

// LoadPlugin dynamically loads a provider from libPath and resolves
// its entry symbol (the "--dll=lib;entry" bootstrap argument, §6),
// then calls PluginOpenFunc to obtain a session. Go's own `plugin`
// package is used as the dynamic-loading primitive: it is the
// ecosystem-standard dlopen-equivalent for Go and no third-party
// library in this pack offers one (see DESIGN.md).
func LoadPlugin(libPath, entrySymbol, name string, readOnly bool) (BackingHandle, error) {
	p, err := plugin.Open(libPath)
	if err != nil {
		return nil, NewError(AllocFailure, err)
	}
	sym, err := p.Lookup(entrySymbol)
	if err != nil {
		return nil, NewError(AllocFailure, err)
	}
	openFn, ok := sym.(PluginOpenFunc)
	if !ok {
		if fn, ok2 := sym.(func(string, bool) (uintptr, PluginReadFunc, PluginWriteFunc, PluginCloseFunc, uint64, error)); ok2 {
			openFn = fn
		} else if ptr, ok3 := sym.(*PluginOpenFunc); ok3 && ptr != nil && *ptr != nil {
			// An exported package-level variable is looked up as a
			// pointer to that variable.
			openFn = *ptr
		} else {
			return nil, NewError(BadFormat, errPluginEntrySignature)
		}
	}
	return openPlugin(openFn, name, readOnly)
}

// openPlugin is split out from LoadPlugin so tests can exercise the
// ABI contract (sentinel token, size reporting) without a real .so.
func openPlugin(openFn PluginOpenFunc, name string, readOnly bool) (BackingHandle, error) {
	token, read, write, closeFn, size, err := openFn(name, readOnly)
	if err != nil {
		return nil, NewError(BackingIO, err)
	}
	if token == PluginAllOnes {
		return nil, NewError(BackingIO, errPluginOpenFailed)
	}
	return &pluginBacking{token: token, read: read, write: write, close: closeFn, size: size}, nil
}

func (p *pluginBacking) Pread(buf []byte, offset int64) (int, error) {
	n, err := p.read(p.token, buf, offset)
	if err != nil {
		return n, NewError(BackingIO, err)
	}
	return n, nil
}

func (p *pluginBacking) Pwrite(buf []byte, offset int64) (int, error) {
	n, err := p.write(p.token, buf, offset)
	if err != nil {
		return n, NewError(BackingIO, err)
	}
	return n, nil
}

func (p *pluginBacking) Size() (uint64, bool) {
	if p.size == 0 {
		return 0, false
	}
	return p.size, true
}

func (p *pluginBacking) Close() error {
	if p.close == nil {
		return nil
	}
	if err := p.close(p.token); err != nil {
		return NewError(BackingIO, err)
	}
	return nil
}

var (
	errPluginEntrySignature = simpleErr("plugin entry symbol does not implement PluginOpenFunc")
	errPluginOpenFailed     = simpleErr("plugin open returned the all-ones failure token")
)
