// Command compressedimage-plugin builds to a shared object
// (go build -buildmode=plugin) loadable by blockproxyd's --dll bootstrap
// flag: "--dll=compressedimage-plugin.so;Entry" (§6.1, §6).
package main

import (
	"blockproxy"
	"blockproxy/provider/compressedimage"
)

// Entry is the symbol blockproxy.LoadPlugin looks up. Because it is a
// variable, the lookup yields a *blockproxy.PluginOpenFunc, which
// LoadPlugin accepts; its type must match blockproxy.PluginOpenFunc
// exactly for that type assertion to succeed.
var Entry blockproxy.PluginOpenFunc = func(name string, readOnly bool) (
	uintptr,
	blockproxy.PluginReadFunc,
	blockproxy.PluginWriteFunc,
	blockproxy.PluginCloseFunc,
	uint64,
	error,
) {
	token, read, write, close, size, err := compressedimage.Open(name, readOnly)
	if err != nil {
		return token, nil, nil, nil, 0, err
	}
	return token,
		blockproxy.PluginReadFunc(read),
		blockproxy.PluginWriteFunc(write),
		blockproxy.PluginCloseFunc(close),
		size,
		nil
}

func main() {}
