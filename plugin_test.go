package blockproxy

import "testing"

func fakeOpenFunc(token uintptr, size uint64, openErr error) PluginOpenFunc {
	return func(name string, readOnly bool) (uintptr, PluginReadFunc, PluginWriteFunc, PluginCloseFunc, uint64, error) {
		if openErr != nil {
			return 0, nil, nil, nil, 0, openErr
		}
		data := make([]byte, size)
		read := func(tok uintptr, buf []byte, off int64) (int, error) {
			return copy(buf, data[off:]), nil
		}
		write := func(tok uintptr, buf []byte, off int64) (int, error) {
			return copy(data[off:], buf), nil
		}
		closeFn := func(tok uintptr) error { return nil }
		return token, read, write, closeFn, size, nil
	}
}

func TestOpenPluginSuccess(t *testing.T) {
	h, err := openPlugin(fakeOpenFunc(42, 4096, nil), "backing.img", false)
	if err != nil {
		t.Fatal(err)
	}
	size, ok := h.Size()
	if !ok || size != 4096 {
		t.Fatalf("Size() = (%d, %v), want (4096, true)", size, ok)
	}

	buf := []byte("hello")
	if _, err := h.Pwrite(buf, 10); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 5)
	if _, err := h.Pread(out, 10); err != nil {
		t.Fatal(err)
	}
	if string(out) != "hello" {
		t.Fatalf("got %q, want %q", out, "hello")
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenPluginAllOnesTokenFails(t *testing.T) {
	_, err := openPlugin(fakeOpenFunc(PluginAllOnes, 0, nil), "backing.img", false)
	if err == nil {
		t.Fatal("expected error for all-ones sentinel token")
	}
}

func TestOpenPluginPropagatesOpenError(t *testing.T) {
	_, err := openPlugin(fakeOpenFunc(0, 0, errTestOpenFailed), "backing.img", false)
	if err == nil {
		t.Fatal("expected error to propagate from the plugin's open callback")
	}
}

func TestPluginBackingCloseNilFunc(t *testing.T) {
	p := &pluginBacking{token: 1}
	if err := p.Close(); err != nil {
		t.Fatalf("Close with nil close callback should be a no-op, got %v", err)
	}
}

var errTestOpenFailed = simpleErr("plugin open failed")
