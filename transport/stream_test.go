package transport_test

import (
	"bytes"
	"io"
	"testing"

	"blockproxy/transport"
)

type pipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p pipeEnd) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p pipeEnd) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p pipeEnd) Close() error {
	p.r.Close()
	return p.w.Close()
}

func TestStreamRoundTrip(t *testing.T) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()

	a := transport.NewStream(pipeEnd{ar, aw})
	b := transport.NewStream(pipeEnd{br, bw})

	payload := []byte("request-header-bytes")
	done := make(chan error, 1)
	go func() { done <- a.Write(payload) }()

	got := make([]byte, len(payload))
	if err := b.Read(got); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}

	a.Close()
	b.Close()
}

func TestStreamReadClosedReturnsTransportClosed(t *testing.T) {
	ar, aw := io.Pipe()
	s := transport.NewStream(pipeEnd{ar, aw})
	aw.Close()

	buf := make([]byte, 8)
	if err := s.Read(buf); err != transport.ErrTransportClosed {
		t.Fatalf("got %v, want ErrTransportClosed", err)
	}
}

func TestStdioWraps(t *testing.T) {
	in := bytes.NewBufferString("abcdefgh")
	var out bytes.Buffer
	s := transport.Stdio(in, &out)

	buf := make([]byte, 4)
	if err := s.Read(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "abcd" {
		t.Fatalf("got %q", buf)
	}
	if err := s.Write([]byte("wxyz")); err != nil {
		t.Fatal(err)
	}
	if out.String() != "wxyz" {
		t.Fatalf("got %q", out.String())
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
