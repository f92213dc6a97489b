package compressedimage

import (
	"bytes"
	"compress/gzip"
	"os"
	"testing"
)

func writeGzipFixture(t *testing.T, payload []byte) string {
	t.Helper()
	f, err := os.CreateTemp("", "compressedimage-fixture-*.gz")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := gzip.NewWriter(f)
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func TestOpenSpoolsAndReadsBack(t *testing.T) {
	payload := bytes.Repeat([]byte("disk-bytes-"), 1024)
	path := writeGzipFixture(t, payload)
	defer os.Remove(path)

	token, read, _, closeFn, size, err := Open(path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn(token)

	if size != uint64(len(payload)) {
		t.Fatalf("size = %d, want %d", size, len(payload))
	}

	got := make([]byte, len(payload))
	n, err := read(token, got, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) {
		t.Fatalf("short read: %d", n)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("read-back mismatch")
	}
}

func TestOpenRejectsUnknownCodec(t *testing.T) {
	f, err := os.CreateTemp("", "compressedimage-raw-*.img")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.Write([]byte("plain raw bytes, not compressed"))
	f.Close()

	if _, _, _, _, _, err := Open(f.Name(), true); err == nil {
		t.Fatal("expected error for unrecognized codec")
	}
}

func TestWriteRejectedReadOnly(t *testing.T) {
	payload := []byte("abc")
	path := writeGzipFixture(t, payload)
	defer os.Remove(path)

	token, _, write, closeFn, _, err := Open(path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn(token)

	if _, err := write(token, []byte("x"), 0); err != errReadOnlySession {
		t.Fatalf("got %v, want errReadOnlySession", err)
	}
}
