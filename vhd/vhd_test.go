package vhd_test

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"

	"blockproxy/vhd"
)

// memBacking is an in-memory vhd.Backing used so translator tests
// never touch the filesystem, mirroring the teacher's in-memory
// []byte fixtures in format_test.go/cpio_test.go.
type memBacking struct {
	data []byte
}

func newMemBacking(size int) *memBacking {
	return &memBacking{data: make([]byte, size)}
}

func (m *memBacking) Pread(buf []byte, offset int64) (int, error) {
	if offset >= int64(len(m.data)) {
		return 0, nil
	}
	n := copy(buf, m.data[offset:])
	return n, nil
}

func (m *memBacking) Pwrite(buf []byte, offset int64) (int, error) {
	end := offset + int64(len(buf))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	n := copy(m.data[offset:], buf)
	return n, nil
}

func TestStructSizes(t *testing.T) {
	tests := map[string]struct {
		v    interface{}
		want int
	}{
		"Footer": {vhd.Footer{}, 512},
	}
	for name, tc := range tests {
		if got := binary.Size(tc.v); got != tc.want {
			t.Fatalf("%s: binary.Size = %d, want %d", name, got, tc.want)
		}
	}
}

// buildDynamicVHD constructs a minimal in-memory dynamic VHD with the
// given block size and virtual size: footer at 0, BAT at 1536, footer
// mirror at end-of-file. The header is not written to the backing; it
// is returned for the caller to hand to vhd.New directly.
func buildDynamicVHD(t *testing.T, blockSize, virtualSize uint64) (*memBacking, vhd.Footer, vhd.Header) {
	t.Helper()

	maxEntries := uint32((virtualSize + blockSize - 1) / blockSize)
	tableOffset := uint64(1536)
	batBytes := alignUp(uint64(maxEntries)*4, 512)
	eof := tableOffset + batBytes + vhd.FooterSize

	footer := vhd.Footer{CurrentSize: virtualSize, DiskType: vhd.DiskTypeDynamic}
	copy(footer.Cookie[:], vhd.FooterCookie)

	header := vhd.Header{TableOffset: tableOffset, BlockSize: uint32(blockSize), MaxTableEntries: maxEntries}
	copy(header.Cookie[:], vhd.HeaderCookie)

	b := newMemBacking(int(eof))
	if _, err := b.Pwrite(footer.Encode(), 0); err != nil {
		t.Fatal(err)
	}
	// BAT: every entry starts unallocated.
	bat := make([]byte, batBytes)
	for i := range bat {
		bat[i] = 0xFF
	}
	if _, err := b.Pwrite(bat, int64(tableOffset)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Pwrite(footer.Encode(), int64(eof-vhd.FooterSize)); err != nil {
		t.Fatal(err)
	}
	return b, footer, header
}

func alignUp(v, a uint64) uint64 { return (v + a - 1) / a * a }

func TestFreshVHDReadsZero(t *testing.T) {
	b, footer, header := buildDynamicVHD(t, 2*1024*1024, 10*1024*1024)
	tr, err := vhd.New(footer, header, uint64(len(b.data)))
	if err != nil {
		t.Fatal(err)
	}

	out := make([]byte, 4096)
	for i := range out {
		out[i] = 0xAA
	}
	n, err := tr.Read(b, out, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(out) {
		t.Fatalf("short read: %d", n)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("byte %d not zero: %x", i, v)
		}
	}
}

func TestSparseGrowthOnWrite(t *testing.T) {
	const blockSize = 2 * 1024 * 1024
	b, footer, header := buildDynamicVHD(t, blockSize, 10*1024*1024)
	tr, err := vhd.New(footer, header, uint64(len(b.data)))
	if err != nil {
		t.Fatal(err)
	}

	before := len(b.data)
	payload := make([]byte, 16)
	for i := range payload {
		payload[i] = byte(i + 1)
	}

	writeOffset := uint64(blockSize) // block 1
	n, err := tr.Write(b, payload, writeOffset)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) {
		t.Fatalf("short write: %d", n)
	}

	after := len(b.data)
	if after-before != 512+blockSize {
		t.Fatalf("backing grew by %d, want %d", after-before, 512+blockSize)
	}

	// Footer mirror must equal the in-memory footer byte-for-byte at
	// the new end of file (§8 testable property).
	mirrorStart := after - vhd.FooterSize
	got := b.data[mirrorStart:after]
	want := footer.Encode()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("footer mirror mismatch (-want +got):\n%s", diff)
	}

	out := make([]byte, 16)
	if _, err := tr.Read(b, out, writeOffset); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(payload, out); diff != "" {
		t.Fatalf("read-back mismatch (-want +got):\n%s", diff)
	}

	zeros := make([]byte, 16)
	for i := range zeros {
		zeros[i] = 0xFF
	}
	if _, err := tr.Read(b, zeros, writeOffset+16); err != nil {
		t.Fatal(err)
	}
	for i, v := range zeros {
		if v != 0 {
			t.Fatalf("byte %d beyond write not zero: %x", i, v)
		}
	}
}

func TestZeroWriteSuppressed(t *testing.T) {
	const blockSize = 2 * 1024 * 1024
	b, footer, header := buildDynamicVHD(t, blockSize, 10*1024*1024)
	tr, err := vhd.New(footer, header, uint64(len(b.data)))
	if err != nil {
		t.Fatal(err)
	}

	before := len(b.data)
	zero := make([]byte, 4096)
	writeOffset := uint64(2 * blockSize) // block 2

	n, err := tr.Write(b, zero, writeOffset)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(zero) {
		t.Fatalf("short write: %d", n)
	}
	if len(b.data) != before {
		t.Fatalf("backing grew on all-zero write: %d -> %d", before, len(b.data))
	}
}

func TestNewRejectsNonPowerOfTwoBlockSize(t *testing.T) {
	footer := vhd.Footer{CurrentSize: 1024, DiskType: vhd.DiskTypeDynamic}
	copy(footer.Cookie[:], vhd.FooterCookie)
	header := vhd.Header{TableOffset: 1536, BlockSize: 3 * 1024 * 1024}
	copy(header.Cookie[:], vhd.HeaderCookie)

	if _, err := vhd.New(footer, header, 4096); err == nil {
		t.Fatal("expected error for non-power-of-two block_size")
	}
}
