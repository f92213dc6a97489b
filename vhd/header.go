package vhd

import (
	"bytes"
	"encoding/binary"
)

const (
	// HeaderCookie is the magic that opens a dynamic disk header.
	HeaderCookie = "cxsparse"
	// unallocatedEntry is the BAT sentinel meaning "no physical block".
	unallocatedEntry = 0xFFFFFFFF
)

// Header models the fields of the 1024-byte VHD "Dynamic Disk Header"
// that a non-differencing dynamic disk actually needs (§3 VhdContext:
// table_offset, block_size, max_table_entries). The parent-locator
// fields that differencing disks use are out of scope: spec.md §1
// explicitly excludes differencing-VHD support as a Non-goal, so this
// repo never decodes or preserves them.
type Header struct {
	Cookie          [8]byte
	DataOffset      uint64
	TableOffset     uint64
	HeaderVersion   uint32
	MaxTableEntries uint32
	BlockSize       uint32
	Checksum        uint32
}

// headerPrefixSize is how many bytes of the on-disk header DecodeHeader
// needs to read; it is well inside the 1024-byte window spec.md §4.3
// reads at startup (footer at file offset 0..511, header cookie and
// the fields above starting at file offset 512).
const headerPrefixSize = 40

// DecodeHeader parses the leading fields of a big-endian VHD dynamic
// disk header from raw (which must contain at least headerPrefixSize
// bytes starting at the header's own offset 0).
func DecodeHeader(raw []byte) (Header, error) {
	var h Header
	if len(raw) < headerPrefixSize {
		return h, errShortHeader
	}
	if err := binary.Read(bytes.NewReader(raw[:headerPrefixSize]), binary.BigEndian, &h); err != nil {
		return h, err
	}
	return h, nil
}

// Valid reports whether h looks like a dynamic disk header (cookie
// match only; spec.md §4.3 activation does not check HeaderVersion).
func (h Header) Valid() bool {
	return bytes.Equal(h.Cookie[:], []byte(HeaderCookie))
}

var errShortHeader = footerErr("vhd: short read decoding header")
