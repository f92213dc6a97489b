package vhd

import (
	"encoding/binary"
)

const batEntrySize = 4

// readBATEntry reads the 32-bit big-endian BAT entry for blockNo.
func readBATEntry(b Backing, tableOffset uint64, blockNo uint64) (uint32, error) {
	var raw [batEntrySize]byte
	n, err := b.Pread(raw[:], int64(tableOffset+blockNo*batEntrySize))
	if err != nil {
		return 0, err
	}
	if n < batEntrySize {
		return 0, errShortBATRead
	}
	return binary.BigEndian.Uint32(raw[:]), nil
}

// writeBATEntry updates the BAT entry for blockNo to point at
// sectorStart (already a sector number, not a byte offset).
func writeBATEntry(b Backing, tableOffset uint64, blockNo uint64, sectorStart uint32) error {
	var raw [batEntrySize]byte
	binary.BigEndian.PutUint32(raw[:], sectorStart)
	n, err := b.Pwrite(raw[:], int64(tableOffset+blockNo*batEntrySize))
	if err != nil {
		return err
	}
	if n < batEntrySize {
		return errShortBATWrite
	}
	return nil
}

var (
	errShortBATRead  = footerErr("vhd: short read on BAT entry")
	errShortBATWrite = footerErr("vhd: short write on BAT entry")
)
