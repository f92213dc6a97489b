package blockproxy

import (
	"bytes"
	"encoding/binary"
)

const (
	sectorSize       = 512
	mbrSignatureOff  = 0x1FE
	partTableOff     = 0x1BE
	partEntrySize    = 16
	partTypeEmpty    = 0x00
	partTypeExtended = 0x05
	partTypeExtLBA   = 0x0F
)

// mbrPartitionEntry is the on-disk 16-byte MBR partition table entry,
// decoded the way bootimg.go decodes boot-image headers:
// binary.Read(bytes.NewReader(...), binary.LittleEndian, &entry).
type mbrPartitionEntry struct {
	Status   uint8
	CHSFirst [3]byte
	Type     uint8
	CHSLast  [3]byte
	RelStart uint32
	Sectors  uint32
}

// readMBR reads and validates the 512-byte MBR/EBR sector at offset.
// Validates the 0x55 0xAA signature and that every status byte is
// either 0x00 or 0x80, i.e. no bit other than the high bit is set
// (§4.2 step 1).
func readMBR(bh BackingHandle, offset int64) ([4]mbrPartitionEntry, bool, error) {
	var entries [4]mbrPartitionEntry

	buf := make([]byte, sectorSize)
	n, err := bh.Pread(buf, offset)
	if err != nil {
		return entries, false, err
	}
	if n < sectorSize {
		return entries, false, nil
	}
	if buf[mbrSignatureOff] != 0x55 || buf[mbrSignatureOff+1] != 0xAA {
		return entries, false, nil
	}

	r := bytes.NewReader(buf[partTableOff : partTableOff+4*partEntrySize])
	for i := 0; i < 4; i++ {
		if err := binary.Read(r, binary.LittleEndian, &entries[i]); err != nil {
			return entries, false, NewError(BadFormat, err)
		}
		if entries[i].Status&0x7F != 0 {
			return entries, false, nil
		}
	}
	return entries, true, nil
}

// ResolvePartition walks the MBR/EBR chain on bh to find the n-th
// (1-based) non-extended partition entry and returns its byte offset
// and length on the backing store (§4.2). If no valid MBR is present
// an error is returned.
func ResolvePartition(bh BackingHandle, n int) (offset uint64, size uint64, err error) {
	if n < 1 || n > 511 {
		return 0, 0, NewError(BadFormat, errPartitionRange)
	}

	entries, ok, err := readMBR(bh, 0)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, NewError(BadFormat, errNoMBR)
	}

	count := 0
	var firstEBR uint64
	haveExtended := false

	for _, e := range entries {
		switch {
		case e.Type == partTypeEmpty:
			continue
		case e.Type == partTypeExtended || e.Type == partTypeExtLBA:
			firstEBR = uint64(e.RelStart) * sectorSize
			haveExtended = true
		default:
			count++
			if count == n {
				return checkedRange(e)
			}
		}
	}

	if haveExtended {
		off, sz, found, werr := walkEBRChain(bh, firstEBR, n, &count)
		if werr != nil {
			return 0, 0, werr
		}
		if found {
			return off, sz, nil
		}
	}

	return 0, 0, NewError(BadFormat, errPartitionNotFound)
}

// walkEBRChain walks the linked EBR chain rooted at firstEBR. Each EBR
// has at most one logical partition entry and at most one link to the
// next EBR, relative to firstEBR (§4.2 step 2).
func walkEBRChain(bh BackingHandle, firstEBR uint64, n int, count *int) (offset, size uint64, found bool, err error) {
	ebrOffset := firstEBR
	for {
		entries, ok, rerr := readMBR(bh, int64(ebrOffset))
		if rerr != nil {
			return 0, 0, false, rerr
		}
		if !ok {
			return 0, 0, false, nil
		}

		var next uint64
		haveNext := false
		for _, e := range entries {
			if e.Type == partTypeEmpty {
				continue
			}
			if e.Type == partTypeExtended || e.Type == partTypeExtLBA {
				next = firstEBR + uint64(e.RelStart)*sectorSize
				haveNext = true
				continue
			}
			*count++
			if *count == n {
				off, sz, rangeErr := checkedRange(e)
				if rangeErr != nil {
					return 0, 0, false, rangeErr
				}
				return ebrOffset + off, sz, true, nil
			}
		}
		if !haveNext {
			return 0, 0, false, nil
		}
		ebrOffset = next
	}
}

func checkedRange(e mbrPartitionEntry) (uint64, uint64, error) {
	offset := uint64(e.RelStart) * sectorSize
	size := uint64(e.Sectors) * sectorSize
	if size == 0 {
		return 0, 0, NewError(BadFormat, errZeroLengthPartition)
	}
	return offset, size, nil
}

var (
	errPartitionRange      = simpleErr("partition index out of range [1, 511]")
	errNoMBR               = simpleErr("no MBR present")
	errPartitionNotFound   = simpleErr("partition not found")
	errZeroLengthPartition = simpleErr("target partition has zero length")
)
