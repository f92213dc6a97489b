package vhd

import "encoding/binary"

// SectorSize is the fixed VHD sector size (§3).
const SectorSize = 512

// sectorShift is lg2(SectorSize), a constant because SectorSize is
// fixed at 512; only the block size is validated at run time (in New).
const sectorShift = 9

// Translator owns the decoded footer/header and derived shifts needed
// to read and write a dynamic VHD image (§3 VhdContext). It holds no
// global state; every operation takes the Backing it operates against.
type Translator struct {
	Footer Footer
	Header Header

	blockSize   uint64
	blockShift  int
	tableOffset uint64

	// eof tracks the backing store's current end-of-file, i.e. the
	// byte offset at which the footer mirror currently lives. Block
	// allocation advances it; no other part of the translator's state
	// depends on querying the backing store's live size (§9 DESIGN
	// NOTES: explicit state, no hidden globals).
	eof uint64

	scratch []byte
}

// New validates footer/header and constructs a Translator. BlockSize
// must be a power of two and >= SectorSize (§3 invariant); New fails
// loudly rather than silently capping a linear shift search at 64
// (the Open Question flagged in spec.md §9).
func New(footer Footer, header Header, physicalSize uint64) (*Translator, error) {
	blockSize := uint64(header.BlockSize)
	shift := shiftOf(blockSize)
	if shift < 0 || blockSize < SectorSize {
		return nil, footerErr("vhd: block_size is not a power of two >= sector_size")
	}
	return &Translator{
		Footer:      footer,
		Header:      header,
		blockSize:   blockSize,
		blockShift:  shift,
		tableOffset: header.TableOffset,
		eof:         physicalSize,
	}, nil
}

func shiftOf(v uint64) int {
	if v == 0 || v&(v-1) != 0 {
		return -1
	}
	shift := 0
	for v > 1 {
		v >>= 1
		shift++
	}
	return shift
}

// CurrentSize is the VHD's decoded virtual size, reported in the INFO
// response (§3 ImageGeometry.current_size).
func (t *Translator) CurrentSize() uint64 {
	return t.Footer.CurrentSize
}

// Read implements §4.3.1 as an iterative loop over block-aligned
// chunks (DESIGN NOTES §9: bound stack depth instead of recursing).
// Exactly one backing Pread is issued per allocated chunk (the Open
// Question in §9 flags the source's double pread as a bug; this does
// not replicate it).
func (t *Translator) Read(b Backing, out []byte, offset uint64) (int, error) {
	size := uint64(len(out))
	if offset+size > t.CurrentSize() {
		return 0, nil
	}

	var done uint64
	for done < size {
		blockNo := (offset + done) >> t.blockShift
		inBlock := (offset + done) & (t.blockSize - 1)
		chunk := minU64(size-done, t.blockSize-inBlock)

		entry, err := readBATEntry(b, t.tableOffset, blockNo)
		if err != nil {
			return int(done), err
		}

		if entry == unallocatedEntry {
			clear(out[done : done+chunk])
			done += chunk
			continue
		}

		dataOffset := (uint64(entry) << sectorShift) + SectorSize + inBlock
		n, err := b.Pread(out[done:done+uint64(chunk)], int64(dataOffset))
		done += uint64(n)
		if err != nil {
			return int(done), err
		}
		if uint64(n) < chunk {
			return int(done), nil
		}
	}
	return int(done), nil
}

// Write implements §4.3.2, again as an iterative loop.
func (t *Translator) Write(b Backing, in []byte, offset uint64) (int, error) {
	size := uint64(len(in))
	var done uint64

	for done < size {
		blockNo := (offset + done) >> t.blockShift
		inBlock := (offset + done) & (t.blockSize - 1)
		chunk := minU64(size-done, t.blockSize-inBlock)
		payload := in[done : done+chunk]

		entry, err := readBATEntry(b, t.tableOffset, blockNo)
		if err != nil {
			return int(done), err
		}

		if entry == unallocatedEntry {
			if isAllZero(payload) {
				// §4.3.2 step 2a: do not allocate, report the bytes
				// "written" without touching the backing store.
				done += chunk
				continue
			}
			newSector, err := t.allocateBlock(b)
			if err != nil {
				return int(done), err
			}
			if err := writeBATEntry(b, t.tableOffset, blockNo, newSector); err != nil {
				return int(done), err
			}
			entry = newSector
		}

		dataOffset := (uint64(entry) << sectorShift) + SectorSize + inBlock
		n, err := b.Pwrite(payload, int64(dataOffset))
		done += uint64(n)
		if err != nil {
			return int(done), err
		}
		if err := t.markBitmap(b, entry, inBlock, uint64(n)); err != nil {
			return int(done), err
		}
		if uint64(n) < chunk {
			return int(done), nil
		}
	}
	return int(done), nil
}

// allocateBlock implements §4.3.2 step 2b/2c: place the new block at
// the byte offset currently occupied by the footer mirror, write a
// zeroed sector-bitmap-plus-block region followed by the verbatim
// in-memory footer, and advance the tracked end-of-file. Returns the
// new block's starting sector number for the BAT entry.
func (t *Translator) allocateBlock(b Backing) (uint32, error) {
	if t.eof < FooterSize {
		return 0, footerErr("vhd: tracked end-of-file smaller than footer size")
	}
	newBlockStart := t.eof - FooterSize
	if newBlockStart%SectorSize != 0 {
		return 0, footerErr("vhd: new block start is not sector-aligned")
	}

	region := make([]byte, SectorSize+t.blockSize+FooterSize)
	copy(region[SectorSize+t.blockSize:], t.Footer.Encode())

	n, err := b.Pwrite(region, int64(newBlockStart))
	if err != nil {
		return 0, err
	}
	if n < len(region) {
		return 0, footerErr("vhd: short write allocating block")
	}

	t.eof = newBlockStart + SectorSize + t.blockSize + FooterSize
	return uint32(newBlockStart / SectorSize), nil
}

// markBitmap implements §4.3.2 step 4: mark, at byte granularity, the
// sectors touched by a write as allocated. A partial-sector write may
// over-mark neighbouring sectors sharing that byte; spec.md §4.3.2
// explicitly accepts this since those neighbours physically exist
// within the allocated block.
func (t *Translator) markBitmap(b Backing, blockSector uint32, inBlock uint64, n uint64) error {
	if n == 0 {
		return nil
	}
	bitmapOffset := (uint64(blockSector) << sectorShift) + (inBlock >> sectorShift >> 3)
	sectorsTouched := (n + SectorSize - 1) / SectorSize
	bitmapBytes := (sectorsTouched + 7) / 8

	t.ensureScratch(int(bitmapBytes))
	for i := uint64(0); i < bitmapBytes; i++ {
		t.scratch[i] = 0xFF
	}

	wn, err := b.Pwrite(t.scratch[:bitmapBytes], int64(bitmapOffset))
	if err != nil {
		return err
	}
	if uint64(wn) < bitmapBytes {
		return footerErr("vhd: short write updating sector bitmap")
	}
	return nil
}

func (t *Translator) ensureScratch(n int) {
	if cap(t.scratch) < n {
		t.scratch = make([]byte, n)
		return
	}
	t.scratch = t.scratch[:n]
}

// isAllZero implements the "test and bail" intent of the source's
// zero-block scan (the Open Question in spec.md §9 calls the original
// exit condition syntactically suspicious): return false as soon as
// any 64-bit lane is nonzero, true only if every lane (and any
// trailing bytes) is zero.
func isAllZero(buf []byte) bool {
	i := 0
	for ; i+8 <= len(buf); i += 8 {
		if binary.LittleEndian.Uint64(buf[i:i+8]) != 0 {
			return false
		}
	}
	for ; i < len(buf); i++ {
		if buf[i] != 0 {
			return false
		}
	}
	return true
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
