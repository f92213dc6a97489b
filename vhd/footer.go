// Package vhd implements the C3 sparse-image translator: reading and
// writing a block-table-indexed Microsoft dynamic VHD image, including
// block allocation, sector-bitmap maintenance, and footer preservation.
package vhd

import (
	"bytes"
	"encoding/binary"
)

const (
	// FooterSize is the fixed on-disk size of a VHD footer record.
	FooterSize = 512
	// FooterCookie is the magic that opens a VHD footer.
	FooterCookie = "conectix"
	// DiskTypeDynamic is the only disk_type this translator engages for.
	DiskTypeDynamic uint32 = 3
)

// Footer is the 512-byte VHD footer record (§3 VhdContext.footer), all
// multi-byte fields big-endian per the Microsoft dynamic-VHD format.
// Decoded the way bootimg.go decodes device-tree structures:
// binary.Read(bytes.NewReader(raw), binary.BigEndian, &footer).
type Footer struct {
	Cookie             [8]byte
	Features           uint32
	FileFormatVersion  uint32
	DataOffset         uint64
	Timestamp          uint32
	CreatorApplication [4]byte
	CreatorVersion     uint32
	CreatorHostOS      [4]byte
	OriginalSize       uint64
	CurrentSize        uint64
	DiskGeometry       DiskGeometry
	DiskType           uint32
	Checksum           uint32
	UniqueID           [16]byte
	SavedState         uint8
	Reserved           [427]byte
}

// DiskGeometry is the CHS geometry embedded in the footer.
type DiskGeometry struct {
	Cylinder uint16
	Heads    uint8
	Sectors  uint8
}

// DecodeFooter parses a 512-byte big-endian footer record.
func DecodeFooter(raw []byte) (Footer, error) {
	var f Footer
	if len(raw) < FooterSize {
		return f, errShortFooter
	}
	if err := binary.Read(bytes.NewReader(raw[:FooterSize]), binary.BigEndian, &f); err != nil {
		return f, err
	}
	return f, nil
}

// Encode serializes the footer back to its 512-byte big-endian form.
// Used to write the verbatim in-memory footer back to the backing
// store's new end-of-file after a block allocation (§4.3.2 step 2c).
func (f Footer) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(FooterSize)
	// binary.Write cannot fail against a bytes.Buffer.
	_ = binary.Write(buf, binary.BigEndian, f)
	return buf.Bytes()
}

// Valid reports whether f looks like a dynamic VHD footer (cookie and
// disk_type match); it does not validate the checksum, which spec.md
// §4.3 activation does not require.
func (f Footer) Valid() bool {
	return bytes.Equal(f.Cookie[:], []byte(FooterCookie)) && f.DiskType == DiskTypeDynamic
}

// ComputeChecksum recomputes the footer checksum: the one's complement
// of the sum of every byte in the footer with the checksum field
// itself treated as zero, per the Microsoft VHD format.
func (f Footer) ComputeChecksum() uint32 {
	f.Checksum = 0
	raw := f.Encode()
	var sum uint32
	for _, b := range raw {
		sum += uint32(b)
	}
	return ^sum
}

var errShortFooter = footerErr("vhd: short read decoding footer")

type footerErr string

func (e footerErr) Error() string { return string(e) }
