package blockproxy

import (
	"bytes"
	"encoding/binary"
)

// Request codes (§4.6, §6 GLOSSARY). The 64-bit INFO code matches the
// "0x8474495900000001 family" spec.md describes; READ/WRITE use the
// low two codes of that same family so a single switch on the 8-byte
// wire value dispatches all three.
type RequestCode uint64

const (
	CodeInfo  RequestCode = 0x8474495900000001
	CodeRead  RequestCode = 0x8474495900000002
	CodeWrite RequestCode = 0x8474495900000003
)

// InfoResponse is the fixed INFO reply (§4.6).
type InfoResponse struct {
	FileSize     uint64
	ReqAlignment uint64
	Flags        uint64
}

// ReadRequest/WriteRequest share the same on-wire shape after the code.
type DataRequest struct {
	Offset uint64
	Length uint64
}

// DataResponse is the shared READ/WRITE response header; payload
// bytes (READ success only) follow immediately on the wire.
type DataResponse struct {
	Errno  uint64
	Length uint64
}

func encodeLE(v interface{}) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func decodeLE(raw []byte, v interface{}) error {
	return binary.Read(bytes.NewReader(raw), binary.LittleEndian, v)
}
