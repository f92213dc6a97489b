package vhd

// Backing is the subset of the C1 contract the translator depends on.
// Kept minimal and passed explicitly (no globals) per DESIGN NOTES §9:
// "model as an owned struct carrying footer, header, shifts, and the
// BAT file position... pass explicitly to read/write".
type Backing interface {
	Pread(buf []byte, offset int64) (int, error)
	Pwrite(buf []byte, offset int64) (int, error)
}

// Detect reads the first 1024 bytes of b and reports whether they
// describe a dynamic VHD: header cookie "cxsparse", footer cookie
// "conectix", disk_type == 3 (§4.3 Activation). physicalSize is the
// backing store's size as already resolved by the caller (C7); it
// becomes the translator's notion of current end-of-file, from which
// block allocation computes the new block's placement (§4.3.2).
func Detect(b Backing, physicalSize uint64) (*Translator, bool, error) {
	head := make([]byte, 1024)
	n, err := b.Pread(head, 0)
	if err != nil {
		return nil, false, err
	}
	if n < 1024 {
		return nil, false, nil
	}

	footer, ferr := DecodeFooter(head[:FooterSize])
	if ferr != nil {
		return nil, false, nil
	}
	header, herr := DecodeHeader(head[FooterSize:])
	if herr != nil {
		return nil, false, nil
	}
	if !header.Valid() || !footer.Valid() {
		return nil, false, nil
	}

	t, err := New(footer, header, physicalSize)
	if err != nil {
		return nil, true, err
	}
	return t, true, nil
}
