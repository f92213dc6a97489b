package compressedimage

import "testing"

func TestDetect(t *testing.T) {
	tests := map[string]struct {
		magic []byte
		want  Codec
	}{
		"gzip":   {[]byte("\x1f\x8b\x08\x00"), Gzip},
		"xz":     {[]byte("\xfd7zXZ\x00"), XZ},
		"bzip2":  {[]byte("BZh9"), Bzip2},
		"lz4":    {[]byte("\x04\x22\x4d\x18"), LZ4},
		"brotli": {[]byte("\xce\xb2\xcf\x81"), Brotli},
		"raw":    {[]byte("conectix"), Unknown},
		"short":  {[]byte{0x1f}, Unknown},
	}
	for name, tc := range tests {
		if got := Detect(tc.magic); got != tc.want {
			t.Errorf("%s: Detect = %v, want %v", name, got, tc.want)
		}
	}
}

func TestCodecString(t *testing.T) {
	if Gzip.String() != "gzip" {
		t.Fatalf("got %q", Gzip.String())
	}
	if Unknown.String() != "unknown" {
		t.Fatalf("got %q", Unknown.String())
	}
}
