package blockproxy

import "testing"

func TestEncodeDecodeInfoResponse(t *testing.T) {
	want := InfoResponse{FileSize: 123456, ReqAlignment: 512, Flags: uint64(FlagReadOnly)}
	raw := encodeLE(want)
	if len(raw) != 24 {
		t.Fatalf("encoded length = %d, want 24", len(raw))
	}
	var got InfoResponse
	if err := decodeLE(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestEncodeDecodeDataRequest(t *testing.T) {
	want := DataRequest{Offset: 4096, Length: 8192}
	raw := encodeLE(want)
	if len(raw) != 16 {
		t.Fatalf("encoded length = %d, want 16", len(raw))
	}
	var got DataRequest
	if err := decodeLE(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRequestCodeFamily(t *testing.T) {
	if CodeInfo+1 != CodeRead || CodeRead+1 != CodeWrite {
		t.Fatal("INFO/READ/WRITE codes are no longer a contiguous family")
	}
}
