package blockproxy

import "testing"

func TestImageGeometryValidate(t *testing.T) {
	tests := map[string]struct {
		g       ImageGeometry
		wantErr bool
	}{
		"ok":                 {ImageGeometry{CurrentSize: 100, ImageOffset: 10, FileSize: 90, ReqAlignment: 1}, false},
		"exceeds current":    {ImageGeometry{CurrentSize: 100, ImageOffset: 50, FileSize: 90, ReqAlignment: 1}, true},
		"zero alignment":     {ImageGeometry{CurrentSize: 100, FileSize: 100, ReqAlignment: 0}, true},
		"exact fit is fine":  {ImageGeometry{CurrentSize: 100, ImageOffset: 0, FileSize: 100, ReqAlignment: 512}, false},
	}
	for name, tc := range tests {
		err := tc.g.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr = %v", name, err, tc.wantErr)
		}
	}
}

func TestFlagsReadOnly(t *testing.T) {
	var f Flags
	if f.ReadOnly() {
		t.Fatal("zero Flags should not be read-only")
	}
	f |= FlagReadOnly
	if !f.ReadOnly() {
		t.Fatal("FlagReadOnly should report ReadOnly() == true")
	}
}

func TestShiftOf(t *testing.T) {
	tests := map[uint64]int{
		1:               0,
		2:               1,
		512:             9,
		2 * 1024 * 1024: 21,
		0:               -1,
		3:               -1,
	}
	for v, want := range tests {
		if got := shiftOf(v); got != want {
			t.Errorf("shiftOf(%d) = %d, want %d", v, got, want)
		}
	}
}
