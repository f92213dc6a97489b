package blockproxy

import "testing"

func TestParseSizeSuffix(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    uint64
		wantErr bool
	}{
		"binary K":  {"4K", 4 * 1024, false},
		"binary M":  {"2M", 2 * 1024 * 1024, false},
		"binary G":  {"1G", 1024 * 1024 * 1024, false},
		"decimal k": {"4k", 4000, false},
		"decimal m": {"2m", 2_000_000, false},
		"bare":      {"512", 512, false},
		"empty":     {"", 0, true},
		"garbage":   {"abcK", 0, true},
	}
	for name, tc := range tests {
		got, err := ParseSizeSuffix(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr = %v", name, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("%s: got %d, want %d", name, got, tc.want)
		}
	}
}

func TestOpenTransportUnknownSpec(t *testing.T) {
	if _, err := OpenTransport("bogus:thing"); err == nil {
		t.Fatal("expected error for unrecognized comm spec")
	}
}

func TestResolvePhysicalSizeExplicitWins(t *testing.T) {
	backing := &memBacking{data: make([]byte, 100)}
	got, err := ResolvePhysicalSize(999, backing, "/dev/null")
	if err != nil {
		t.Fatal(err)
	}
	if got != 999 {
		t.Fatalf("got %d, want 999", got)
	}
}

func TestResolvePhysicalSizeFromBackingSize(t *testing.T) {
	backing := &memBacking{data: make([]byte, 4096)}
	got, err := ResolvePhysicalSize(0, backing, "/dev/null")
	if err != nil {
		t.Fatal(err)
	}
	if got != 4096 {
		t.Fatalf("got %d, want 4096", got)
	}
}

func TestBuildGeometryWholeImage(t *testing.T) {
	backing := &memBacking{data: make([]byte, sectorSize)} // no MBR signature
	cfg := Config{NoVHD: true}
	geom, translator, err := BuildGeometry(cfg, backing, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	if translator != nil {
		t.Fatal("expected no VHD translator for a plain image")
	}
	if geom.FileSize != 1<<20 {
		t.Fatalf("FileSize = %d, want %d", geom.FileSize, 1<<20)
	}
	if geom.ImageOffset != 0 {
		t.Fatalf("ImageOffset = %d, want 0", geom.ImageOffset)
	}
}

func TestBuildGeometryPartitionOffsetOverridesExplicitOffset(t *testing.T) {
	entries := [4]mbrPartitionEntry{{Type: 0x83, RelStart: 2048, Sectors: 100}}
	data := buildMBR(entries)
	data = append(data, make([]byte, 2<<20)...)
	backing := &memBacking{data: data}

	cfg := Config{NoVHD: true, Partition: 1, ImageOffset: 777}
	geom, _, err := BuildGeometry(cfg, backing, uint64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if geom.ImageOffset != 2048*sectorSize {
		t.Fatalf("ImageOffset = %d, want %d (partition-derived offset replaces the explicit one)", geom.ImageOffset, 2048*sectorSize)
	}
}

func TestAcquireSingleInstanceUsesSingleLockFn(t *testing.T) {
	var gotName string
	released := false
	cfg := Config{
		BackingPath: "/dev/sda",
		SingleLockFn: func(name string) (func() error, error) {
			gotName = name
			return func() error { released = true; return nil }, nil
		},
	}
	unlock, err := AcquireSingleInstance(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if gotName != singleInstanceLockName(cfg.BackingPath) {
		t.Fatalf("lock name = %q, want %q", gotName, singleInstanceLockName(cfg.BackingPath))
	}
	if err := unlock(); err != nil {
		t.Fatal(err)
	}
	if !released {
		t.Fatal("expected the fake unlock function to run")
	}
}

func TestSingleInstanceLockNameStripsSeparators(t *testing.T) {
	name := singleInstanceLockName("/dev/sda:1")
	for _, r := range name {
		isSafe := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_'
		if !isSafe {
			t.Fatalf("lock name %q contains unsafe character %q", name, r)
		}
	}
}
