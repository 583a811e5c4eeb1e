package hook

import "testing"

func TestFindPatternLiteral(t *testing.T) {
	region := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01, 0x02}
	offset, ok := FindPattern(region, []byte{0xBE, 0xEF}, "xx")
	if !ok || offset != 2 {
		t.Errorf("FindPattern = %d, %v; want 2, true", offset, ok)
	}
}

func TestFindPatternWildcard(t *testing.T) {
	region := []byte{0x7C, 0x08, 0x02, 0xA6, 0x94, 0x21, 0xFF, 0xF0}
	offset, ok := FindPattern(region, []byte{0x7C, 0x00, 0x02, 0xA6}, "x?xx")
	if !ok || offset != 0 {
		t.Errorf("FindPattern with wildcard = %d, %v; want 0, true", offset, ok)
	}
}

func TestFindPatternNoMatch(t *testing.T) {
	region := []byte{0x00, 0x01, 0x02, 0x03}
	if _, ok := FindPattern(region, []byte{0xFF, 0xFF}, "xx"); ok {
		t.Fatal("FindPattern matched a pattern absent from the region")
	}
}

func TestFindPatternAtAddress(t *testing.T) {
	m := NewSimMemory(0x80000000, 0x100)
	withInterruptsMasked(m, func() {
		m.WriteAt(0x80000020, []byte{0x4E, 0x80, 0x00, 0x20})
	})

	addr, ok := FindPatternAt(m, 0x80000000, 0x100, []byte{0x4E, 0x80, 0x00, 0x20}, "xxxx")
	if !ok || addr != 0x80000020 {
		t.Errorf("FindPatternAt = %#x, %v; want 0x80000020, true", addr, ok)
	}
}

func TestFindPatternEmptyPattern(t *testing.T) {
	if _, ok := FindPattern([]byte{1, 2, 3}, nil, ""); ok {
		t.Fatal("FindPattern matched an empty pattern")
	}
}
