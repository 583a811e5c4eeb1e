package bigendian

import "testing"

func TestUint32RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		val  uint32
	}{
		{"zero", 0},
		{"entry point", 0x80003100},
		{"max", 0xFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := make([]byte, 4)
			PutUint32(b, tt.val)
			if got := Uint32(b); got != tt.val {
				t.Errorf("Uint32(PutUint32(%#x)) = %#x", tt.val, got)
			}
		})
	}
}

func TestUint32Layout(t *testing.T) {
	b := make([]byte, 4)
	PutUint32(b, 0x80003100)
	want := []byte{0x80, 0x00, 0x31, 0x00}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, b[i], want[i])
		}
	}
}

func TestUint16RoundTrip(t *testing.T) {
	b := make([]byte, 2)
	PutUint16(b, 0x8001)
	if got := Uint16(b); got != 0x8001 {
		t.Errorf("Uint16(PutUint16(0x8001)) = %#x", got)
	}
}
