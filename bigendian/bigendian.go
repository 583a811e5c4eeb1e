// Package bigendian reads and writes the fixed-width big-endian integers
// used throughout the DOL and GCM on-disk formats. Every multi-byte value
// in those formats is big-endian regardless of host byte order, so callers
// must never cast a byte slice onto a host-typed field.
package bigendian

// Uint16 reads a big-endian 16-bit value from b[0:2].
func Uint16(b []byte) uint16 {
	_ = b[1]
	return uint16(b[0])<<8 | uint16(b[1])
}

// PutUint16 writes v as a big-endian 16-bit value into b[0:2].
func PutUint16(b []byte, v uint16) {
	_ = b[1]
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

// Uint32 reads a big-endian 32-bit value from b[0:4].
func Uint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// PutUint32 writes v as a big-endian 32-bit value into b[0:4].
func PutUint32(b []byte, v uint32) {
	_ = b[3]
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
