package gcm

import (
	"fmt"
	"os"

	"github.com/ApfelTeeSaft/dolhook-go/dol"
)

const (
	// relocationAlign is the boundary a relocated DOL is appended at.
	relocationAlign = 0x8000
)

// Container owns a full GCM disc image's bytes together with its parsed
// header. All offline patching is single-owner: a Container is never
// shared between goroutines, and every mutation goes directly against its
// buffer.
type Container struct {
	Header *Header
	data   []byte
}

// Open reads a disc image from disk and parses its header.
func Open(path string) (*Container, error) {
	data, err := readImage(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Load parses data as a GCM disc image. This is acceptable as a whole-file
// read because disc images are typically at most 1.4 GiB and patching is
// an offline, one-shot operation; streaming is explicitly not required.
func Load(data []byte) (*Container, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	owned := make([]byte, len(data))
	copy(owned, data)
	return &Container{Header: h, data: owned}, nil
}

// Save serializes the header back into the image and writes it to path.
func (c *Container) Save(path string) error {
	return os.WriteFile(path, c.Bytes(), 0o644)
}

// Bytes returns the full disc image with the current header re-serialized
// over its original 0x2440-byte prefix.
func (c *Container) Bytes() []byte {
	out := make([]byte, len(c.data))
	copy(out, c.data)
	copy(out, c.Header.Serialize())
	return out
}

// Backup creates a sidecar "<path>.bak" copy of path, unless one already
// exists, in which case it is left untouched.
func Backup(path string) error {
	backupPath := path + ".bak"
	if _, err := os.Stat(backupPath); err == nil {
		return nil // already backed up; never overwrite
	} else if !os.IsNotExist(err) {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return os.WriteFile(backupPath, data, 0o644)
}

// Read returns a copy of size bytes starting at offset.
func (c *Container) Read(offset, size uint32) ([]byte, error) {
	end := uint64(offset) + uint64(size)
	if end > uint64(len(c.data)) {
		return nil, fmt.Errorf("gcm: read [%#x, %#x) out of bounds (image length %#x)", offset, end, len(c.data))
	}
	out := make([]byte, size)
	copy(out, c.data[offset:end])
	return out, nil
}

// Write copies b into the image at offset, growing the image if
// necessary.
func (c *Container) Write(offset uint32, b []byte) error {
	end := uint64(offset) + uint64(len(b))
	if end > uint64(len(c.data)) {
		grown := make([]byte, end)
		copy(grown, c.data)
		c.data = grown
	}
	copy(c.data[offset:], b)
	return nil
}

// ReadDOL parses the header at Header.DOLOffset, computes the DOL's byte
// span as 0x100 plus the highest (file_offset + size) over its in-use
// sections, and hands that span to the DOL container loader.
func (c *Container) ReadDOL() (*dol.Container, error) {
	start := uint64(c.Header.DOLOffset)
	if start+dol.HeaderSize > uint64(len(c.data)) {
		return nil, fmt.Errorf("gcm: DOL offset %#x leaves no room for a header (image length %#x)", start, len(c.data))
	}

	probe, err := dol.ParseHeader(c.data[start : start+dol.HeaderSize])
	if err != nil {
		return nil, fmt.Errorf("gcm: parsing embedded DOL header: %w", err)
	}

	dolEnd := uint64(dol.HeaderSize)
	for _, sec := range probe.Sections() {
		if end := uint64(sec.FileOffset) + uint64(sec.Size); end > dolEnd {
			dolEnd = end
		}
	}

	if start+dolEnd > uint64(len(c.data)) {
		return nil, fmt.Errorf("gcm: embedded DOL extends past end of image (needs %#x bytes, have %#x)", dolEnd, uint64(len(c.data))-start)
	}
	return dol.Load(c.data[start : start+dolEnd])
}

// WriteDOLInPlace overwrites the existing DOL with d's bytes. It succeeds
// only if |d| fits within the gap between DOLOffset and FSTOffset, and
// never touches any GCM header field.
func (c *Container) WriteDOLInPlace(d *dol.Container) bool {
	available := uint64(c.Header.FSTOffset) - uint64(c.Header.DOLOffset)
	patched := d.Bytes()
	if uint64(len(patched)) > available {
		return false
	}
	c.Write(c.Header.DOLOffset, patched)
	return true
}

// RelocateDOL rounds the current image size up to a 0x8000-byte boundary,
// appends d's bytes there, and updates Header.DOLOffset. FST fields are
// left untouched: the original FST, and the unused original DOL bytes,
// remain exactly where they were.
func (c *Container) RelocateDOL(d *dol.Container) {
	patched := d.Bytes()
	newOffset := alignUp(len(c.data), relocationAlign)

	grown := make([]byte, newOffset+len(patched))
	copy(grown, c.data)
	copy(grown[newOffset:], patched)
	c.data = grown

	c.Header.DOLOffset = uint32(newOffset)
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
