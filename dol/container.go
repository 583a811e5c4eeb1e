package dol

import (
	"fmt"
	"os"
)

const (
	// sectionAlign is the alignment DOL convention uses for appended
	// section data.
	sectionAlign = 32
)

// Container owns a DOL's full raw byte image together with its parsed
// header view. Serializing Header into the first 256 bytes of the image
// always yields a byte-for-byte representation consistent with the
// in-memory header; Bytes does that serialization on demand rather than
// keeping the header bytes duplicated in image.
type Container struct {
	Header *Header
	image  []byte // raw bytes past the header, i.e. image[HeaderSize:]
}

// Open reads a DOL image from disk and parses its header.
func Open(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Load parses data as a DOL image. data is copied so the returned
// Container owns independent storage.
func Load(data []byte) (*Container, error) {
	if len(data) < HeaderSize {
		return nil, &FormatError{Off: 0, Msg: "DOL image shorter than header", Val: len(data)}
	}
	h, err := ParseHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}
	image := make([]byte, len(data)-HeaderSize)
	copy(image, data[HeaderSize:])
	return &Container{Header: h, image: image}, nil
}

// Save serializes the container and writes it to path.
func (c *Container) Save(path string) error {
	return os.WriteFile(path, c.Bytes(), 0o644)
}

// Bytes returns the full DOL image: the current header serialized into
// the first 256 bytes, followed by the section data.
func (c *Container) Bytes() []byte {
	out := make([]byte, HeaderSize+len(c.image))
	copy(out, c.Header.Serialize())
	copy(out[HeaderSize:], c.image)
	return out
}

// Len is the total size in bytes of the image Bytes would return.
func (c *Container) Len() int {
	return HeaderSize + len(c.image)
}

// ExtractSection returns a copy of the raw bytes backing s.
func (c *Container) ExtractSection(s Section) ([]byte, error) {
	start := int(s.FileOffset) - HeaderSize
	end := start + int(s.Size)
	if start < 0 || end > len(c.image) {
		return nil, fmt.Errorf("dol: section at file offset %#x size %#x falls outside the image (length %#x)", s.FileOffset, s.Size, c.Len())
	}
	out := make([]byte, s.Size)
	copy(out, c.image[start:end])
	return out, nil
}

// InjectPayload aligns the container's current file length up to a
// 32-byte boundary, appends payload, and registers a new section of
// |payload| bytes at the resulting file offset and kind. On slot
// exhaustion the injection fails and the container is left unchanged.
func (c *Container) InjectPayload(payload []byte, loadAddr uint32, kind Kind) (Section, error) {
	fileOffset := alignUp(c.Len(), sectionAlign)
	// Stage the append so a failed AddSection leaves the container
	// byte-for-byte as it was.
	padded := fileOffset - c.Len()
	staged := make([]byte, len(c.image)+padded+len(payload))
	copy(staged, c.image)
	copy(staged[len(c.image)+padded:], payload)

	sec, err := c.Header.AddSection(kind, uint32(fileOffset), loadAddr, uint32(len(payload)))
	if err != nil {
		return Section{}, err
	}
	c.image = staged
	return sec, nil
}

// FormatTable renders the section table the way the original DolHook
// patcher's DOLFile::format_header did, for --print-dol and debug-level
// logging.
func (c *Container) FormatTable() string {
	s := fmt.Sprintf("DOL Header:\n  Entry Point: %#08x\n  BSS: %#08x - %#08x (size: %#08x)\n\n",
		c.Header.EntryPoint, c.Header.BSSAddr, c.Header.BSSAddr+c.Header.BSSSize, c.Header.BSSSize)

	s += "Text Sections:\n"
	for _, sec := range c.Header.Sections() {
		if sec.Kind != Text {
			continue
		}
		s += fmt.Sprintf("  [%d] File:%#08x -> Addr:%#08x Size:%#08x\n", sec.Slot, sec.FileOffset, sec.LoadAddr, sec.Size)
	}

	s += "\nData Sections:\n"
	for _, sec := range c.Header.Sections() {
		if sec.Kind != Data {
			continue
		}
		s += fmt.Sprintf("  [%d] File:%#08x -> Addr:%#08x Size:%#08x\n", sec.Slot, sec.FileOffset, sec.LoadAddr, sec.Size)
	}
	return s
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
