// Package dol models the DOL executable format used by GameCube/Wii
// loaders: a fixed 256-byte header describing up to 18 text and 11 data
// sections plus a BSS region and entry point, followed by the raw section
// bytes themselves.
package dol

import (
	"fmt"

	"github.com/ApfelTeeSaft/dolhook-go/bigendian"
)

const (
	// HeaderSize is the fixed size, in bytes, of a DOL header.
	HeaderSize = 0x100

	// MaxTextSections is the number of text-section slots in a DOL header.
	MaxTextSections = 18
	// MaxDataSections is the number of data-section slots in a DOL header.
	MaxDataSections = 11

	minSectionFileOffset = 0x100
	minLoadAddress       = 0x80000000
	minEntryPoint        = 0x80000000
	maxEntryPoint        = 0x81800000

	textOffsetsAt = 0x00
	dataOffsetsAt = 0x48
	textAddrsAt   = 0x74
	dataAddrsAt   = 0xBC
	textSizesAt   = 0xE8
	dataSizesAt   = 0x130
	bssAddrAt     = 0x15C
	bssSizeAt     = 0x160
	entryPointAt  = 0x164
)

// Kind distinguishes a DOL section's slot family.
type Kind int

const (
	// Text marks a section occupying one of the 18 text slots.
	Text Kind = iota
	// Data marks a section occupying one of the 11 data slots.
	Data
)

func (k Kind) String() string {
	if k == Text {
		return "text"
	}
	return "data"
}

// Section is one in-use DOL section, as enumerated from a Header.
type Section struct {
	Kind       Kind
	Slot       int
	FileOffset uint32
	LoadAddr   uint32
	Size       uint32
}

// FormatError is returned when DOL header bytes fail to parse or validate.
// It follows the same shape as go-macho's FormatError: a byte offset, a
// message, and the offending value, so callers can report precisely what
// was wrong without a chain of wrapped strings.
type FormatError struct {
	Off int
	Msg string
	Val interface{}
}

func (e *FormatError) Error() string {
	msg := e.Msg
	if e.Val != nil {
		msg += fmt.Sprintf(" %#v", e.Val)
	}
	return msg + fmt.Sprintf(" (at header offset %#x)", e.Off)
}

// Header is the in-memory representation of a 256-byte DOL header. Slots
// are fixed-size arrays, not growable slices: the invariant that a given
// section's position is stable across the life of the header is part of
// the on-disk contract, so it is never modeled with a heap-backed
// container.
type Header struct {
	textOffsets [MaxTextSections]uint32
	dataOffsets [MaxDataSections]uint32
	textAddrs   [MaxTextSections]uint32
	dataAddrs   [MaxDataSections]uint32
	textSizes   [MaxTextSections]uint32
	dataSizes   [MaxDataSections]uint32

	BSSAddr    uint32
	BSSSize    uint32
	EntryPoint uint32
}

// ParseHeader reads a 256-byte DOL header and validates it. It never
// mutates on failure: the returned error carries the whole reason, and no
// partially-built Header escapes.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, &FormatError{Off: 0, Msg: "DOL header shorter than 256 bytes", Val: len(b)}
	}

	h := &Header{}
	for i := 0; i < MaxTextSections; i++ {
		h.textOffsets[i] = bigendian.Uint32(b[textOffsetsAt+i*4:])
		h.textAddrs[i] = bigendian.Uint32(b[textAddrsAt+i*4:])
		h.textSizes[i] = bigendian.Uint32(b[textSizesAt+i*4:])
	}
	for i := 0; i < MaxDataSections; i++ {
		h.dataOffsets[i] = bigendian.Uint32(b[dataOffsetsAt+i*4:])
		h.dataAddrs[i] = bigendian.Uint32(b[dataAddrsAt+i*4:])
		h.dataSizes[i] = bigendian.Uint32(b[dataSizesAt+i*4:])
	}
	h.BSSAddr = bigendian.Uint32(b[bssAddrAt:])
	h.BSSSize = bigendian.Uint32(b[bssSizeAt:])
	h.EntryPoint = bigendian.Uint32(b[entryPointAt:])

	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// validate enforces spec invariants (a)-(c): in-use sections live past the
// header and at a plausible load address, and the entry point lies in the
// range real DOLs use.
func (h *Header) validate() error {
	if h.EntryPoint < minEntryPoint || h.EntryPoint > maxEntryPoint {
		return &FormatError{Off: entryPointAt, Msg: "entry point out of range", Val: h.EntryPoint}
	}
	for i := 0; i < MaxTextSections; i++ {
		if h.textSizes[i] == 0 {
			continue
		}
		if h.textOffsets[i] < minSectionFileOffset {
			return &FormatError{Off: textOffsetsAt + i*4, Msg: "text section file offset overlaps header", Val: h.textOffsets[i]}
		}
		if h.textAddrs[i] < minLoadAddress {
			return &FormatError{Off: textAddrsAt + i*4, Msg: "text section load address too low", Val: h.textAddrs[i]}
		}
	}
	for i := 0; i < MaxDataSections; i++ {
		if h.dataSizes[i] == 0 {
			continue
		}
		if h.dataOffsets[i] < minSectionFileOffset {
			return &FormatError{Off: dataOffsetsAt + i*4, Msg: "data section file offset overlaps header", Val: h.dataOffsets[i]}
		}
		if h.dataAddrs[i] < minLoadAddress {
			return &FormatError{Off: dataAddrsAt + i*4, Msg: "data section load address too low", Val: h.dataAddrs[i]}
		}
	}
	return nil
}

// Serialize writes the header back to its canonical 256-byte form.
// parse(serialize(h)) == h for any valid h.
func (h *Header) Serialize() []byte {
	b := make([]byte, HeaderSize)
	for i := 0; i < MaxTextSections; i++ {
		bigendian.PutUint32(b[textOffsetsAt+i*4:], h.textOffsets[i])
		bigendian.PutUint32(b[textAddrsAt+i*4:], h.textAddrs[i])
		bigendian.PutUint32(b[textSizesAt+i*4:], h.textSizes[i])
	}
	for i := 0; i < MaxDataSections; i++ {
		bigendian.PutUint32(b[dataOffsetsAt+i*4:], h.dataOffsets[i])
		bigendian.PutUint32(b[dataAddrsAt+i*4:], h.dataAddrs[i])
		bigendian.PutUint32(b[dataSizesAt+i*4:], h.dataSizes[i])
	}
	bigendian.PutUint32(b[bssAddrAt:], h.BSSAddr)
	bigendian.PutUint32(b[bssSizeAt:], h.BSSSize)
	bigendian.PutUint32(b[entryPointAt:], h.EntryPoint)
	return b
}

// Sections enumerates every in-use section, text slots before data slots,
// in slot order. A zero size marks a free slot and is skipped.
func (h *Header) Sections() []Section {
	var out []Section
	for i := 0; i < MaxTextSections; i++ {
		if h.textSizes[i] == 0 {
			continue
		}
		out = append(out, Section{Kind: Text, Slot: i, FileOffset: h.textOffsets[i], LoadAddr: h.textAddrs[i], Size: h.textSizes[i]})
	}
	for i := 0; i < MaxDataSections; i++ {
		if h.dataSizes[i] == 0 {
			continue
		}
		out = append(out, Section{Kind: Data, Slot: i, FileOffset: h.dataOffsets[i], LoadAddr: h.dataAddrs[i], Size: h.dataSizes[i]})
	}
	return out
}

// HighestAddress returns the maximum of load_addr+size over every in-use
// section and the BSS region, used to pick a payload's load address.
func (h *Header) HighestAddress() uint32 {
	var highest uint32
	for _, s := range h.Sections() {
		if end := s.LoadAddr + s.Size; end > highest {
			highest = end
		}
	}
	if h.BSSSize > 0 {
		if end := h.BSSAddr + h.BSSSize; end > highest {
			highest = end
		}
	}
	return highest
}

// AddSection inserts sec into the first free slot of the requested kind.
// It fails once all 18 text or 11 data slots are occupied, and the header
// is left unchanged on failure.
func (h *Header) AddSection(kind Kind, fileOffset, loadAddr, size uint32) (Section, error) {
	switch kind {
	case Text:
		for i := 0; i < MaxTextSections; i++ {
			if h.textSizes[i] != 0 {
				continue
			}
			h.textOffsets[i], h.textAddrs[i], h.textSizes[i] = fileOffset, loadAddr, size
			return Section{Kind: Text, Slot: i, FileOffset: fileOffset, LoadAddr: loadAddr, Size: size}, nil
		}
		return Section{}, fmt.Errorf("dol: no free text section slot (all %d in use)", MaxTextSections)
	case Data:
		for i := 0; i < MaxDataSections; i++ {
			if h.dataSizes[i] != 0 {
				continue
			}
			h.dataOffsets[i], h.dataAddrs[i], h.dataSizes[i] = fileOffset, loadAddr, size
			return Section{Kind: Data, Slot: i, FileOffset: fileOffset, LoadAddr: loadAddr, Size: size}, nil
		}
		return Section{}, fmt.Errorf("dol: no free data section slot (all %d in use)", MaxDataSections)
	default:
		return Section{}, fmt.Errorf("dol: unknown section kind %v", kind)
	}
}
