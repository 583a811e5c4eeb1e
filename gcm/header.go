// Package gcm models a GameCube disc image (GCM): a fixed 0x2440-byte
// header pointing at an embedded DOL executable and a file system table
// (FST), followed by the rest of the disc image.
package gcm

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ApfelTeeSaft/dolhook-go/bigendian"
)

const (
	// HeaderSize is the fixed size, in bytes, of the GCM header prefix.
	HeaderSize = 0x2440

	gameCodeAt       = 0x00
	gameCodeLen      = 6
	makerCodeAt      = 0x06
	makerCodeLen     = 2
	discIDAt         = 0x08
	versionAt        = 0x09
	audioStreamingAt = 0x0A
	streamBufSizeAt  = 0x0B
	gameNameAt       = 0x20
	gameNameLen      = 0x3E0
	dolOffsetAt      = 0x420
	fstOffsetAt      = 0x424
	fstSizeAt        = 0x428
	fstMaxSizeAt     = 0x42C

	maxDiscAddress = 0x10000000
)

// FormatError is returned when GCM header bytes fail to parse or validate.
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

// Header is the in-memory representation of a GCM disc image header.
type Header struct {
	GameCode  [gameCodeLen]byte
	MakerCode [makerCodeLen]byte
	DiscID    byte
	Version   byte

	AudioStreaming byte
	StreamBufSize  byte

	GameName [gameNameLen]byte

	DOLOffset  uint32
	FSTOffset  uint32
	FSTSize    uint32
	FSTMaxSize uint32
}

// ParseHeader reads the fixed 0x2440-byte GCM header prefix and validates
// it.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, &FormatError{Off: 0, Msg: "GCM header shorter than 0x2440 bytes", Val: len(b)}
	}

	h := &Header{}
	copy(h.GameCode[:], b[gameCodeAt:gameCodeAt+gameCodeLen])
	copy(h.MakerCode[:], b[makerCodeAt:makerCodeAt+makerCodeLen])
	h.DiscID = b[discIDAt]
	h.Version = b[versionAt]
	h.AudioStreaming = b[audioStreamingAt]
	h.StreamBufSize = b[streamBufSizeAt]
	copy(h.GameName[:], b[gameNameAt:gameNameAt+gameNameLen])

	h.DOLOffset = bigendian.Uint32(b[dolOffsetAt:])
	h.FSTOffset = bigendian.Uint32(b[fstOffsetAt:])
	h.FSTSize = bigendian.Uint32(b[fstSizeAt:])
	h.FSTMaxSize = bigendian.Uint32(b[fstMaxSizeAt:])

	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) validate() error {
	if h.GameCode[0] == 0 {
		return &FormatError{Off: gameCodeAt, Msg: "game code is empty", Val: h.GameCode}
	}
	if h.DOLOffset < HeaderSize || h.DOLOffset >= maxDiscAddress {
		return &FormatError{Off: dolOffsetAt, Msg: "DOL offset out of range", Val: h.DOLOffset}
	}
	if h.FSTOffset < h.DOLOffset || h.FSTOffset >= maxDiscAddress {
		return &FormatError{Off: fstOffsetAt, Msg: "FST offset out of range", Val: h.FSTOffset}
	}
	return nil
}

// Serialize writes the header back to its canonical 0x2440-byte form.
func (h *Header) Serialize() []byte {
	b := make([]byte, HeaderSize)
	copy(b[gameCodeAt:], h.GameCode[:])
	copy(b[makerCodeAt:], h.MakerCode[:])
	b[discIDAt] = h.DiscID
	b[versionAt] = h.Version
	b[audioStreamingAt] = h.AudioStreaming
	b[streamBufSizeAt] = h.StreamBufSize
	copy(b[gameNameAt:], h.GameName[:])

	bigendian.PutUint32(b[dolOffsetAt:], h.DOLOffset)
	bigendian.PutUint32(b[fstOffsetAt:], h.FSTOffset)
	bigendian.PutUint32(b[fstSizeAt:], h.FSTSize)
	bigendian.PutUint32(b[fstMaxSizeAt:], h.FSTMaxSize)
	return b
}

// GameNameString returns the NUL-terminated game name as a string.
func (h *Header) GameNameString() string {
	if i := bytes.IndexByte(h.GameName[:], 0); i >= 0 {
		return string(h.GameName[:i])
	}
	return string(h.GameName[:])
}

// SetGameID overwrites the 6-byte game code (and, with any bytes of id past
// the sixth, the 2-byte maker code) from a human-supplied override string
// such as the patcher's --id flag. Short overrides only touch as many
// leading bytes as were given.
func (h *Header) SetGameID(id string) {
	n := copy(h.GameCode[:], id)
	if len(id) > n {
		copy(h.MakerCode[:], id[n:])
	}
}

// Summary renders the same identification block the original DolHook
// patcher printed at startup (GCMHeader::format).
func (h *Header) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "GCM Header:\n")
	fmt.Fprintf(&b, "  Game: %s\n", h.GameNameString())
	fmt.Fprintf(&b, "  Code: %s\n", string(h.GameCode[:4]))
	fmt.Fprintf(&b, "  Maker: %s\n", string(h.MakerCode[:]))
	fmt.Fprintf(&b, "  DOL Offset: %#08x\n", h.DOLOffset)
	fmt.Fprintf(&b, "  FST Offset: %#08x\n", h.FSTOffset)
	fmt.Fprintf(&b, "  FST Size: %#08x\n", h.FSTSize)
	return b.String()
}
