package patch

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ApfelTeeSaft/dolhook-go/bigendian"
	"github.com/ApfelTeeSaft/dolhook-go/dol"
	"github.com/ApfelTeeSaft/dolhook-go/gcm"
	"github.com/ApfelTeeSaft/dolhook-go/symtab"
)

// defaultLoadAddr is the floor the injected payload's load address is
// raised to when the DOL's existing highest address falls below it.
const defaultLoadAddr = 0x80400000

// originalEntrySentinel is the placeholder value a payload build leaves
// in its "original entry" slot, to be overwritten with the real value at
// patch time.
const originalEntrySentinel = 0x80003100

// Options configures one patching run. It is a plain struct, not a
// functional-options chain: every field is meaningful on its own and the
// CLI maps flags onto it directly.
type Options struct {
	InputPath  string
	OutputPath string // if empty, the input is backed up and overwritten
	GameID     string // if non-empty, overrides the disc's game code

	PayloadPath   string // defaults to payload/payload.bin
	SymbolMapPath string // defaults to payload/payload.sym

	Logger *Logger

	DryRun   bool
	PrintDOL bool
}

func (o *Options) logger() *Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return NewLogger(nil, LevelError)
}

func (o *Options) payloadPath() string {
	if o.PayloadPath != "" {
		return o.PayloadPath
	}
	return filepath.Join("payload", "payload.bin")
}

func (o *Options) symbolMapPath() string {
	if o.SymbolMapPath != "" {
		return o.SymbolMapPath
	}
	return filepath.Join("payload", "payload.sym")
}

// Run executes the full patch algorithm against o, per spec.md §4.4.
func Run(o *Options) error {
	log := o.logger()

	image, err := gcm.Open(o.InputPath)
	if err != nil {
		return fmt.Errorf("patch: loading image: %w", err)
	}
	if o.GameID != "" {
		image.Header.SetGameID(o.GameID)
	}
	log.Infof("%s", image.Header.Summary())

	d, err := image.ReadDOL()
	if err != nil {
		return fmt.Errorf("patch: reading embedded DOL: %w", err)
	}
	if o.PrintDOL {
		log.Printf("%s", d.FormatTable())
	} else {
		log.Debugf("%s", d.FormatTable())
	}

	payload, err := os.ReadFile(o.payloadPath())
	if err != nil {
		return fmt.Errorf("patch: reading payload: %w", err)
	}

	symbols, malformed, symErr := symtab.Load(o.symbolMapPath())
	for _, me := range malformed {
		entry := me
		log.Errorf("symbol map: %v", &entry)
	}
	switch {
	case errors.Is(symErr, symtab.ErrNotFound), errors.Is(symErr, symtab.ErrEmpty):
		log.Errorf("symbol map: %v; using defaults", symErr)
	case symErr != nil:
		return fmt.Errorf("patch: loading symbol map: %w", symErr)
	}

	entry, err := symbols.Entry()
	if err != nil {
		return fmt.Errorf("patch: %w", err)
	}

	originalEntry := d.Header.EntryPoint
	log.Debugf("original entry point: %#08x", originalEntry)

	payload = stampOriginalEntry(payload, originalEntry, log)

	if o.DryRun {
		log.Infof("dry run: stopping before payload injection")
		return nil
	}

	loadAddr := alignUp32(d.Header.HighestAddress(), 256)
	if loadAddr < defaultLoadAddr {
		loadAddr = defaultLoadAddr
	}

	sec, err := d.InjectPayload(payload, loadAddr, dol.Text)
	if err != nil {
		return fmt.Errorf("patch: injecting payload: %w", err)
	}
	log.Debugf("injected payload: file=%#08x addr=%#08x size=%#08x", sec.FileOffset, sec.LoadAddr, sec.Size)

	d.Header.EntryPoint = entry

	outputPath := o.OutputPath
	if outputPath == "" {
		if err := gcm.Backup(o.InputPath); err != nil {
			return fmt.Errorf("patch: creating backup: %w", err)
		}
		outputPath = o.InputPath
	}

	if !image.WriteDOLInPlace(d) {
		log.Infof("patched DOL no longer fits in place; relocating")
		image.RelocateDOL(d)
	}

	if err := image.Save(outputPath); err != nil {
		return fmt.Errorf("patch: writing image: %w", err)
	}
	log.Infof("wrote patched image to %s", outputPath)
	return nil
}

// stampOriginalEntry scans payload, word by word, for the sentinel value
// 0x80003100 and overwrites it with originalEntry. If no sentinel slot is
// found, it appends one 4-byte slot and warns, per spec.md §4.4 step 6.
// Exactly one stamping occurs either way.
func stampOriginalEntry(payload []byte, originalEntry uint32, log *Logger) []byte {
	sentinel := make([]byte, 4)
	bigendian.PutUint32(sentinel, originalEntrySentinel)

	for i := 0; i+4 <= len(payload); i += 4 {
		if bytes.Equal(payload[i:i+4], sentinel) {
			out := make([]byte, len(payload))
			copy(out, payload)
			bigendian.PutUint32(out[i:], originalEntry)
			return out
		}
	}

	log.Errorf("no original-entry sentinel found in payload; appending a slot")
	out := make([]byte, len(payload)+4)
	copy(out, payload)
	bigendian.PutUint32(out[len(payload):], originalEntry)
	return out
}

func alignUp32(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}
