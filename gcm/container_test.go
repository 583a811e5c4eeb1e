package gcm

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ApfelTeeSaft/dolhook-go/bigendian"
	"github.com/ApfelTeeSaft/dolhook-go/dol"
)

// sampleImage builds a minimal GCM image with a real embedded DOL at
// dolOffset and padding out to fstOffset.
func sampleImage(t *testing.T, dolOffset, fstOffset uint32) []byte {
	t.Helper()

	dolHeader := make([]byte, dol.HeaderSize)
	bigendian.PutUint32(dolHeader[0x00:], 0x100) // text[0] file offset
	bigendian.PutUint32(dolHeader[0x74:], 0x80003100)
	bigendian.PutUint32(dolHeader[0xE8:], 0x20)
	bigendian.PutUint32(dolHeader[0x164:], 0x80003100) // entry point
	dolBytes := append(dolHeader, bytes.Repeat([]byte{0xCC}, 0x20)...)

	image := make([]byte, fstOffset+0x1000)
	copy(image[:HeaderSize], sampleHeaderBytes(dolOffset, fstOffset))
	copy(image[dolOffset:], dolBytes)
	return image
}

func TestContainerReadDOL(t *testing.T) {
	c, err := Load(sampleImage(t, 0x2440, 0x100000))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	d, err := c.ReadDOL()
	if err != nil {
		t.Fatalf("ReadDOL: %v", err)
	}
	if d.Header.EntryPoint != 0x80003100 {
		t.Errorf("EntryPoint = %#x, want %#x", d.Header.EntryPoint, 0x80003100)
	}
}

func TestContainerWriteDOLInPlace(t *testing.T) {
	c, err := Load(sampleImage(t, 0x2440, 0x100000))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, err := c.ReadDOL()
	if err != nil {
		t.Fatalf("ReadDOL: %v", err)
	}
	d.Header.EntryPoint = 0x80400000

	if !c.WriteDOLInPlace(d) {
		t.Fatal("WriteDOLInPlace: expected success, DOL fits the gap")
	}
	if c.Header.DOLOffset != 0x2440 {
		t.Errorf("DOLOffset changed by in-place write: %#x", c.Header.DOLOffset)
	}

	reread, err := c.ReadDOL()
	if err != nil {
		t.Fatalf("ReadDOL after write: %v", err)
	}
	if reread.Header.EntryPoint != 0x80400000 {
		t.Errorf("EntryPoint after in-place write = %#x, want %#x", reread.Header.EntryPoint, 0x80400000)
	}
}

func TestContainerWriteDOLInPlaceTooLarge(t *testing.T) {
	c, err := Load(sampleImage(t, 0x2440, 0x2440+0x100)) // tiny gap
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, err := c.ReadDOL()
	if err != nil {
		t.Fatalf("ReadDOL: %v", err)
	}
	if _, err := d.InjectPayload(bytes.Repeat([]byte{1}, 0x400), 0x80500000, dol.Text); err != nil {
		t.Fatalf("InjectPayload: %v", err)
	}

	if c.WriteDOLInPlace(d) {
		t.Fatal("WriteDOLInPlace: expected failure, patched DOL no longer fits")
	}
}

func TestContainerRelocateDOL(t *testing.T) {
	c, err := Load(sampleImage(t, 0x2440, 0x100000))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	originalLen := len(c.data)
	d, err := c.ReadDOL()
	if err != nil {
		t.Fatalf("ReadDOL: %v", err)
	}

	c.RelocateDOL(d)

	if c.Header.DOLOffset < uint32(originalLen) {
		t.Errorf("DOLOffset %#x should be past the original image length %#x", c.Header.DOLOffset, originalLen)
	}
	if c.Header.DOLOffset%relocationAlign != 0 {
		t.Errorf("DOLOffset %#x not aligned to %#x", c.Header.DOLOffset, relocationAlign)
	}

	reread, err := c.ReadDOL()
	if err != nil {
		t.Fatalf("ReadDOL after relocate: %v", err)
	}
	if reread.Header.EntryPoint != d.Header.EntryPoint {
		t.Errorf("relocated DOL entry point mismatch: got %#x want %#x", reread.Header.EntryPoint, d.Header.EntryPoint)
	}
}

func TestBackupDoesNotOverwriteExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.iso")
	backupPath := path + ".bak"

	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(backupPath, []byte("existing backup"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Backup(path); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	got, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "existing backup" {
		t.Errorf("Backup overwrote an existing .bak file")
	}
}

func TestBackupCreatesSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.iso")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Backup(path); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	got, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("backup contents = %q, want %q", got, "original")
	}
}
