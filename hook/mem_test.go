package hook

import "testing"

func TestSimMemoryReadWriteRoundTrip(t *testing.T) {
	m := NewSimMemory(0x80000000, 0x1000)
	withInterruptsMasked(m, func() {
		if err := m.WriteAt(0x80000010, []byte{1, 2, 3, 4}); err != nil {
			t.Fatalf("WriteAt: %v", err)
		}
	})

	got, err := m.ReadAt(0x80000010, 4)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 || got[3] != 4 {
		t.Errorf("ReadAt = %v, want [1 2 3 4]", got)
	}
}

func TestSimMemoryWriteRejectedWithoutMask(t *testing.T) {
	m := NewSimMemory(0x80000000, 0x1000)
	if err := m.WriteAt(0x80000010, []byte{1}); err == nil {
		t.Fatal("WriteAt succeeded with interrupts unmasked")
	}
}

func TestSimMemoryMaskRestoreNesting(t *testing.T) {
	m := NewSimMemory(0x80000000, 0x1000)
	if m.Masked() {
		t.Fatal("memory starts masked")
	}
	saved := m.MaskInterrupts()
	if !m.Masked() {
		t.Fatal("MaskInterrupts did not mask")
	}
	m.RestoreInterrupts(saved)
	if m.Masked() {
		t.Fatal("RestoreInterrupts did not restore unmasked state")
	}
}

func TestSimMemoryOutOfBounds(t *testing.T) {
	m := NewSimMemory(0x80000000, 0x100)
	if _, err := m.ReadAt(0x80000000, 0x200); err == nil {
		t.Fatal("ReadAt succeeded past the simulated region")
	}
	if _, err := m.ReadAt(0x70000000, 4); err == nil {
		t.Fatal("ReadAt succeeded below the simulated base")
	}
}

func TestCacheSyncCoversAlignedSpan(t *testing.T) {
	m := NewSimMemory(0x80000000, 0x1000)
	// addr 0x80000010, length 40 spans two 32-byte lines: 0x80000000 and 0x80000020.
	CacheSync(m, 0x80000010, 40)

	if m.FlushCount(0x80000000) != 1 || m.FlushCount(0x80000020) != 1 {
		t.Errorf("unexpected flush counts: %d, %d", m.FlushCount(0x80000000), m.FlushCount(0x80000020))
	}
	if m.InvalidateCount(0x80000000) != 1 || m.InvalidateCount(0x80000020) != 1 {
		t.Errorf("unexpected invalidate counts: %d, %d", m.InvalidateCount(0x80000000), m.InvalidateCount(0x80000020))
	}
}

func TestWithInterruptsMaskedRestoresOnPanicRecoveredByCaller(t *testing.T) {
	m := NewSimMemory(0x80000000, 0x1000)
	func() {
		defer func() { recover() }()
		withInterruptsMasked(m, func() {
			panic("boom")
		})
	}()
	if m.Masked() {
		t.Fatal("interrupts left masked after panic unwound the critical section")
	}
}
