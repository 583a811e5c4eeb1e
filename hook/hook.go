package hook

import "errors"

var (
	// ErrNilAddress is returned when a Descriptor's Target or Replacement
	// address is zero.
	ErrNilAddress = errors.New("hook: target and replacement addresses must be non-zero")
	// ErrAlreadyArmed is returned by Install on a Descriptor that is
	// already installed.
	ErrAlreadyArmed = errors.New("hook: descriptor already installed")
	// ErrNotArmed is returned by Remove on a Descriptor that is not
	// currently installed.
	ErrNotArmed = errors.New("hook: descriptor is not installed")
	// ErrUnsafe is reserved for a prologue-safety check (is the stolen
	// instruction span itself a branch, making relocation unsound) that
	// is not implemented yet. No code path returns it today; see
	// DESIGN.md.
	ErrUnsafe = errors.New("hook: target prologue is unsafe to relocate")
)

// state is a Descriptor's install state.
type state int

const (
	uninitialized state = iota
	armed
)

// Descriptor is one inline hook: a target function address, a
// replacement to redirect it to, and the bookkeeping needed to undo the
// patch later. Per spec.md §4.8, patch_len is 4 bytes for a near branch
// and 16 bytes for the absolute long-branch sequence.
type Descriptor struct {
	Target      uint32
	Replacement uint32
	Trampoline  uint32

	saved    [16]byte
	PatchLen uint32
	state    state
}

// Installed reports whether the hook is currently active.
func (d *Descriptor) Installed() bool { return d.state == armed }

// Install overwrites the prologue at d.Target with a branch to
// d.Replacement, after saving the original bytes and building a
// trampoline that preserves them plus a jump back to the rest of the
// original function. It chooses a near branch when the displacement fits
// ±32 MiB, falling back to the 16-byte absolute sequence otherwise.
func Install(m Memory, pool *Pool, d *Descriptor) error {
	if d.Target == 0 || d.Replacement == 0 {
		return ErrNilAddress
	}
	if d.state == armed {
		return ErrAlreadyArmed
	}

	offset := int64(int32(d.Replacement)) - int64(int32(d.Target))
	near := offset >= -nearBranchRange && offset < nearBranchRange
	patchLen := uint32(16)
	if near {
		patchLen = 4
	}

	// Step 3 of spec.md §4.8 always saves 16 bytes regardless of which
	// strategy is chosen, so Remove can restore a near-hooked target even
	// if it is later re-armed as a far hook.
	saved, err := m.ReadAt(d.Target, 16)
	if err != nil {
		return err
	}

	trampoline, err := BuildTrampoline(m, pool, d.Target, patchLen)
	if err != nil {
		return err
	}

	var patch []byte
	if near {
		patch, _ = EncodeBranchBytes(d.Target, d.Replacement, false)
	} else {
		patch = EncodeAbsoluteBytes(d.Replacement, false)
	}

	var writeErr error
	withInterruptsMasked(m, func() {
		if writeErr = m.WriteAt(d.Target, patch); writeErr != nil {
			return
		}
		CacheSync(m, d.Target, patchLen)
	})
	if writeErr != nil {
		return writeErr
	}

	copy(d.saved[:], saved)
	d.PatchLen = patchLen
	d.Trampoline = trampoline
	d.state = armed
	return nil
}

// Remove restores the bytes saved at Install time. The trampoline
// allocation itself is not reclaimed (see Pool), but the hook becomes
// inert and can be reinstalled via Install.
func Remove(m Memory, d *Descriptor) error {
	if d.state != armed {
		return ErrNotArmed
	}

	var writeErr error
	withInterruptsMasked(m, func() {
		if writeErr = m.WriteAt(d.Target, d.saved[:d.PatchLen]); writeErr != nil {
			return
		}
		CacheSync(m, d.Target, d.PatchLen)
	})
	if writeErr != nil {
		return writeErr
	}

	d.state = uninitialized
	return nil
}
