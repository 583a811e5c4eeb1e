package hook

import "errors"

// DefaultPoolSize is the fixed trampoline pool capacity per spec.md §4.7.
const DefaultPoolSize = 16 * 1024

// PoolAlign is the alignment required of the pool's base address.
const PoolAlign = 32

// allocAlign is the alignment granularity of individual allocations within
// the pool.
const allocAlign = 16

// jumpBackReserve is the space reserved at the end of every trampoline
// for the jump back to the original function, sized for the worst case
// (a 4-instruction absolute branch).
const jumpBackReserve = 16

// ErrPoolExhausted is returned when a trampoline allocation does not fit
// in the remaining pool space. The pool never reclaims space, so this
// becomes permanent once the pool fills, per spec.md §9 Open Question 3.
var ErrPoolExhausted = errors.New("hook: trampoline pool exhausted")

// Pool is a bump allocator over a fixed-size region of Memory reserved
// for trampolines. It never reclaims space.
type Pool struct {
	mem    Memory
	base   uint32
	size   uint32
	cursor uint32
}

// NewPool creates a trampoline pool backed by mem, spanning
// [base, base+size). base should be 32-byte aligned; size defaults to
// DefaultPoolSize in typical use but is caller-specified so tests can use
// smaller pools to exercise exhaustion.
func NewPool(mem Memory, base, size uint32) *Pool {
	return &Pool{mem: mem, base: base, size: size}
}

// Used reports how many bytes of the pool have been bump-allocated so far.
func (p *Pool) Used() uint32 { return p.cursor }

// Remaining reports how many bytes are left before the pool is exhausted.
func (p *Pool) Remaining() uint32 { return p.size - p.cursor }

// alloc reserves need bytes 16-byte aligned and returns the absolute
// address of the allocation, or ErrPoolExhausted if it does not fit.
func (p *Pool) alloc(need uint32) (uint32, error) {
	aligned := alignUp32(p.cursor, allocAlign)
	if aligned+need > p.size {
		return 0, ErrPoolExhausted
	}
	addr := p.base + aligned
	p.cursor = aligned + need
	return addr, nil
}

func alignUp32(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}

// BuildTrampoline allocates and writes a trampoline for a function whose
// prologue at target will be overwritten with a patch of patchLen bytes.
// The trampoline holds the patchLen bytes stolen from target, followed by
// a jump back to target+patchLen (near where possible, absolute
// otherwise). It returns the trampoline's entry address.
//
// Per spec.md §4.7, each allocation reserves patchLen+16 bytes regardless
// of which jump-back form is actually used, and the whole trampoline is
// made callable with a single cache sync after it is fully written.
func BuildTrampoline(m Memory, pool *Pool, target uint32, patchLen uint32) (uint32, error) {
	stolen, err := m.ReadAt(target, int(patchLen))
	if err != nil {
		return 0, err
	}

	need := patchLen + jumpBackReserve
	addr, err := pool.alloc(need)
	if err != nil {
		return 0, err
	}

	returnAddr := target + patchLen
	jumpBackAt := addr + patchLen

	body := make([]byte, need)
	copy(body, stolen)
	if jb, ok := EncodeBranchBytes(jumpBackAt, returnAddr, false); ok {
		copy(body[patchLen:], jb)
	} else {
		copy(body[patchLen:], EncodeAbsoluteBytes(returnAddr, false))
	}

	withInterruptsMasked(m, func() {
		if err = m.WriteAt(addr, body); err != nil {
			return
		}
		CacheSync(m, addr, need)
	})
	if err != nil {
		return 0, err
	}
	return addr, nil
}
