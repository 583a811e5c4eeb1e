package hook

import "github.com/ApfelTeeSaft/dolhook-go/bigendian"

// Branch encoding for the PowerPC32 "b"/"bl" instruction family and the
// 4-instruction absolute long-branch sequence used when a target is out
// of the near branch's ±32 MiB reach, per spec.md §4.6. Grounded on
// dh_make_branch_imm / dh_write_branch_abs in the original runtime.

const (
	branchOpcode  = 0x48000000
	branchFieldLo = 0x03FFFFFC
	branchOpMask  = 0xFC000000

	// nearBranchRange is the signed displacement range the 26-bit LI
	// field can express: [-2^25, 2^25).
	nearBranchRange = 1 << 25
)

// EncodeBranch returns the 4-byte "b"/"bl" instruction that jumps from
// from to to, or 0 if the displacement does not fit the near branch's
// ±32 MiB range (0 is not a valid instruction encoding here, since bits
// 31-26 would have to be zero, so it doubles as the out-of-range
// sentinel per spec.md §4.6).
func EncodeBranch(from, to uint32, link bool) uint32 {
	offset := int64(int32(to)) - int64(int32(from))
	if offset < -nearBranchRange || offset >= nearBranchRange {
		return 0
	}
	insn := uint32(branchOpcode) | (uint32(offset) & branchFieldLo)
	if link {
		insn |= 1
	}
	return insn
}

// DecodeBranch extracts the signed displacement and link bit from a
// near-branch instruction. ok is false if insn is not a branch
// instruction (opcode bits 31-26 != 0x12).
func DecodeBranch(insn uint32) (offset int32, link bool, ok bool) {
	if insn&branchOpMask != branchOpcode {
		return 0, false, false
	}
	raw := insn & branchFieldLo
	if raw&0x02000000 != 0 {
		raw |= 0xFC000000 // sign-extend the 26-bit field
	}
	return int32(raw), insn&1 != 0, true
}

// EncodeAbsolute returns the 4 instructions (lis r12,hi16(to); ori
// r12,r12,lo16(to); mtctr r12; bctr[l]) used to reach any 32-bit address
// regardless of displacement, per spec.md §4.6.
func EncodeAbsolute(to uint32, link bool) [4]uint32 {
	lis := uint32(0x3D800000) | (to >> 16)
	ori := uint32(0x618C0000) | (to & 0xFFFF)
	mtctr := uint32(0x7D8903A6)
	bctr := uint32(0x4E800420)
	if link {
		bctr |= 1
	}
	return [4]uint32{lis, ori, mtctr, bctr}
}

// EncodeAbsoluteBytes is EncodeAbsolute serialized big-endian, ready to be
// written to memory.
func EncodeAbsoluteBytes(to uint32, link bool) []byte {
	insns := EncodeAbsolute(to, link)
	out := make([]byte, 16)
	for i, insn := range insns {
		bigendian.PutUint32(out[i*4:], insn)
	}
	return out
}

// EncodeBranchBytes is EncodeBranch serialized big-endian. ok is false
// under the same condition as EncodeBranch.
func EncodeBranchBytes(from, to uint32, link bool) (out []byte, ok bool) {
	insn := EncodeBranch(from, to, link)
	if insn == 0 {
		return nil, false
	}
	out = make([]byte, 4)
	bigendian.PutUint32(out, insn)
	return out, true
}
