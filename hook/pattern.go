package hook

// FindPattern scans region for the byte sequence pattern, where mask[i]
// == 'x' requires an exact match at that position and mask[i] == '?'
// (or anything other than 'x') accepts any byte. It returns the offset
// of the first match, or ok=false if none exists. mask must be the same
// length as pattern.
func FindPattern(region, pattern []byte, mask string) (offset int, ok bool) {
	n := len(pattern)
	if n == 0 || n != len(mask) || n > len(region) {
		return 0, false
	}

	for start := 0; start+n <= len(region); start++ {
		if matchAt(region[start:start+n], pattern, mask) {
			return start, true
		}
	}
	return 0, false
}

func matchAt(window, pattern []byte, mask string) bool {
	for i := 0; i < len(pattern); i++ {
		if mask[i] == 'x' && window[i] != pattern[i] {
			return false
		}
	}
	return true
}

// FindPatternAt is FindPattern over a Memory-backed region of size bytes
// starting at start, returning an absolute address instead of an offset.
func FindPatternAt(m Memory, start, size uint32, pattern []byte, mask string) (addr uint32, ok bool) {
	region, err := m.ReadAt(start, int(size))
	if err != nil {
		return 0, false
	}
	off, found := FindPattern(region, pattern, mask)
	if !found {
		return 0, false
	}
	return start + uint32(off), true
}
