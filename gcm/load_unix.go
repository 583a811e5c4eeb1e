//go:build unix

package gcm

import (
	"os"

	"golang.org/x/sys/unix"
)

// readImage maps path read-only and copies it into owned memory. Disc
// images run to hundreds of megabytes; mmap lets the kernel page the file
// in on demand instead of io.ReadAll's repeated buffer growth, while the
// mapping itself is torn down immediately since every later Container
// operation needs a plain, resizable byte slice it fully owns.
func readImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, nil
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		// Fall back to a plain read; some filesystems (and CI sandboxes)
		// disallow mmap even for regular files.
		return os.ReadFile(path)
	}
	defer unix.Munmap(mapped)

	out := make([]byte, size)
	copy(out, mapped)
	return out, nil
}
