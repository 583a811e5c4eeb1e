//go:build !unix

package gcm

import "os"

// readImage reads path in its entirety. Non-unix targets have no portable
// mmap story through golang.org/x/sys, so this is a plain slurp.
func readImage(path string) ([]byte, error) {
	return os.ReadFile(path)
}
