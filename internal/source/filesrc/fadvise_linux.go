//go:build linux
// +build linux

package filesrc

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential tells the kernel to read ahead aggressively.
func adviseSequential(f *os.File) error {
	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
