//go:build linux

package iooperator

import (
	"os"

	"golang.org/x/sys/unix"
)

// datasync flushes file data without forcing a metadata-only update.
func datasync(fd *os.File) error {
	return unix.Fdatasync(int(fd.Fd()))
}
