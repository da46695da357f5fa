//go:build !linux

package iooperator

import "os"

func datasync(fd *os.File) error {
	return fd.Sync()
}
