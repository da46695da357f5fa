//go:build !unix

package wal

import "os"

// lockFile only creates the lock file; platforms without flock get no
// cross-process exclusion.
func lockFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
}

func unlockFile(f *os.File) error {
	return f.Close()
}
