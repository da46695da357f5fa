package utils

import (
	"os"
)

// PathExist check if the directory or file exists.
func PathExist(path string) bool {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false
	}
	return true
}

// SyncDir fsyncs a directory so that entries created or removed in it are durable.
func SyncDir(dir string) error {
	fd, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer fd.Close()
	return fd.Sync()
}
