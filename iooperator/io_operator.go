package iooperator

import (
	"errors"
	"os"
)

// ErrWriteSizeNotEqual write size is not equal to buffer size.
var ErrWriteSizeNotEqual = errors.New("iooperator: write size is not equal to buffer size")

// FilePerm default permission of the newly created file.
const FilePerm = 0644

type IoOperator interface {
	Write(b []byte, offset int64) (int, error)

	Read(b []byte, offset int64) (int, error)

	Size() (int64, error)

	Truncate(size int64) error

	Sync() error

	Close() error

	Delete() error

	Name() string
}

func openFile(fName string) (*os.File, error) {
	return os.OpenFile(fName, os.O_CREATE|os.O_RDWR, FilePerm)
}
