package code

import "errors"

var (
	ErrClosed          = errors.New("the wal is closed")
	ErrInvalidCRC      = errors.New("invalid crc, the data may be corrupted")
	ErrValueTooLarge   = errors.New("the data size can't larger than segment size")
	ErrWalLocked       = errors.New("wal directory is locked by another process")
	ErrIncompatibleWal = errors.New("wal format version is incompatible")
)
