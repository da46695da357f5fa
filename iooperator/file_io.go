package iooperator

import "os"

// FileIoOperator represents using standard file I/O.
type FileIoOperator struct {
	fd *os.File
}

func NewFileIoOperator(fName string) (IoOperator, error) {
	file, err := openFile(fName)
	if err != nil {
		return nil, err
	}
	return &FileIoOperator{fd: file}, nil
}

func (fio *FileIoOperator) Write(b []byte, offset int64) (int, error) {
	n, err := fio.fd.WriteAt(b, offset)
	if err == nil && n != len(b) {
		return n, ErrWriteSizeNotEqual
	}
	return n, err
}

func (fio *FileIoOperator) Read(b []byte, offset int64) (int, error) {
	return fio.fd.ReadAt(b, offset)
}

func (fio *FileIoOperator) Size() (int64, error) {
	stat, err := fio.fd.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

func (fio *FileIoOperator) Truncate(size int64) error {
	return fio.fd.Truncate(size)
}

func (fio *FileIoOperator) Sync() error {
	return datasync(fio.fd)
}

func (fio *FileIoOperator) Close() error {
	return fio.fd.Close()
}

func (fio *FileIoOperator) Delete() error {
	if err := fio.fd.Close(); err != nil {
		return err
	}
	return os.Remove(fio.fd.Name())
}

func (fio *FileIoOperator) Name() string {
	return fio.fd.Name()
}
