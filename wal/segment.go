package wal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/ColdToo/Cold2Sync/iooperator"
	"github.com/ColdToo/Cold2Sync/log"
)

const SegSuffix = ".SEG"

// segment is one file of the wal holding the records [first, next).
type segment struct {
	first   int64
	next    int64
	size    int64
	offsets []int64
	created time.Time
	io      iooperator.IoOperator
	closed  bool
}

func SegmentFileName(walDirPath string, first int64) string {
	return filepath.Join(walDirPath, fmt.Sprintf("%020d"+SegSuffix, first))
}

// listSegments returns the first index of every segment file in dir, sorted.
func listSegments(dir string) ([]int64, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var firsts []int64
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, SegSuffix) {
			continue
		}
		first, err := strconv.ParseInt(strings.TrimSuffix(name, SegSuffix), 10, 64)
		if err != nil {
			log.Warn("skip unrecognised segment file").Str(code.SegmentPath, name).Record()
			continue
		}
		firsts = append(firsts, first)
	}
	sort.Slice(firsts, func(i, j int) bool { return firsts[i] < firsts[j] })
	return firsts, nil
}

func createSegment(dir string, first int64, now time.Time) (*segment, error) {
	op, err := iooperator.NewFileIoOperator(SegmentFileName(dir, first))
	if err != nil {
		return nil, err
	}
	if err := op.Truncate(0); err != nil {
		_ = op.Close()
		return nil, err
	}
	return &segment{first: first, next: first, created: now, io: op}, nil
}

// openSegment scans an existing segment and rebuilds its record offsets.
// A torn or corrupt record in the tail segment is cut off; anywhere else it
// is reported as ErrInvalidCRC.
func openSegment(dir string, first int64, tail bool) (seg *segment, err error) {
	path := SegmentFileName(dir, first)
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	op, err := iooperator.NewFileIoOperator(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = op.Close()
		}
	}()

	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	seg = &segment{first: first, next: first, created: stat.ModTime(), io: op}
	r := bufio.NewReaderSize(fd, Block8)
	var offset int64
	for {
		n, scanErr := scanRecord(r, stat.Size()-offset, seg.next)
		if scanErr == nil {
			seg.offsets = append(seg.offsets, offset)
			offset += n
			seg.next++
			continue
		}
		if errors.Is(scanErr, io.EOF) && offset == stat.Size() {
			break
		}
		if !tail {
			return nil, fmt.Errorf("segment %s at offset %d: %w", path, offset, wrapCorrupt(scanErr))
		}

		log.Warn("truncate torn wal tail").
			Str(code.SegmentPath, path).
			Int64("offset", offset).
			Int64("dropped-bytes", stat.Size()-offset).
			Err(scanErr).
			Record()
		if err = op.Truncate(offset); err != nil {
			return nil, err
		}
		if err = op.Sync(); err != nil {
			return nil, err
		}
		break
	}
	seg.size = offset
	return seg, nil
}

// scanRecord reads the next record and returns its framed size. remain is
// the number of bytes left in the file; a header claiming more is torn.
func scanRecord(r io.Reader, remain int64, want int64) (int64, error) {
	header := make([]byte, RecordHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}
	h := decodeRecordHeader(header)
	n := recordSize(int(h.length))
	if n > remain {
		return 0, io.ErrUnexpectedEOF
	}
	body := make([]byte, h.length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, err
	}
	if !h.valid(header, body) {
		return 0, code.ErrInvalidCRC
	}
	if h.index != want {
		return 0, fmt.Errorf("%w: record index %d, want %d", code.ErrInvalidCRC, h.index, want)
	}
	return n, nil
}

func wrapCorrupt(err error) error {
	if errors.Is(err, code.ErrInvalidCRC) {
		return err
	}
	return fmt.Errorf("%w: %v", code.ErrInvalidCRC, err)
}

func (seg *segment) append(buf []byte, index int64, n int64) error {
	if index != seg.next {
		return fmt.Errorf("append index %d to segment expecting %d", index, seg.next)
	}
	if _, err := seg.io.Write(buf, seg.size); err != nil {
		// drop whatever part of the record made it to the file
		_ = seg.io.Truncate(seg.size)
		return err
	}
	seg.offsets = append(seg.offsets, seg.size)
	seg.size += n
	seg.next++
	return nil
}

// unappend drops the last record so its index can be written again.
func (seg *segment) unappend() error {
	if seg.empty() {
		return nil
	}
	last := seg.offsets[len(seg.offsets)-1]
	if err := seg.io.Truncate(last); err != nil {
		return err
	}
	seg.offsets = seg.offsets[:len(seg.offsets)-1]
	seg.size = last
	seg.next--
	return nil
}

func (seg *segment) read(index int64) ([]byte, error) {
	offset := seg.offsets[index-seg.first]
	header := make([]byte, RecordHeaderSize)
	if _, err := seg.io.Read(header, offset); err != nil {
		return nil, err
	}
	h := decodeRecordHeader(header)
	body := make([]byte, h.length)
	if _, err := seg.io.Read(body, offset+RecordHeaderSize); err != nil {
		return nil, err
	}
	if !h.valid(header, body) || h.index != index {
		return nil, fmt.Errorf("%w: segment %s index %d", code.ErrInvalidCRC, seg.io.Name(), index)
	}
	return body, nil
}

func (seg *segment) empty() bool {
	return seg.next == seg.first
}

func (seg *segment) Sync() error {
	if seg.closed {
		return nil
	}
	return seg.io.Sync()
}

func (seg *segment) Remove() error {
	if seg.closed {
		return os.Remove(seg.io.Name())
	}
	seg.closed = true
	return seg.io.Delete()
}

func (seg *segment) Close() error {
	if seg.closed {
		return nil
	}
	seg.closed = true
	return seg.io.Close()
}

// SegmentInfo describes one segment file for inspection.
type SegmentInfo struct {
	Path     string
	First    int64
	Next     int64
	Size     int64
	Created  time.Time
	Obsolete bool
}
