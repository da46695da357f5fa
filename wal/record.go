package wal

import (
	"encoding/binary"
	"hash/crc32"
)

// EncodeRecord frames one wal record.
// +-------+----------+---------+-----------+
// |  crc  |  length  |  index  |   data    |
// +-------+----------+---------+-----------+
// |----------HEADER------------|---BODY----|
//
//	|---------------crc check--------------|
const (
	Crc32Size        = 4
	LengthSize       = 4
	IndexSize        = 8
	RecordHeaderSize = Crc32Size + LengthSize + IndexSize
)

// Record is one entry read back from the wal.
type Record struct {
	Index int64
	Data  []byte
}

type recordHeader struct {
	crc    uint32
	length uint32
	index  int64
}

// encodeRecord appends the framed record to buf and returns the result.
func encodeRecord(buf []byte, index int64, data []byte) []byte {
	start := len(buf)
	buf = append(buf, make([]byte, RecordHeaderSize)...)
	binary.LittleEndian.PutUint32(buf[start+Crc32Size:], uint32(len(data)))
	binary.LittleEndian.PutUint64(buf[start+Crc32Size+LengthSize:], uint64(index))
	buf = append(buf, data...)

	crc := crc32.ChecksumIEEE(buf[start+Crc32Size:])
	binary.LittleEndian.PutUint32(buf[start:], crc)
	return buf
}

func decodeRecordHeader(buf []byte) (h recordHeader) {
	h.crc = binary.LittleEndian.Uint32(buf[:Crc32Size])
	h.length = binary.LittleEndian.Uint32(buf[Crc32Size : Crc32Size+LengthSize])
	h.index = int64(binary.LittleEndian.Uint64(buf[Crc32Size+LengthSize : RecordHeaderSize]))
	return
}

// valid verifies a header + body pair read back from disk.
func (h recordHeader) valid(header, body []byte) bool {
	crc := crc32.ChecksumIEEE(header[Crc32Size:])
	crc = crc32.Update(crc, crc32.IEEETable, body)
	return crc == h.crc
}

func recordSize(dataLen int) int64 {
	return int64(RecordHeaderSize + dataLen)
}
