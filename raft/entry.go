package raft

import (
	"fmt"

	"github.com/ColdToo/Cold2Sync/code"
	"google.golang.org/protobuf/encoding/protowire"
)

// LogEntry is one replicated record. Index is assigned by the store on
// append; everything else is supplied by the caller.
type LogEntry struct {
	Index           int64
	Term            uint64
	MsgType         int32
	OriginalRpcType int32
	SeqNum          int64
	IsWeak          bool
	Data            []byte
}

// NewLogEntry allocates an entry with a zeroed payload of dataLen bytes.
func NewLogEntry(dataLen int) (*LogEntry, error) {
	if dataLen < 0 {
		return nil, fmt.Errorf("%w: negative entry length %d", code.ErrInvalidArgument, dataLen)
	}
	return &LogEntry{Data: make([]byte, dataLen)}, nil
}

func (e *LogEntry) String() string {
	return fmt.Sprintf("{index: %d, term: %d, type: %d, seq: %d, weak: %t, len: %d}",
		e.Index, e.Term, e.MsgType, e.SeqNum, e.IsWeak, len(e.Data))
}

// entry body field numbers
const (
	fieldTerm            protowire.Number = 1
	fieldMsgType         protowire.Number = 2
	fieldOriginalRpcType protowire.Number = 3
	fieldSeqNum          protowire.Number = 4
	fieldIsWeak          protowire.Number = 5
	fieldData            protowire.Number = 6
)

// marshalEntry encodes everything but the index, which the wal record
// header already carries. Zero fields are omitted.
func marshalEntry(e *LogEntry) []byte {
	b := make([]byte, 0, len(e.Data)+32)
	if e.Term != 0 {
		b = protowire.AppendTag(b, fieldTerm, protowire.VarintType)
		b = protowire.AppendVarint(b, e.Term)
	}
	if e.MsgType != 0 {
		b = protowire.AppendTag(b, fieldMsgType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.MsgType))
	}
	if e.OriginalRpcType != 0 {
		b = protowire.AppendTag(b, fieldOriginalRpcType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.OriginalRpcType))
	}
	if e.SeqNum != 0 {
		b = protowire.AppendTag(b, fieldSeqNum, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.SeqNum))
	}
	if e.IsWeak {
		b = protowire.AppendTag(b, fieldIsWeak, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	if len(e.Data) > 0 {
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Data)
	}
	return b
}

func unmarshalEntry(index int64, b []byte) (*LogEntry, error) {
	e := &LogEntry{Index: index}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("entry %d: %w", index, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("entry %d data: %w", index, protowire.ParseError(n))
			}
			e.Data = append([]byte(nil), v...)
			b = b[n:]
			continue
		case typ != protowire.VarintType:
			// unknown field from a newer writer
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("entry %d field %d: %w", index, num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("entry %d field %d: %w", index, num, protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldTerm:
			e.Term = v
		case fieldMsgType:
			e.MsgType = int32(v)
		case fieldOriginalRpcType:
			e.OriginalRpcType = int32(v)
		case fieldSeqNum:
			e.SeqNum = int64(v)
		case fieldIsWeak:
			e.IsWeak = protowire.DecodeBool(v)
		}
	}
	return e, nil
}
