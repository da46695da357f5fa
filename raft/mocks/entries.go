package mocks

import (
	"github.com/ColdToo/Cold2Sync/raft"
	"github.com/google/uuid"
)

// CreateEntries builds num entries whose terms start at firstTerm and grow
// by one. Payloads are unique so a mixed up read is caught.
func CreateEntries(num int, firstTerm uint64) []*raft.LogEntry {
	entries := make([]*raft.LogEntry, num)
	for i := 0; i < num; i++ {
		entries[i] = &raft.LogEntry{
			Term:   firstTerm + uint64(i),
			SeqNum: int64(i),
			Data:   genUniqueData(),
		}
	}
	return entries
}

func genUniqueData() []byte {
	return []byte(uuid.New().String())
}
