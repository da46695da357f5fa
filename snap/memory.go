package snap

import (
	"fmt"
	"sync"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/ColdToo/Cold2Sync/raft"
)

// Memory is a SnapshotProvider for state machines that keep their
// snapshot in memory. It starts with no snapshot.
type Memory struct {
	mu   sync.RWMutex
	snap raft.Snapshot
}

func NewMemory() *Memory {
	return &Memory{snap: raft.EmptySnapshot()}
}

// Install replaces the current snapshot. A snapshot older than the
// current one is rejected with code.ErrSnapOutOfDate.
func (m *Memory) Install(s raft.Snapshot) error {
	if err := checkInstall(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.LastApplyIndex < m.snap.LastApplyIndex {
		return fmt.Errorf("%w: install %d, have %d", code.ErrSnapOutOfDate, s.LastApplyIndex, m.snap.LastApplyIndex)
	}
	m.snap = copySnapshot(s)
	return nil
}

func (m *Memory) CurrentSnapshot() raft.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySnapshot(m.snap)
}

func checkInstall(s raft.Snapshot) error {
	if s.LastApplyIndex < 0 {
		return fmt.Errorf("%w: snapshot index %d", code.ErrInvalidArgument, s.LastApplyIndex)
	}
	return nil
}

func copySnapshot(s raft.Snapshot) raft.Snapshot {
	if s.Data != nil {
		s.Data = append([]byte(nil), s.Data...)
	}
	return s
}
