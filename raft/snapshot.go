package raft

//go:generate mockgen -source=./snapshot.go -destination=./mocks/snapshot_provider_mock.go -package=mocks

// NoSnapshotIndex is the LastApplyIndex of a provider that has never taken
// a snapshot.
const NoSnapshotIndex int64 = -1

// Snapshot is a point-in-time view of what the state machine has applied.
type Snapshot struct {
	LastApplyIndex int64
	LastApplyTerm  uint64
	Data           []byte
}

// EmptySnapshot reports no snapshot.
func EmptySnapshot() Snapshot {
	return Snapshot{LastApplyIndex: NoSnapshotIndex}
}

func (s Snapshot) IsEmpty() bool {
	return s.LastApplyIndex == NoSnapshotIndex
}

// SnapshotProvider is implemented by the state machine. CurrentSnapshot may
// be expensive; callers ask for it at most once per decision and never
// cache the answer.
type SnapshotProvider interface {
	CurrentSnapshot() Snapshot
}

// SnapshotFunc adapts a plain function to SnapshotProvider.
type SnapshotFunc func() Snapshot

func (f SnapshotFunc) CurrentSnapshot() Snapshot {
	return f()
}
