package raft

import (
	"errors"
	"fmt"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/ColdToo/Cold2Sync/log"
)

// Node owns one log store and one snapshot provider and makes the index
// decisions of a replicating peer with them.
type Node struct {
	store    *LogStore
	snaps    SnapshotProvider
	resolver *Resolver
}

func NewNode(store *LogStore, snaps SnapshotProvider) (*Node, error) {
	if store == nil || snaps == nil {
		return nil, fmt.Errorf("%w: node needs a log store and a snapshot provider", code.ErrInvalidArgument)
	}
	return &Node{store: store, snaps: snaps, resolver: NewResolver(store, snaps)}, nil
}

func (n *Node) Resolver() *Resolver {
	return n.resolver
}

func (n *Node) Store() *LogStore {
	return n.store
}

// Propose appends data as a new entry of term and returns its index. A log
// that ends at or below the current snapshot is first moved past it, so the
// entry never lands behind the snapshot.
func (n *Node) Propose(term uint64, data []byte) (int64, error) {
	if snap := n.snaps.CurrentSnapshot(); !snap.IsEmpty() && n.store.WriteIndex() <= snap.LastApplyIndex {
		if err := n.RestoreFromSnapshot(snap); err != nil {
			return -1, err
		}
	}
	e := &LogEntry{Term: term, Data: data}
	return n.store.Append(e)
}

// AppendProbe is what a leader sends a follower whose next index is Next:
// the log matching pair plus the entries that follow it.
type AppendProbe struct {
	PrevIndex int64
	PrevTerm  uint64
	Entries   []*LogEntry
}

// PrepareAppend builds the probe for a follower expecting next. When the
// predecessor of next is gone from both log and snapshot the error wraps
// code.ErrNeedSnapshot and the follower must be sent a snapshot instead.
func (n *Node) PrepareAppend(next int64, maxEntries int) (*AppendProbe, error) {
	if maxEntries < 0 {
		return nil, fmt.Errorf("%w: negative max entries %d", code.ErrInvalidArgument, maxEntries)
	}
	prevIndex, prevTerm, err := n.resolver.Pre(next)
	if err != nil {
		if errors.Is(err, code.ErrOutOfRange) {
			return nil, fmt.Errorf("%w: %w", code.ErrNeedSnapshot, err)
		}
		return nil, err
	}

	probe := &AppendProbe{PrevIndex: prevIndex, PrevTerm: prevTerm}
	st := n.store.State()
	hi := min(st.WriteIndex, next+int64(maxEntries))
	if next >= st.BeginIndex && next < hi {
		ents, err := n.store.Entries(next, hi)
		switch {
		case errors.Is(err, code.ErrUnavailable):
			// compacted between State and Entries
			return nil, fmt.Errorf("%w: %w", code.ErrNeedSnapshot, err)
		case err != nil:
			return nil, err
		}
		probe.Entries = ents
	}
	return probe, nil
}

// MatchPrev is the follower side of the log matching check.
func (n *Node) MatchPrev(prevIndex int64, prevTerm uint64) bool {
	if prevIndex < -1 {
		return false
	}
	index, term, err := n.resolver.Pre(prevIndex + 1)
	if err != nil {
		return false
	}
	return index == prevIndex && term == prevTerm
}

// Compact drops the entries covered by the current snapshot.
func (n *Node) Compact() error {
	snap := n.snaps.CurrentSnapshot()
	if snap.IsEmpty() {
		return nil
	}
	begin := snap.LastApplyIndex + 1
	if begin <= n.store.BeginIndex() {
		return nil
	}
	if err := n.store.SetBeginIndex(begin); err != nil {
		return err
	}
	log.Info("compact log").
		Int64(code.SnapIndex, snap.LastApplyIndex).
		Uint64(code.SnapTerm, snap.LastApplyTerm).
		Int64(code.BeginIndex, begin).
		Record()
	return nil
}

// RestoreFromSnapshot moves the log past an installed snapshot s. The
// snapshot itself must already be visible through the provider.
func (n *Node) RestoreFromSnapshot(s Snapshot) error {
	if s.IsEmpty() {
		return fmt.Errorf("%w: restore from empty snapshot", code.ErrInvalidArgument)
	}
	begin := s.LastApplyIndex + 1
	if begin <= n.store.BeginIndex() {
		return nil
	}
	if err := n.store.SetBeginIndex(begin); err != nil {
		return err
	}
	log.Info("restore from snapshot").
		Int64(code.SnapIndex, s.LastApplyIndex).
		Uint64(code.SnapTerm, s.LastApplyTerm).
		Str("store", n.store.String()).
		Record()
	return nil
}
