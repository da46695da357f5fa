package raft

import (
	"errors"
	"fmt"

	"github.com/ColdToo/Cold2Sync/code"
)

// Resolver answers index and term questions across the log store and the
// latest snapshot. Every query reads the store state once and asks the
// provider for its snapshot at most once; nothing is cached between calls.
type Resolver struct {
	store LogReader
	snaps SnapshotProvider
}

func NewResolver(store LogReader, snaps SnapshotProvider) *Resolver {
	return &Resolver{store: store, snaps: snaps}
}

func (r *Resolver) HasSnapshot() bool {
	return !r.snaps.CurrentSnapshot().IsEmpty()
}

// LastIndex is the last index known locally, from the log if it holds any
// entry, else from the snapshot, else -1.
func (r *Resolver) LastIndex() int64 {
	st := r.store.State()
	if !st.IsEmpty() {
		return st.WriteIndex - 1
	}
	if snap := r.snaps.CurrentSnapshot(); !snap.IsEmpty() {
		return snap.LastApplyIndex
	}
	return -1
}

// LastTerm is the term at LastIndex, 0 for a node with nothing at all.
func (r *Resolver) LastTerm() uint64 {
	st := r.store.State()
	if !st.IsEmpty() {
		return st.LastTerm
	}
	if snap := r.snaps.CurrentSnapshot(); !snap.IsEmpty() {
		return snap.LastApplyTerm
	}
	return 0
}

// SyncStartIndex is the next index a follower should receive.
func (r *Resolver) SyncStartIndex() int64 {
	return r.LastIndex() + 1
}

func (r *Resolver) PreIndex(i int64) (int64, error) {
	index, _, err := r.Pre(i)
	return index, err
}

func (r *Resolver) PreTerm(i int64) (uint64, error) {
	_, term, err := r.Pre(i)
	return term, err
}

// Pre returns the index and term immediately preceding i. An entry in the
// log wins over the snapshot. A predecessor covered by neither yields
// code.ErrOutOfRange, meaning the peer needs a snapshot. A negative i is a
// caller bug and panics.
func (r *Resolver) Pre(i int64) (int64, uint64, error) {
	if i < 0 {
		panic(fmt.Sprintf("raft: pre query for negative index %d", i))
	}
	prev := i - 1
	st := r.store.State()

	if prev >= st.BeginIndex && prev < st.WriteIndex {
		e, err := r.store.EntryAt(prev)
		switch {
		case err == nil:
			return e.Index, e.Term, nil
		case !errors.Is(err, code.ErrUnavailable):
			return -1, 0, err
		}
		// compacted since State was read, the snapshot may cover it
	}

	if snap := r.snaps.CurrentSnapshot(); !snap.IsEmpty() && snap.LastApplyIndex == prev {
		return snap.LastApplyIndex, snap.LastApplyTerm, nil
	}
	if prev == -1 && st.BeginIndex == 0 {
		return -1, 0, nil
	}
	return -1, 0, fmt.Errorf("%w: predecessor of %d, log holds [%d, %d)",
		code.ErrOutOfRange, i, st.BeginIndex, st.WriteIndex)
}
