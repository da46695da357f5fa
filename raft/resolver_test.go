package raft_test

import (
	"fmt"
	"testing"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/ColdToo/Cold2Sync/raft"
	"github.com/ColdToo/Cold2Sync/raft/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSnapshot(index int64, term uint64) raft.SnapshotFunc {
	return func() raft.Snapshot {
		return raft.Snapshot{LastApplyIndex: index, LastApplyTerm: term}
	}
}

func noSnapshot() raft.SnapshotFunc {
	return raft.EmptySnapshot
}

type preCase struct {
	i         int64
	wantIndex int64
	wantTerm  uint64
	wantErr   error
}

func assertPre(t *testing.T, r *raft.Resolver, tt preCase) {
	t.Helper()
	index, term, err := r.Pre(tt.i)
	gotIndex, indexErr := r.PreIndex(tt.i)
	gotTerm, termErr := r.PreTerm(tt.i)
	if tt.wantErr != nil {
		assert.ErrorIs(t, err, tt.wantErr, "pre(%d)", tt.i)
		assert.ErrorIs(t, indexErr, tt.wantErr, "preIndex(%d)", tt.i)
		assert.ErrorIs(t, termErr, tt.wantErr, "preTerm(%d)", tt.i)
		return
	}
	require.NoError(t, err, "pre(%d)", tt.i)
	require.NoError(t, indexErr)
	require.NoError(t, termErr)
	assert.Equal(t, tt.wantIndex, index, "pre(%d) index", tt.i)
	assert.Equal(t, tt.wantTerm, term, "pre(%d) term", tt.i)
	assert.Equal(t, tt.wantIndex, gotIndex, "preIndex(%d)", tt.i)
	assert.Equal(t, tt.wantTerm, gotTerm, "preTerm(%d)", tt.i)
}

func TestResolver_EmptyNode(t *testing.T) {
	r := raft.NewResolver(newStore(t), noSnapshot())

	assert.False(t, r.HasSnapshot())
	assert.Equal(t, int64(-1), r.LastIndex())
	assert.Equal(t, uint64(0), r.LastTerm())
	assert.Equal(t, int64(0), r.SyncStartIndex())
	assertPre(t, r, preCase{i: 0, wantIndex: -1, wantTerm: 0})
	assertPre(t, r, preCase{i: 1, wantErr: code.ErrOutOfRange})
}

func TestResolver_LogOnly(t *testing.T) {
	s := newStore(t)
	appendTerms(t, s, 100, 11)
	r := raft.NewResolver(s, noSnapshot())

	assert.False(t, r.HasSnapshot())
	assert.Equal(t, int64(10), r.LastIndex())
	assert.Equal(t, uint64(110), r.LastTerm())
	assert.Equal(t, int64(11), r.SyncStartIndex())

	assertPre(t, r, preCase{i: 0, wantIndex: -1, wantTerm: 0})
	for i := int64(1); i <= 11; i++ {
		assertPre(t, r, preCase{i: i, wantIndex: i - 1, wantTerm: uint64(100 + i - 1)})
	}
	assertPre(t, r, preCase{i: 12, wantErr: code.ErrOutOfRange})
}

func TestResolver_SnapshotOnly(t *testing.T) {
	tests := []struct {
		name  string
		begin int64
	}{
		{"fresh store", 0},
		{"store restarted after the snapshot", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, s.SetBeginIndex(tt.begin))
			r := raft.NewResolver(s, fixedSnapshot(5, 100))

			assert.True(t, r.HasSnapshot())
			assert.Equal(t, int64(5), r.LastIndex())
			assert.Equal(t, uint64(100), r.LastTerm())
			assert.Equal(t, int64(6), r.SyncStartIndex())
			assertPre(t, r, preCase{i: 6, wantIndex: 5, wantTerm: 100})
			assertPre(t, r, preCase{i: 3, wantErr: code.ErrOutOfRange})
		})
	}
}

func TestResolver_SnapshotCoveredByLog(t *testing.T) {
	s := newStore(t)
	appendTerms(t, s, 100, 11)
	r := raft.NewResolver(s, fixedSnapshot(5, 100))

	assert.True(t, r.HasSnapshot())
	assert.Equal(t, int64(10), r.LastIndex())
	assert.Equal(t, uint64(110), r.LastTerm())
	assert.Equal(t, int64(11), r.SyncStartIndex())

	assertPre(t, r, preCase{i: 0, wantIndex: -1, wantTerm: 0})
	for i := int64(1); i <= 11; i++ {
		// the entry at 5 has term 105 and wins over the snapshot's 100
		assertPre(t, r, preCase{i: i, wantIndex: i - 1, wantTerm: uint64(100 + i - 1)})
	}
}

func TestResolver_SnapshotWithCompactedLog(t *testing.T) {
	build := map[string]func(t *testing.T) *raft.LogStore{
		"restarted at 6": func(t *testing.T) *raft.LogStore {
			s := newStore(t)
			require.NoError(t, s.SetBeginIndex(6))
			appendTerms(t, s, 106, 5)
			return s
		},
		"compacted to 6": func(t *testing.T) *raft.LogStore {
			s := newStore(t)
			appendTerms(t, s, 100, 11)
			require.NoError(t, s.SetBeginIndex(6))
			return s
		},
	}
	for name, newLog := range build {
		t.Run(name, func(t *testing.T) {
			s := newLog(t)
			require.Equal(t, int64(6), s.BeginIndex())
			r := raft.NewResolver(s, fixedSnapshot(5, 100))

			assert.Equal(t, int64(10), r.LastIndex())
			assert.Equal(t, uint64(110), r.LastTerm())
			assert.Equal(t, int64(11), r.SyncStartIndex())

			assertPre(t, r, preCase{i: 6, wantIndex: 5, wantTerm: 100})
			for i := int64(7); i <= 11; i++ {
				assertPre(t, r, preCase{i: i, wantIndex: i - 1, wantTerm: uint64(100 + i - 1)})
			}
			for i := int64(0); i <= 5; i++ {
				assertPre(t, r, preCase{i: i, wantErr: code.ErrOutOfRange})
			}
		})
	}
}

func TestResolver_Idempotent(t *testing.T) {
	s := newStore(t)
	appendTerms(t, s, 100, 11)
	require.NoError(t, s.SetBeginIndex(6))
	r := raft.NewResolver(s, fixedSnapshot(5, 100))

	type answer struct {
		has   bool
		last  int64
		term  uint64
		start int64
		pre   []string
	}
	ask := func() answer {
		a := answer{has: r.HasSnapshot(), last: r.LastIndex(), term: r.LastTerm(), start: r.SyncStartIndex()}
		for i := int64(0); i <= 12; i++ {
			index, term, err := r.Pre(i)
			a.pre = append(a.pre, fmt.Sprintf("%d/%d/%v", index, term, err))
		}
		return a
	}
	assert.Equal(t, ask(), ask())
}

func TestResolver_NegativeIndexPanics(t *testing.T) {
	r := raft.NewResolver(newStore(t), noSnapshot())
	assert.Panics(t, func() { _, _, _ = r.Pre(-1) })
	assert.Panics(t, func() { _, _ = r.PreIndex(-5) })
	assert.Panics(t, func() { _, _ = r.PreTerm(-2) })
}

func TestResolver_QueriesProviderAtMostOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	snaps := mocks.NewMockSnapshotProvider(ctrl)
	s := newStore(t)
	r := raft.NewResolver(s, snaps)

	snap := raft.Snapshot{LastApplyIndex: 5, LastApplyTerm: 100}

	// empty log: every answer comes from the snapshot
	snaps.EXPECT().CurrentSnapshot().Return(snap).Times(1)
	assert.Equal(t, int64(5), r.LastIndex())
	snaps.EXPECT().CurrentSnapshot().Return(snap).Times(1)
	assert.Equal(t, uint64(100), r.LastTerm())
	snaps.EXPECT().CurrentSnapshot().Return(snap).Times(1)
	assert.Equal(t, int64(6), r.SyncStartIndex())
	snaps.EXPECT().CurrentSnapshot().Return(snap).Times(1)
	index, term, err := r.Pre(6)
	require.NoError(t, err)
	assert.Equal(t, int64(5), index)
	assert.Equal(t, uint64(100), term)
	snaps.EXPECT().CurrentSnapshot().Return(snap).Times(1)
	_, _, err = r.Pre(2)
	assert.ErrorIs(t, err, code.ErrOutOfRange)

	// non-empty log: the provider is not needed
	appendTerms(t, s, 100, 11)
	snaps.EXPECT().CurrentSnapshot().Times(0)
	assert.Equal(t, int64(10), r.LastIndex())
	assert.Equal(t, uint64(110), r.LastTerm())
	index, term, err = r.Pre(6)
	require.NoError(t, err)
	assert.Equal(t, int64(5), index)
	assert.Equal(t, uint64(105), term)
}

func TestResolver_SnapshotNotCached(t *testing.T) {
	current := raft.EmptySnapshot()
	r := raft.NewResolver(newStore(t), raft.SnapshotFunc(func() raft.Snapshot { return current }))

	assert.Equal(t, int64(-1), r.LastIndex())
	current = raft.Snapshot{LastApplyIndex: 8, LastApplyTerm: 3}
	assert.Equal(t, int64(8), r.LastIndex())
	assert.Equal(t, uint64(3), r.LastTerm())
}

func TestResolver_BeginIndexDoesNotInvalidateSnapshot(t *testing.T) {
	s := newStore(t)
	appendTerms(t, s, 100, 4)
	r := raft.NewResolver(s, fixedSnapshot(5, 100))

	// compaction past the snapshot point leaves the snapshot itself usable
	require.NoError(t, s.SetBeginIndex(8))
	assert.True(t, r.HasSnapshot())
	assert.Equal(t, int64(5), r.LastIndex())
	assertPre(t, r, preCase{i: 6, wantIndex: 5, wantTerm: 100})
	assertPre(t, r, preCase{i: 8, wantErr: code.ErrOutOfRange})
}
