package snap

import (
	"path/filepath"
	"testing"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/ColdToo/Cold2Sync/config"
	"github.com/ColdToo/Cold2Sync/raft"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

type installer interface {
	raft.SnapshotProvider
	Install(s raft.Snapshot) error
}

func testInstall(t *testing.T, p installer) {
	assert.True(t, p.CurrentSnapshot().IsEmpty())
	assert.Equal(t, uint64(0), p.CurrentSnapshot().LastApplyTerm)

	payload := []byte(uuid.New().String())
	require.NoError(t, p.Install(raft.Snapshot{LastApplyIndex: 5, LastApplyTerm: 100, Data: payload}))
	got := p.CurrentSnapshot()
	assert.Equal(t, int64(5), got.LastApplyIndex)
	assert.Equal(t, uint64(100), got.LastApplyTerm)
	assert.Equal(t, payload, got.Data)

	// the provider keeps its own copy
	payload[0] ^= 0xff
	assert.NotEqual(t, payload, p.CurrentSnapshot().Data)
	got.Data[0] ^= 0xff
	assert.NotEqual(t, got.Data, p.CurrentSnapshot().Data)

	err := p.Install(raft.Snapshot{LastApplyIndex: 4, LastApplyTerm: 100})
	assert.ErrorIs(t, err, code.ErrSnapOutOfDate)
	assert.Equal(t, int64(5), p.CurrentSnapshot().LastApplyIndex)

	err = p.Install(raft.EmptySnapshot())
	assert.ErrorIs(t, err, code.ErrInvalidArgument)

	require.NoError(t, p.Install(raft.Snapshot{LastApplyIndex: 9, LastApplyTerm: 101}))
	assert.Equal(t, int64(9), p.CurrentSnapshot().LastApplyIndex)
	assert.Nil(t, p.CurrentSnapshot().Data)
}

func TestMemory_Install(t *testing.T) {
	testInstall(t, NewMemory())
}

func TestBolt_Install(t *testing.T) {
	b, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	defer b.Close()
	testInstall(t, b)
}

func TestBolt_Reopen(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenFromConfig(&config.SnapConfig{SnapDirPath: dir})
	require.NoError(t, err)
	require.NoError(t, b.Install(raft.Snapshot{LastApplyIndex: 42, LastApplyTerm: 7, Data: []byte("state")}))
	require.NoError(t, b.Close())

	b, err = Open(filepath.Join(dir, FileName))
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, raft.Snapshot{LastApplyIndex: 42, LastApplyTerm: 7, Data: []byte("state")}, b.CurrentSnapshot())

	err = b.Install(raft.Snapshot{LastApplyIndex: 41, LastApplyTerm: 7})
	assert.ErrorIs(t, err, code.ErrSnapOutOfDate)
}

func TestBolt_OpenMissingTerm(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	db, err := bbolt.Open(path, 0600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucket(snapBucket)
		if err != nil {
			return err
		}
		return bucket.Put(indexKey, uint64ToBytes(12))
	}))
	require.NoError(t, db.Close())

	_, err = Open(path)
	assert.ErrorIs(t, err, code.ErrIO)
}

func TestOpenFromConfig_RequiresDir(t *testing.T) {
	_, err := OpenFromConfig(&config.SnapConfig{})
	assert.ErrorIs(t, err, code.ErrInvalidArgument)
	_, err = OpenFromConfig(nil)
	assert.ErrorIs(t, err, code.ErrInvalidArgument)
}
