package snap

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/ColdToo/Cold2Sync/config"
	"github.com/ColdToo/Cold2Sync/log"
	"github.com/ColdToo/Cold2Sync/raft"
	"go.etcd.io/bbolt"
)

// FileName is the snapshot file kept in config.SnapConfig.SnapDirPath.
const FileName = "snapshot.db"

var (
	snapBucket = []byte("snapshot")

	indexKey = []byte("last-apply-index")
	termKey  = []byte("last-apply-term")
	dataKey  = []byte("data")
)

// Bolt is a durable SnapshotProvider. The latest snapshot is loaded on Open
// and kept in memory, so CurrentSnapshot never touches the disk.
type Bolt struct {
	mu   sync.RWMutex
	db   *bbolt.DB
	snap raft.Snapshot
}

// Open opens or creates the snapshot file at path.
func Open(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open snapshot file %s: %w", code.ErrIO, path, err)
	}
	b := &Bolt{db: db, snap: raft.EmptySnapshot()}
	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(snapBucket)
		if err != nil {
			return err
		}
		raw := bucket.Get(indexKey)
		if raw == nil {
			return nil
		}
		rawTerm := bucket.Get(termKey)
		if len(raw) != 8 || len(rawTerm) != 8 {
			return fmt.Errorf("bad snapshot index or term length %d/%d", len(raw), len(rawTerm))
		}
		b.snap.LastApplyIndex = int64(binary.BigEndian.Uint64(raw))
		b.snap.LastApplyTerm = binary.BigEndian.Uint64(rawTerm)
		if data := bucket.Get(dataKey); data != nil {
			b.snap.Data = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: load snapshot %s: %w", code.ErrIO, path, err)
	}

	log.Info("open snapshot file").
		Str("path", path).
		Int64(code.SnapIndex, b.snap.LastApplyIndex).
		Uint64(code.SnapTerm, b.snap.LastApplyTerm).
		Record()
	return b, nil
}

// OpenFromConfig opens FileName inside cfg.SnapDirPath.
func OpenFromConfig(cfg *config.SnapConfig) (*Bolt, error) {
	if cfg == nil || cfg.SnapDirPath == "" {
		return nil, fmt.Errorf("%w: snapshot dir is required", code.ErrInvalidArgument)
	}
	return Open(filepath.Join(cfg.SnapDirPath, FileName))
}

// Install durably replaces the current snapshot. A snapshot older than
// the current one is rejected with code.ErrSnapOutOfDate.
func (b *Bolt) Install(s raft.Snapshot) error {
	if err := checkInstall(s); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.LastApplyIndex < b.snap.LastApplyIndex {
		return fmt.Errorf("%w: install %d, have %d", code.ErrSnapOutOfDate, s.LastApplyIndex, b.snap.LastApplyIndex)
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(snapBucket)
		if err := bucket.Put(indexKey, uint64ToBytes(uint64(s.LastApplyIndex))); err != nil {
			return err
		}
		if err := bucket.Put(termKey, uint64ToBytes(s.LastApplyTerm)); err != nil {
			return err
		}
		if s.Data == nil {
			return bucket.Delete(dataKey)
		}
		return bucket.Put(dataKey, s.Data)
	})
	if err != nil {
		return fmt.Errorf("%w: install snapshot %d: %w", code.ErrIO, s.LastApplyIndex, err)
	}
	b.snap = copySnapshot(s)
	return nil
}

func (b *Bolt) CurrentSnapshot() raft.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copySnapshot(b.snap)
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func uint64ToBytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
