package wal

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/coreos/go-semver/semver"
	"go.etcd.io/bbolt"
)

// FormatVersion is written into every new wal. A wal whose major version
// differs cannot be opened.
var FormatVersion = semver.New("1.0.0")

var (
	metaBucket = []byte("meta")

	versionKey    = []byte("version")
	firstIndexKey = []byte("first-index")
	userKeyPrefix = "user/"
)

// meta keeps the small facts of a wal that are not derivable from the
// segment files.
type meta struct {
	db *bbolt.DB
}

func openMeta(path string) (*meta, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open wal meta %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &meta{db: db}, nil
}

// checkVersion stamps a fresh meta file with FormatVersion, or verifies an
// existing stamp is compatible.
func (m *meta) checkVersion() (*semver.Version, error) {
	var stored *semver.Version
	err := m.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(metaBucket)
		raw := b.Get(versionKey)
		if raw == nil {
			stored = FormatVersion
			return b.Put(versionKey, []byte(FormatVersion.String()))
		}
		v, err := semver.NewVersion(string(raw))
		if err != nil {
			return fmt.Errorf("%w: unreadable version %q", code.ErrIncompatibleWal, raw)
		}
		stored = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stored.Major != FormatVersion.Major {
		return stored, fmt.Errorf("%w: found %s, support %d.x", code.ErrIncompatibleWal, stored, FormatVersion.Major)
	}
	return stored, nil
}

func (m *meta) getInt64(key []byte) (v int64, ok bool, err error) {
	err = m.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get(key)
		if raw == nil {
			return nil
		}
		if len(raw) != 8 {
			return fmt.Errorf("wal meta key %s: bad value length %d", key, len(raw))
		}
		v, ok = int64(binary.BigEndian.Uint64(raw)), true
		return nil
	})
	return
}

func (m *meta) putInt64(key []byte, v int64) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v))
		return tx.Bucket(metaBucket).Put(key, buf)
	})
}

func (m *meta) close() error {
	return m.db.Close()
}
