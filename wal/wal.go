package wal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/ColdToo/Cold2Sync/config"
	"github.com/ColdToo/Cold2Sync/log"
	"github.com/ColdToo/Cold2Sync/utils"
	"github.com/dustin/go-humanize"
)

const (
	LockFileName = "LOCK"
	MetaFileName = "META"
	FileModePerm = 0750
)

// WAL is an append only log of records addressed by a dense int64 index.
// Records below FirstIndex are logically gone; whole segments below it are
// removed according to the retention settings.
type WAL struct {
	mu  sync.RWMutex
	dir string
	cfg config.WalConfig

	lock *os.File
	meta *meta

	// segments are sorted by first index, the last one is active.
	segments  []*segment
	blockPool *BlockPool

	firstIndex int64
	nextIndex  int64

	dirty  bool
	closed bool

	stopc    chan struct{}
	donec    chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

// Open opens the wal in dir, creating it when missing. The directory is
// locked for the lifetime of the returned WAL.
func Open(dir string, cfg config.WalConfig) (_ *WAL, err error) {
	cfg.WalDirPath = dir
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", code.ErrInvalidArgument, err)
	}
	if err = os.MkdirAll(dir, FileModePerm); err != nil {
		return nil, fmt.Errorf("%w: create wal dir: %w", code.ErrIO, err)
	}

	lock, err := lockFile(filepath.Join(dir, LockFileName))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = unlockFile(lock)
		}
	}()

	m, err := openMeta(filepath.Join(dir, MetaFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", code.ErrIO, err)
	}
	defer func() {
		if err != nil {
			_ = m.close()
		}
	}()
	if _, err = m.checkVersion(); err != nil {
		return nil, err
	}

	w := &WAL{
		dir:       dir,
		cfg:       cfg,
		lock:      lock,
		meta:      m,
		blockPool: NewBlockPool(),
		stopc:     make(chan struct{}),
		donec:     make(chan struct{}),
		now:       time.Now,
	}
	defer func() {
		if err != nil {
			for _, seg := range w.segments {
				_ = seg.Close()
			}
		}
	}()
	if err = w.recover(); err != nil {
		return nil, err
	}
	w.purgeLocked()

	if cfg.FsyncLevel == config.FsyncInterval {
		go w.syncLoop(cfg.FsyncPeriod)
	} else {
		close(w.donec)
	}

	log.Info("open wal").
		Str(code.WalDir, dir).
		Int64(code.BeginIndex, w.firstIndex).
		Int64(code.WriteIndex, w.nextIndex).
		Int("segments", len(w.segments)).
		Str("fsync-level", string(cfg.FsyncLevel)).
		Str(code.SegmentSize, cfg.SegmentSize.String()).
		Record()
	return w, nil
}

func (w *WAL) recover() error {
	first, hasFirst, err := w.meta.getInt64(firstIndexKey)
	if err != nil {
		return fmt.Errorf("%w: %w", code.ErrIO, err)
	}
	firsts, err := listSegments(w.dir)
	if err != nil {
		return fmt.Errorf("%w: list segments: %w", code.ErrIO, err)
	}
	for i, segFirst := range firsts {
		tail := i == len(firsts)-1
		seg, err := openSegment(w.dir, segFirst, tail)
		if err != nil {
			return fmt.Errorf("%w: %w", code.ErrIO, err)
		}
		if n := len(w.segments); n > 0 && w.segments[n-1].next != seg.first {
			switch {
			case hasFirst && seg.first <= first:
				// a restart past the end of the log, older segments are obsolete
			case tail && seg.empty():
				// the restart never persisted its first index
				log.Warn("remove incomplete restart segment").Str(code.SegmentPath, seg.io.Name()).Record()
				if err := seg.Remove(); err != nil {
					return fmt.Errorf("%w: %w", code.ErrIO, err)
				}
				continue
			default:
				_ = seg.Close()
				return fmt.Errorf("%w: segment gap between %d and %d", code.ErrIO, w.segments[n-1].next, seg.first)
			}
		}
		w.segments = append(w.segments, seg)
	}

	if len(w.segments) > 0 && (!hasFirst || first < w.segments[0].first) {
		first = w.segments[0].first
	}
	w.firstIndex = first

	if len(w.segments) == 0 || w.active().next < first {
		seg, err := createSegment(w.dir, first, w.now())
		if err != nil {
			return fmt.Errorf("%w: %w", code.ErrIO, err)
		}
		w.segments = append(w.segments, seg)
		if err := utils.SyncDir(w.dir); err != nil {
			return fmt.Errorf("%w: %w", code.ErrIO, err)
		}
	}
	w.nextIndex = w.active().next
	return nil
}

func (w *WAL) active() *segment {
	return w.segments[len(w.segments)-1]
}

// Append writes data as the next record and returns its index.
func (w *WAL) Append(data []byte) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return -1, code.ErrClosed
	}

	n := recordSize(len(data))
	if n > int64(w.cfg.SegmentSize) {
		return -1, fmt.Errorf("%w: record of %s", code.ErrValueTooLarge, humanize.IBytes(uint64(n)))
	}
	if w.shouldRoll(n) {
		if err := w.rollLocked(w.nextIndex); err != nil {
			return -1, err
		}
	}

	index := w.nextIndex
	buf := encodeRecord(w.blockPool.GetBlock(int(n)), index, data)
	err := w.active().append(buf, index, n)
	w.blockPool.PutBlock(buf)
	if err != nil {
		return -1, fmt.Errorf("%w: append index %d: %w", code.ErrIO, index, err)
	}

	switch w.cfg.FsyncLevel {
	case config.FsyncWrite:
		if err := w.active().Sync(); err != nil {
			// not acknowledged, so the caller may retry at the same index
			if uerr := w.active().unappend(); uerr != nil {
				err = errors.Join(err, uerr)
			}
			return -1, fmt.Errorf("%w: fsync index %d: %w", code.ErrIO, index, err)
		}
	case config.FsyncInterval:
		w.dirty = true
	}
	w.nextIndex++
	return index, nil
}

func (w *WAL) shouldRoll(n int64) bool {
	act := w.active()
	if act.empty() {
		return false
	}
	if act.size+n > int64(w.cfg.SegmentSize) {
		return true
	}
	return w.cfg.RollPeriod > 0 && w.now().Sub(act.created) >= w.cfg.RollPeriod
}

// rollLocked seals the active segment and starts a new one at first.
func (w *WAL) rollLocked(first int64) error {
	old := w.active()
	if err := old.Sync(); err != nil {
		return fmt.Errorf("%w: sync sealed segment: %w", code.ErrIO, err)
	}
	seg, err := createSegment(w.dir, first, w.now())
	if err != nil {
		return fmt.Errorf("%w: create segment: %w", code.ErrIO, err)
	}
	if err := utils.SyncDir(w.dir); err != nil {
		_ = seg.Remove()
		return fmt.Errorf("%w: %w", code.ErrIO, err)
	}
	w.segments = append(w.segments, seg)
	w.dirty = false

	log.Info("roll wal segment").
		Str(code.SegmentPath, seg.io.Name()).
		Int64("sealed-first", old.first).
		Int64("sealed-next", old.next).
		Str(code.SegmentSize, humanize.IBytes(uint64(old.size))).
		Record()
	w.purgeLocked()
	return nil
}

// ReadRange returns the records [lo, hi). The whole range must lie inside
// [FirstIndex, NextIndex), otherwise ErrUnavailable is returned.
func (w *WAL) ReadRange(lo, hi int64) ([]Record, error) {
	if lo > hi {
		return nil, fmt.Errorf("%w: read range [%d, %d)", code.ErrInvalidArgument, lo, hi)
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil, code.ErrClosed
	}
	if lo < w.firstIndex || hi > w.nextIndex {
		return nil, fmt.Errorf("%w: [%d, %d) outside [%d, %d)", code.ErrUnavailable, lo, hi, w.firstIndex, w.nextIndex)
	}
	if lo == hi {
		return nil, nil
	}

	i := sort.Search(len(w.segments), func(i int) bool { return w.segments[i].first > lo }) - 1
	records := make([]Record, 0, hi-lo)
	for index := lo; index < hi; index++ {
		for index >= w.segments[i].next {
			i++
		}
		data, err := w.segments[i].read(index)
		if err != nil {
			return nil, fmt.Errorf("%w: read index %d: %w", code.ErrIO, index, err)
		}
		records = append(records, Record{Index: index, Data: data})
	}
	return records, nil
}

// TruncateBefore makes every record below index unreadable. If index is
// past the end of the log the wal restarts empty at index, which is how a
// snapshot install moves the log forward.
func (w *WAL) TruncateBefore(index int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return code.ErrClosed
	}
	if index < w.firstIndex {
		return fmt.Errorf("%w: truncate before %d, first index is %d", code.ErrInvalidArgument, index, w.firstIndex)
	}
	if index == w.firstIndex {
		return nil
	}

	restart := index > w.nextIndex
	if restart {
		if err := w.rollLocked(index); err != nil {
			return err
		}
	}
	if err := w.meta.putInt64(firstIndexKey, index); err != nil {
		if restart {
			// undo the roll so memory and disk agree
			seg := w.active()
			w.segments = w.segments[:len(w.segments)-1]
			_ = seg.Remove()
		}
		return fmt.Errorf("%w: persist first index: %w", code.ErrIO, err)
	}

	w.firstIndex = index
	if restart {
		w.nextIndex = index
	}
	log.Debug("truncate wal").
		Int64(code.BeginIndex, w.firstIndex).
		Int64(code.WriteIndex, w.nextIndex).
		Bool("restart", restart).
		Record()
	w.purgeLocked()
	return nil
}

// purgeLocked removes sealed segments that hold only truncated records
// once they exceed the retention period or size.
func (w *WAL) purgeLocked() {
	var obsolete []*segment
	var obsoleteBytes int64
	for _, seg := range w.segments[:len(w.segments)-1] {
		if seg.next > w.firstIndex {
			break
		}
		obsolete = append(obsolete, seg)
		obsoleteBytes += seg.size
	}

	removed := 0
	now := w.now()
	for _, seg := range obsolete {
		expired := w.cfg.RetentionPeriod >= 0 && now.Sub(seg.created) >= w.cfg.RetentionPeriod
		oversize := w.cfg.RetentionSize >= 0 && obsoleteBytes > int64(w.cfg.RetentionSize)
		if !expired && !oversize {
			break
		}
		if err := seg.Remove(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("remove obsolete segment failed").Str(code.SegmentPath, seg.io.Name()).Err(err).Record()
			break
		}
		log.Info("remove obsolete segment").
			Str(code.SegmentPath, seg.io.Name()).
			Str(code.SegmentSize, humanize.IBytes(uint64(seg.size))).
			Bool("expired", expired).
			Record()
		obsoleteBytes -= seg.size
		removed++
	}
	w.segments = w.segments[removed:]
}

// Sync flushes the active segment.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return code.ErrClosed
	}
	return w.syncLocked()
}

func (w *WAL) syncLocked() error {
	if err := w.active().Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %w", code.ErrIO, err)
	}
	w.dirty = false
	return nil
}

func (w *WAL) syncLoop(period time.Duration) {
	defer close(w.donec)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopc:
			return
		case <-ticker.C:
			w.mu.Lock()
			if !w.closed && w.dirty {
				if err := w.syncLocked(); err != nil {
					log.Error("interval fsync failed").Str(code.WalDir, w.dir).Err(err).Record()
				}
			}
			w.mu.Unlock()
		}
	}
}

func (w *WAL) FirstIndex() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.firstIndex
}

func (w *WAL) NextIndex() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.nextIndex
}

func (w *WAL) Dir() string {
	return w.dir
}

// Segments describes every segment file still on disk, oldest first.
func (w *WAL) Segments() []SegmentInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	infos := make([]SegmentInfo, 0, len(w.segments))
	for _, seg := range w.segments {
		infos = append(infos, SegmentInfo{
			Path:     seg.io.Name(),
			First:    seg.first,
			Next:     seg.next,
			Size:     seg.size,
			Created:  seg.created,
			Obsolete: seg.next <= w.firstIndex && seg != w.active(),
		})
	}
	return infos
}

// PutMeta durably stores a small named value next to the log.
func (w *WAL) PutMeta(key string, v int64) error {
	if err := w.meta.putInt64([]byte(userKeyPrefix+key), v); err != nil {
		return fmt.Errorf("%w: put meta %s: %w", code.ErrIO, key, err)
	}
	return nil
}

// GetMeta reads a value stored with PutMeta.
func (w *WAL) GetMeta(key string) (int64, bool, error) {
	v, ok, err := w.meta.getInt64([]byte(userKeyPrefix + key))
	if err != nil {
		return 0, false, fmt.Errorf("%w: get meta %s: %w", code.ErrIO, key, err)
	}
	return v, ok, nil
}

// Close syncs and closes every segment and releases the directory lock.
func (w *WAL) Close() error {
	w.stopOnce.Do(func() { close(w.stopc) })
	<-w.donec

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if err := w.active().Sync(); err != nil {
		errs = append(errs, fmt.Errorf("%w: fsync: %w", code.ErrIO, err))
	}
	for _, seg := range w.segments {
		if err := seg.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := w.meta.close(); err != nil {
		errs = append(errs, err)
	}
	if err := unlockFile(w.lock); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
