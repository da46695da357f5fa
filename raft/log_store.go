package raft

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/ColdToo/Cold2Sync/log"
	"github.com/ColdToo/Cold2Sync/wal"
)

const commitIndexKey = "commit-index"

// StoreState is one consistent read of the store's bookkeeping.
type StoreState struct {
	BeginIndex int64
	WriteIndex int64
	// LastTerm is the term of the entry at WriteIndex-1, 0 when empty.
	LastTerm uint64
}

func (s StoreState) IsEmpty() bool {
	return s.BeginIndex == s.WriteIndex
}

// LogReader is the read side of the store the resolver needs.
type LogReader interface {
	State() StoreState
	EntryAt(i int64) (*LogEntry, error)
}

//	log structure
//
//	truncated.........begin...................................write
//	----------|--------retained entries (wal)--------|
//
// LogStore keeps the entries [begin, write) in a wal. It has a single
// writer and any number of concurrent readers.
type LogStore struct {
	mu sync.RWMutex

	wal *wal.WAL

	beginIndex  int64
	writeIndex  int64
	lastTerm    uint64
	commitIndex int64
}

// OpenLogStore recovers the store from w and takes ownership of it; Close
// closes the wal.
func OpenLogStore(w *wal.WAL) (*LogStore, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil wal", code.ErrInvalidArgument)
	}
	s := &LogStore{
		wal:         w,
		beginIndex:  w.FirstIndex(),
		writeIndex:  w.NextIndex(),
		commitIndex: -1,
	}
	if !s.isEmpty() {
		last, err := s.readEntry(s.writeIndex - 1)
		if err != nil {
			return nil, err
		}
		s.lastTerm = last.Term
	}
	commit, ok, err := w.GetMeta(commitIndexKey)
	if err != nil {
		return nil, err
	}
	if ok {
		s.commitIndex = commit
	}

	log.Info("open log store").
		Int64(code.BeginIndex, s.beginIndex).
		Int64(code.WriteIndex, s.writeIndex).
		Uint64(code.LastTerm, s.lastTerm).
		Int64(code.CommitIndex, s.commitIndex).
		Record()
	return s, nil
}

// Append assigns e.Index and durably appends e. The entry is visible to
// readers only once Append returns without error.
func (s *LogStore) Append(e *LogEntry) (int64, error) {
	if e == nil {
		return -1, fmt.Errorf("%w: nil entry", code.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.wal.Append(marshalEntry(e))
	if err != nil {
		return -1, wrapIO(err)
	}
	if index != s.writeIndex {
		return -1, fmt.Errorf("%w: wal assigned index %d, store expected %d", code.ErrIO, index, s.writeIndex)
	}
	e.Index = index
	s.writeIndex++
	s.lastTerm = e.Term
	return index, nil
}

// SetBeginIndex declares every index below i no longer retrievable. It is
// monotonic. When i is past the end of the log the store restarts empty
// at i, which is what installing a newer snapshot needs.
func (s *LogStore) SetBeginIndex(i int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < s.beginIndex {
		return fmt.Errorf("%w: begin index %d is below current %d", code.ErrInvalidArgument, i, s.beginIndex)
	}
	if i == s.beginIndex {
		return nil
	}
	if err := s.wal.TruncateBefore(i); err != nil {
		return wrapIO(err)
	}

	s.beginIndex = i
	if s.writeIndex < i {
		s.writeIndex = i
	}
	if s.isEmpty() {
		s.lastTerm = 0
	}
	log.Debug("set begin index").
		Int64(code.BeginIndex, s.beginIndex).
		Int64(code.WriteIndex, s.writeIndex).
		Record()
	return nil
}

func (s *LogStore) WriteIndex() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeIndex
}

func (s *LogStore) BeginIndex() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.beginIndex
}

func (s *LogStore) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isEmpty()
}

func (s *LogStore) isEmpty() bool {
	return s.beginIndex == s.writeIndex
}

func (s *LogStore) State() StoreState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreState{BeginIndex: s.beginIndex, WriteIndex: s.writeIndex, LastTerm: s.lastTerm}
}

// EntryAt returns a copy of the entry at i, or code.ErrUnavailable when i
// is outside [BeginIndex, WriteIndex).
func (s *LogStore) EntryAt(i int64) (*LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < s.beginIndex || i >= s.writeIndex {
		return nil, fmt.Errorf("%w: index %d outside [%d, %d)", code.ErrUnavailable, i, s.beginIndex, s.writeIndex)
	}
	return s.readEntry(i)
}

// Entries returns the entries [lo, hi).
func (s *LogStore) Entries(lo, hi int64) ([]*LogEntry, error) {
	if lo > hi {
		return nil, fmt.Errorf("%w: entries [%d, %d)", code.ErrInvalidArgument, lo, hi)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if lo < s.beginIndex || hi > s.writeIndex {
		return nil, fmt.Errorf("%w: entries [%d, %d) outside [%d, %d)", code.ErrUnavailable, lo, hi, s.beginIndex, s.writeIndex)
	}
	records, err := s.wal.ReadRange(lo, hi)
	if err != nil {
		return nil, wrapIO(err)
	}
	ents := make([]*LogEntry, 0, len(records))
	for _, r := range records {
		e, err := unmarshalEntry(r.Index, r.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", code.ErrIO, err)
		}
		ents = append(ents, e)
	}
	return ents, nil
}

func (s *LogStore) readEntry(i int64) (*LogEntry, error) {
	records, err := s.wal.ReadRange(i, i+1)
	if err != nil {
		return nil, wrapIO(err)
	}
	e, err := unmarshalEntry(i, records[0].Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", code.ErrIO, err)
	}
	return e, nil
}

func (s *LogStore) CommitIndex() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commitIndex
}

// UpdateCommitIndex persists a new commit watermark. Lower values are
// ignored; an index that was never appended is rejected.
func (s *LogStore) UpdateCommitIndex(i int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i <= s.commitIndex {
		return nil
	}
	if i >= s.writeIndex {
		return fmt.Errorf("%w: commit index %d beyond write index %d", code.ErrInvalidArgument, i, s.writeIndex)
	}
	if err := s.wal.PutMeta(commitIndexKey, i); err != nil {
		return wrapIO(err)
	}
	s.commitIndex = i
	return nil
}

func (s *LogStore) Sync() error {
	return wrapIO(s.wal.Sync())
}

func (s *LogStore) Close() error {
	return s.wal.Close()
}

func (s *LogStore) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("log store {begin: %d, write: %d, last term: %d, commit: %d, empty: %t}",
		s.beginIndex, s.writeIndex, s.lastTerm, s.commitIndex, s.isEmpty())
}

// wrapIO makes sure a wal failure is reported as code.ErrIO.
func wrapIO(err error) error {
	if err == nil || errors.Is(err, code.ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %w", code.ErrIO, err)
}
