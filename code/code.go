package code

import "errors"

// log field keys shared by every package.
const (
	BeginIndex  = "begin-index"
	WriteIndex  = "write-index"
	CommitIndex = "commit-index"
	LastTerm    = "last-term"
	SnapIndex   = "snapshot-index"
	SnapTerm    = "snapshot-term"
	WalDir      = "wal-dir"
	SegmentPath = "segment-path"
	SegmentSize = "segment-size"
)

// ErrIO wraps every failure of the durable log: append, read, fsync.
// It is never retried inside this module.
var ErrIO = errors.New("durable log io failure")

// ErrInvalidArgument is returned for non-monotonic begin index updates,
// negative lengths and nil inputs.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrOutOfRange is returned when the predecessor of an index is covered by
// neither the retained log nor the snapshot. Callers should install a
// snapshot instead of replicating incrementally.
var ErrOutOfRange = errors.New("predecessor is covered by neither log nor snapshot")

// ErrNeedSnapshot is returned by the leader probe builder when a follower
// can only be caught up with a snapshot transfer.
var ErrNeedSnapshot = errors.New("follower needs a snapshot")

// ErrUnavailable is returned by the log store when the requested index is
// outside the retained range. It means "not found", not failure.
var ErrUnavailable = errors.New("requested entry at index is unavailable")

// ErrSnapOutOfDate is returned when installing a snapshot that is older
// than the existing one.
var ErrSnapOutOfDate = errors.New("requested index is older than the existing snapshot")
