package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/ColdToo/Cold2Sync/config"
	"github.com/ColdToo/Cold2Sync/log"
	"github.com/ColdToo/Cold2Sync/raft"
	"github.com/ColdToo/Cold2Sync/snap"
	"github.com/ColdToo/Cold2Sync/wal"
	"github.com/dustin/go-humanize"
)

// SyncNode bundles everything a command needs, closed together.
type SyncNode struct {
	wal   *wal.WAL
	store *raft.LogStore
	snaps raft.SnapshotProvider
	node  *raft.Node
	close func() error
}

// openSyncNode opens the wal and the snapshot provider named by conf. A
// config without a snapshot dir gets an in-memory provider.
func openSyncNode(conf *config.Config) (_ *SyncNode, err error) {
	w, err := wal.Open(conf.WalConfig.WalDirPath, *conf.WalConfig)
	if err != nil {
		return nil, err
	}
	store, err := raft.OpenLogStore(w)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	sn := &SyncNode{wal: w, store: store, close: store.Close}
	defer func() {
		if err != nil {
			_ = sn.close()
		}
	}()

	if conf.SnapConfig.SnapDirPath == "" {
		sn.snaps = snap.NewMemory()
	} else {
		if err = os.MkdirAll(conf.SnapConfig.SnapDirPath, wal.FileModePerm); err != nil {
			return nil, fmt.Errorf("%w: %w", code.ErrIO, err)
		}
		b, err := snap.OpenFromConfig(conf.SnapConfig)
		if err != nil {
			return nil, err
		}
		sn.snaps = b
		sn.close = func() error { return errors.Join(store.Close(), b.Close()) }
	}
	if sn.node, err = raft.NewNode(store, sn.snaps); err != nil {
		return nil, err
	}
	return sn, nil
}

func (sn *SyncNode) Close() error {
	return sn.close()
}

func run(conf *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", code.ErrInvalidArgument)
	}
	if args[0] == "watch" {
		return watch(out)
	}

	sn, err := openSyncNode(conf)
	if err != nil {
		return err
	}
	defer sn.Close()

	switch args[0] {
	case "inspect":
		return inspect(sn, out)
	case "pre":
		if len(args) != 2 {
			return fmt.Errorf("%w: pre <index>", code.ErrInvalidArgument)
		}
		i, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || i < 0 {
			return fmt.Errorf("%w: bad index %q", code.ErrInvalidArgument, args[1])
		}
		return pre(sn, i, out)
	case "propose":
		if len(args) != 3 {
			return fmt.Errorf("%w: propose <term> <data>", code.ErrInvalidArgument)
		}
		term, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad term %q", code.ErrInvalidArgument, args[1])
		}
		index, err := sn.node.Propose(term, []byte(args[2]))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "appended index %d term %d\n", index, term)
		return nil
	case "install":
		if len(args) != 3 {
			return fmt.Errorf("%w: install <index> <term>", code.ErrInvalidArgument)
		}
		index, ierr := strconv.ParseInt(args[1], 10, 64)
		term, terr := strconv.ParseUint(args[2], 10, 64)
		if ierr != nil || terr != nil || index < 0 {
			return fmt.Errorf("%w: bad snapshot %q %q", code.ErrInvalidArgument, args[1], args[2])
		}
		return install(sn, raft.Snapshot{LastApplyIndex: index, LastApplyTerm: term}, out)
	case "compact":
		if err := sn.node.Compact(); err != nil {
			return err
		}
		fmt.Fprintf(out, "begin index %d\n", sn.store.BeginIndex())
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", code.ErrInvalidArgument, args[0])
	}
}

func inspect(sn *SyncNode, out io.Writer) error {
	r := sn.node.Resolver()
	st := sn.store.State()
	s := sn.snaps.CurrentSnapshot()

	fmt.Fprintf(out, "wal dir:          %s\n", sn.wal.Dir())
	fmt.Fprintf(out, "begin index:      %d\n", st.BeginIndex)
	fmt.Fprintf(out, "write index:      %d\n", st.WriteIndex)
	fmt.Fprintf(out, "commit index:     %d\n", sn.store.CommitIndex())
	if s.IsEmpty() {
		fmt.Fprintf(out, "snapshot:         none\n")
	} else {
		fmt.Fprintf(out, "snapshot:         index %d term %d (%s)\n",
			s.LastApplyIndex, s.LastApplyTerm, humanize.IBytes(uint64(len(s.Data))))
	}
	fmt.Fprintf(out, "last index:       %d\n", r.LastIndex())
	fmt.Fprintf(out, "last term:        %d\n", r.LastTerm())
	fmt.Fprintf(out, "sync start index: %d\n", r.SyncStartIndex())

	var total int64
	for _, seg := range sn.wal.Segments() {
		state := "live"
		if seg.Obsolete {
			state = "obsolete"
		}
		fmt.Fprintf(out, "segment [%d, %d) %s %s created %s\n",
			seg.First, seg.Next, humanize.IBytes(uint64(seg.Size)), state, humanize.Time(seg.Created))
		total += seg.Size
	}
	fmt.Fprintf(out, "wal size:         %s\n", humanize.IBytes(uint64(total)))
	return nil
}

type installer interface {
	Install(s raft.Snapshot) error
}

// install records s with the provider and moves the log past it, the way
// a follower handles a snapshot received from its leader.
func install(sn *SyncNode, s raft.Snapshot, out io.Writer) error {
	if err := sn.snaps.(installer).Install(s); err != nil {
		return err
	}
	if err := sn.node.RestoreFromSnapshot(s); err != nil {
		return err
	}
	fmt.Fprintf(out, "installed snapshot index %d term %d, begin index %d\n",
		s.LastApplyIndex, s.LastApplyTerm, sn.store.BeginIndex())
	return nil
}

func pre(sn *SyncNode, i int64, out io.Writer) error {
	index, term, err := sn.node.Resolver().Pre(i)
	if errors.Is(err, code.ErrOutOfRange) {
		fmt.Fprintf(out, "pre(%d): out of range, a snapshot is needed\n", i)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "pre(%d): index %d term %d\n", i, index, term)
	return nil
}

func watch(out io.Writer) error {
	config.Watch(func(conf *config.Config) {
		log.Info("config reloaded").
			Str(code.WalDir, conf.WalConfig.WalDirPath).
			Str("fsync-level", string(conf.WalConfig.FsyncLevel)).
			Str(code.SegmentSize, conf.WalConfig.SegmentSize.String()).
			Str("retention-size", conf.WalConfig.RetentionSize.String()).
			Dur("retention-period", conf.WalConfig.RetentionPeriod).
			Record()
		fmt.Fprintf(out, "config reloaded, wal changes apply on next open\n")
	})

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	<-sigc
	return nil
}
