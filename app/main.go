package main

import (
	"fmt"
	"os"

	"github.com/ColdToo/Cold2Sync/config"
	"github.com/ColdToo/Cold2Sync/log"
	flag "github.com/spf13/pflag"
)

const usage = `usage: synclog [flags] <command>

commands:
  inspect                 print log store, snapshot and segment state
  pre <index>             print the index and term preceding index
  propose <term> <data>   append one entry
  install <index> <term>  record a snapshot and move the log past it
  compact                 drop entries covered by the snapshot
  watch                   log config reloads until interrupted

flags:
`

func main() {
	fs := flag.NewFlagSet("synclog", flag.ExitOnError)
	configPath := fs.StringP("config", "c", "bin/config.yaml", "config file")
	walDir := fs.String("wal-dir", "", "override wal.dir")
	snapDir := fs.String("snap-dir", "", "override snapshot.dir")
	fsyncLevel := fs.String("fsync-level", "", "override wal.fsync-level (write, interval, none)")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	conf, err := config.InitConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyOverrides(conf, *walDir, *snapDir, *fsyncLevel)
	if err := conf.WalConfig.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := log.InitLog(conf.ZapConf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(conf, fs.Args(), os.Stdout); err != nil {
		log.Error("synclog failed").Str("command", fs.Arg(0)).Err(err).Record()
		fmt.Fprintln(os.Stderr, err)
		_ = log.Sync()
		os.Exit(1)
	}
}

func applyOverrides(conf *config.Config, walDir, snapDir, fsyncLevel string) {
	if walDir != "" {
		conf.WalConfig.WalDirPath = walDir
	}
	if snapDir != "" {
		conf.SnapConfig.SnapDirPath = snapDir
	}
	if fsyncLevel != "" {
		conf.WalConfig.FsyncLevel = config.FsyncLevel(fsyncLevel)
	}
}
