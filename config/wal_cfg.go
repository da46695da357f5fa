package config

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// ByteSize is a size in bytes. Negative means unlimited where a field
// documents it.
type ByteSize int64

func (b ByteSize) String() string {
	if b < 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(b))
}

// FsyncLevel controls when the wal calls fsync on the active segment.
type FsyncLevel string

const (
	// FsyncWrite syncs after every append.
	FsyncWrite FsyncLevel = "write"
	// FsyncInterval syncs from a background goroutine every FsyncPeriod.
	FsyncInterval FsyncLevel = "interval"
	// FsyncNone leaves flushing to the operating system.
	FsyncNone FsyncLevel = "none"
)

const (
	DefaultSegmentSize = ByteSize(64 << 20)
	DefaultFsyncPeriod = time.Second
)

type WalConfig struct {
	WalDirPath string `mapstructure:"dir" json:"dir" yaml:"dir"`

	FsyncLevel  FsyncLevel    `mapstructure:"fsync-level" json:"fsync-level" yaml:"fsync-level"`
	FsyncPeriod time.Duration `mapstructure:"fsync-period" json:"fsync-period" yaml:"fsync-period"`

	// RetentionPeriod is how long a segment that lies entirely before the
	// begin index stays on disk. Negative keeps it forever.
	RetentionPeriod time.Duration `mapstructure:"retention-period" json:"retention-period" yaml:"retention-period"`

	// RetentionSize caps the bytes held by such segments, oldest removed
	// first. Negative means no cap.
	RetentionSize ByteSize `mapstructure:"retention-size" json:"retention-size" yaml:"retention-size"`

	// SegmentSize specifies the maximum size of each segment file in bytes.
	SegmentSize ByteSize `mapstructure:"segment-size" json:"segment-size" yaml:"segment-size"`

	// RollPeriod forces a new segment once the active one is this old. Zero disables it.
	RollPeriod time.Duration `mapstructure:"roll-period" json:"roll-period" yaml:"roll-period"`
}

func DefaultWalConfig(dir string) WalConfig {
	return WalConfig{
		WalDirPath:      dir,
		FsyncLevel:      FsyncWrite,
		FsyncPeriod:     DefaultFsyncPeriod,
		RetentionPeriod: 0,
		RetentionSize:   -1,
		SegmentSize:     DefaultSegmentSize,
		RollPeriod:      0,
	}
}

func (c *WalConfig) Validate() error {
	if c.WalDirPath == "" {
		return fmt.Errorf("wal config: dir is required")
	}
	switch c.FsyncLevel {
	case FsyncWrite, FsyncInterval, FsyncNone:
	case "":
		c.FsyncLevel = FsyncWrite
	default:
		return fmt.Errorf("wal config: unknown fsync level %q", c.FsyncLevel)
	}
	if c.SegmentSize <= 0 {
		c.SegmentSize = DefaultSegmentSize
	}
	c.FsyncPeriod = durationOrDefault(c.FsyncPeriod, DefaultFsyncPeriod)
	if c.RollPeriod < 0 {
		return fmt.Errorf("wal config: roll period must not be negative")
	}
	return nil
}
