package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestInitConfig(t *testing.T) {
	path := writeConfig(t, `
zap:
  level: debug
  director: ./log-test
wal:
  dir: /tmp/cold2sync/wal
  fsync-level: interval
  fsync-period: 200ms
  retention-period: 1h
  retention-size: 16MiB
  segment-size: 1MiB
  roll-period: 10m
snapshot:
  dir: /tmp/cold2sync/snap
`)
	conf, err := InitConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", conf.ZapConf.Level)
	assert.Equal(t, "./log-test", conf.ZapConf.Director)
	assert.Equal(t, "[Cold2Sync]", conf.ZapConf.Prefix)

	wc := conf.WalConfig
	assert.Equal(t, "/tmp/cold2sync/wal", wc.WalDirPath)
	assert.Equal(t, FsyncInterval, wc.FsyncLevel)
	assert.Equal(t, 200*time.Millisecond, wc.FsyncPeriod)
	assert.Equal(t, time.Hour, wc.RetentionPeriod)
	assert.EqualValues(t, 16<<20, wc.RetentionSize)
	assert.EqualValues(t, 1<<20, wc.SegmentSize)
	assert.Equal(t, 10*time.Minute, wc.RollPeriod)
	assert.Equal(t, "/tmp/cold2sync/snap", conf.SnapConfig.SnapDirPath)
}

func TestInitConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
wal:
  dir: /tmp/cold2sync/wal
`)
	conf, err := InitConfig(path)
	require.NoError(t, err)

	def := DefaultWalConfig("/tmp/cold2sync/wal")
	assert.Equal(t, def, *conf.WalConfig)
	assert.Equal(t, "info", conf.ZapConf.Level)
	assert.Equal(t, "", conf.SnapConfig.SnapDirPath)
}

func TestInitConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing-dir", "wal:\n  segment-size: 1MiB\n"},
		{"bad-fsync-level", "wal:\n  dir: /tmp/x\n  fsync-level: sometimes\n"},
		{"bad-size", "wal:\n  dir: /tmp/x\n  segment-size: lots\n"},
		{"negative-roll", "wal:\n  dir: /tmp/x\n  roll-period: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InitConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestInitConfig_MissingFile(t *testing.T) {
	_, err := InitConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestByteSizeString(t *testing.T) {
	assert.Equal(t, "unlimited", ByteSize(-1).String())
	assert.Equal(t, "64 MiB", DefaultSegmentSize.String())
}
