package config

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var (
	mu    sync.RWMutex
	Viper *viper.Viper
)

type Config struct {
	ZapConf    *ZapConfig  `mapstructure:"zap"`
	WalConfig  *WalConfig  `mapstructure:"wal"`
	SnapConfig *SnapConfig `mapstructure:"snapshot"`
}

// InitConfig reads the yaml file at path, applies defaults and validates
// the result. The viper instance is kept for Watch.
func InitConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	conf, err := decode(v)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	Viper = v
	mu.Unlock()
	return conf, nil
}

// Watch hands every successfully reloaded config to onChange. Reloads that
// fail to decode or validate are dropped and the previous config stays.
func Watch(onChange func(*Config)) {
	mu.RLock()
	v := Viper
	mu.RUnlock()
	if v == nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		conf, err := decode(v)
		if err != nil {
			fmt.Printf("config file %s changed but reload failed: %v\n", e.Name, err)
			return
		}
		onChange(conf)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	conf := new(Config)
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		byteSizeHook,
	))
	if err := v.Unmarshal(conf, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if conf.ZapConf == nil {
		conf.ZapConf = DefaultZapConfig()
	}
	if conf.WalConfig == nil {
		return nil, fmt.Errorf("decode config: missing wal section")
	}
	if conf.SnapConfig == nil {
		conf.SnapConfig = &SnapConfig{}
	}
	if err := conf.WalConfig.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultWalConfig("")
	v.SetDefault("wal.fsync-level", string(def.FsyncLevel))
	v.SetDefault("wal.fsync-period", def.FsyncPeriod)
	v.SetDefault("wal.retention-period", def.RetentionPeriod)
	v.SetDefault("wal.retention-size", int64(def.RetentionSize))
	v.SetDefault("wal.segment-size", int64(def.SegmentSize))
	v.SetDefault("wal.roll-period", def.RollPeriod)

	zc := DefaultZapConfig()
	v.SetDefault("zap.level", zc.Level)
	v.SetDefault("zap.format", zc.Format)
	v.SetDefault("zap.prefix", zc.Prefix)
	v.SetDefault("zap.director", zc.Director)
	v.SetDefault("zap.encode-level", zc.EncodeLevel)
	v.SetDefault("zap.stacktrace-key", zc.StacktraceKey)
	v.SetDefault("zap.max-age", zc.MaxAge)
}

// byteSizeHook lets sizes be written as "64MB" or "512 KiB" in yaml.
func byteSizeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(ByteSize(0)) {
		return data, nil
	}
	n, err := humanize.ParseBytes(data.(string))
	if err != nil {
		return nil, fmt.Errorf("parse byte size %q: %w", data, err)
	}
	return ByteSize(n), nil
}

// durationOrDefault is used by components that accept a zero value as "use
// the default".
func durationOrDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
