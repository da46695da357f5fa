package log

import (
	"fmt"
	"os"
	"time"

	"github.com/ColdToo/Cold2Sync/config"
	"github.com/ColdToo/Cold2Sync/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = zap.NewNop()

// InitLog builds the global logger from cfg. Until it is called every
// record is dropped.
func InitLog(cfg *config.ZapConfig) error {
	if !utils.PathExist(cfg.Director) { // 判断是否有Director文件夹
		fmt.Printf("create %v directory\n", cfg.Director)
		if err := os.MkdirAll(cfg.Director, os.ModePerm); err != nil {
			return err
		}
	}

	cores, err := GetZapCores(cfg)
	if err != nil {
		return err
	}
	l := zap.New(zapcore.NewTee(cores...))
	if cfg.ShowLine {
		l = l.WithOptions(zap.AddCaller(), zap.AddCallerSkip(1))
	}
	log = l
	return nil
}

// SetLogger replaces the global logger, mainly for tests.
func SetLogger(l *zap.Logger) {
	log = l
}

func Sync() error {
	return log.Sync()
}

func Debug(msg string) *Fields {
	return newFields(zapcore.DebugLevel, msg)
}

func Info(msg string) *Fields {
	return newFields(zapcore.InfoLevel, msg)
}

func Warn(msg string) *Fields {
	return newFields(zapcore.WarnLevel, msg)
}

func Error(msg string) *Fields {
	return newFields(zapcore.ErrorLevel, msg)
}

// Fields collects structured fields for one record. Disabled levels skip
// all field work.
type Fields struct {
	level  zapcore.Level
	zap    *zap.Logger
	msg    string
	fields []zapcore.Field
	skip   bool
}

func newFields(level zapcore.Level, msg string) *Fields {
	l := log
	return &Fields{level: level, zap: l, msg: msg, skip: !l.Core().Enabled(level)}
}

func (f *Fields) Str(key string, val string) *Fields {
	if f.skip {
		return f
	}
	f.fields = append(f.fields, zap.String(key, val))
	return f
}

func (f *Fields) Int(key string, val int) *Fields {
	if f.skip {
		return f
	}
	f.fields = append(f.fields, zap.Int(key, val))
	return f
}

func (f *Fields) Int64(key string, val int64) *Fields {
	if f.skip {
		return f
	}
	f.fields = append(f.fields, zap.Int64(key, val))
	return f
}

func (f *Fields) Uint64(key string, val uint64) *Fields {
	if f.skip {
		return f
	}
	f.fields = append(f.fields, zap.Uint64(key, val))
	return f
}

func (f *Fields) Dur(key string, val time.Duration) *Fields {
	if f.skip {
		return f
	}
	f.fields = append(f.fields, zap.Duration(key, val))
	return f
}

func (f *Fields) Err(err error) *Fields {
	if err == nil || f.skip {
		return f
	}
	f.fields = append(f.fields, zap.Error(err))
	return f
}

func (f *Fields) Bool(key string, val bool) *Fields {
	if f.skip {
		return f
	}
	f.fields = append(f.fields, zap.Bool(key, val))
	return f
}

func (f *Fields) Record() {
	if f.skip {
		return
	}
	switch f.level {
	case zapcore.DebugLevel:
		f.zap.Debug(f.msg, f.fields...)
	case zapcore.InfoLevel:
		f.zap.Info(f.msg, f.fields...)
	case zapcore.WarnLevel:
		f.zap.Warn(f.msg, f.fields...)
	case zapcore.ErrorLevel:
		f.zap.Error(f.msg, f.fields...)
	}
}
