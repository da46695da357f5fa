package log

import (
	"time"

	"github.com/ColdToo/Cold2Sync/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GetEncoder 获取 zapcore.Encoder
func GetEncoder(cfg *config.ZapConfig) zapcore.Encoder {
	if cfg.Format == "json" {
		return zapcore.NewJSONEncoder(GetEncoderConfig(cfg))
	}
	return zapcore.NewConsoleEncoder(GetEncoderConfig(cfg))
}

// GetEncoderConfig 获取zapcore.EncoderConfig
func GetEncoderConfig(cfg *config.ZapConfig) zapcore.EncoderConfig {
	prefix := cfg.Prefix
	return zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  cfg.StacktraceKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    cfg.ZapEncodeLevel(),
		EncodeTime:     customTimeEncoder(prefix),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// GetEncoderCore 获取Encoder的 zapcore.Core
func GetEncoderCore(cfg *config.ZapConfig, l zapcore.Level, level zap.LevelEnablerFunc) (zapcore.Core, error) {
	writer, err := FileRotatelogs.GetWriteSyncer(l.String(), cfg) // 使用file-rotatelogs进行日志分割
	if err != nil {
		return nil, err
	}
	return zapcore.NewCore(GetEncoder(cfg), writer, level), nil
}

// customTimeEncoder 自定义日志输出时间格式
func customTimeEncoder(prefix string) zapcore.TimeEncoder {
	return func(t time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(prefix + t.Format("2006/01/02 - 15:04:05.000"))
	}
}

// GetZapCores 根据配置文件的Level获取 []zapcore.Core
func GetZapCores(cfg *config.ZapConfig) ([]zapcore.Core, error) {
	cores := make([]zapcore.Core, 0, 7)
	for level := cfg.TransportLevel(); level <= zapcore.FatalLevel; level++ {
		core, err := GetEncoderCore(cfg, level, GetLevelPriority(level))
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
	}
	return cores, nil
}

// GetLevelPriority 根据 zapcore.Level 获取 zap.LevelEnablerFunc
func GetLevelPriority(level zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool {
		return l == level
	}
}
