package logger

import (
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. "prod"/"production" yields JSON at info
// level; anything else yields the development console encoder at debug level.
// Timestamps are rendered in loc.
func New(mode string, loc *time.Location) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = timeEncoder(loc)
	return cfg.Build()
}

// NewJSON returns an info-level JSON logger writing one object per line to w.
func NewJSON(w io.Writer, loc *time.Location) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = timeEncoder(loc)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zapcore.InfoLevel)
	return zap.New(core)
}

func timeEncoder(loc *time.Location) zapcore.TimeEncoder {
	if loc == nil {
		loc = time.UTC
	}
	return func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(t.In(loc).Format(time.RFC3339Nano))
	}
}
