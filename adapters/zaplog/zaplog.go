// Package zaplog adapts a zap.Logger to the pipeline logger.
package zaplog

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/luno/sepadoc"
)

type Logger struct {
	log *zap.Logger
}

func New(l *zap.Logger) *Logger {
	return &Logger{log: l.WithOptions(zap.AddCallerSkip(1))}
}

// NewProduction builds a JSON logger at level ("debug", "info", ...) with ISO8601 timestamps.
func NewProduction(level string) (*Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := config.Build()
	if err != nil {
		return nil, err
	}

	return New(l), nil
}

func (l *Logger) Debug(ctx context.Context, msg string, meta map[string]string) {
	l.log.Debug(msg, fields(meta)...)
}

func (l *Logger) Info(ctx context.Context, msg string, meta map[string]string) {
	l.log.Info(msg, fields(meta)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, meta map[string]string) {
	l.log.Warn(msg, fields(meta)...)
}

func (l *Logger) Error(ctx context.Context, err error, meta map[string]string) {
	l.log.Error(err.Error(), append(fields(meta), zap.Error(err))...)
}

func (l *Logger) Sync() error {
	return l.log.Sync()
}

func fields(meta map[string]string) []zap.Field {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(meta))
	for _, k := range keys {
		out = append(out, zap.String(k, meta[k]))
	}

	return out
}

var _ sepadoc.Logger = (*Logger)(nil)
