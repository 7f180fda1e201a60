package logger

import (
	"context"
	"io"
	"log/slog"
)

type logger struct {
	log *slog.Logger
}

func (l logger) Debug(ctx context.Context, msg string, meta map[string]string) {
	l.log.DebugContext(ctx, msg, "meta", meta)
}

func (l logger) Info(ctx context.Context, msg string, meta map[string]string) {
	l.log.InfoContext(ctx, msg, "meta", meta)
}

func (l logger) Warn(ctx context.Context, msg string, meta map[string]string) {
	l.log.WarnContext(ctx, msg, "meta", meta)
}

func (l logger) Error(ctx context.Context, err error, meta map[string]string) {
	l.log.ErrorContext(ctx, err.Error(), "meta", meta)
}

// New returns a JSON logger. Debug entries are only written when debug is true.
func New(w io.Writer, debug bool) *logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := slog.HandlerOptions{
		Level: level,
	}
	sl := slog.New(slog.NewJSONHandler(w, &opts))
	return &logger{
		log: sl,
	}
}
