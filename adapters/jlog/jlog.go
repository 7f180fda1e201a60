// Package jlog writes pipeline logs through jettison's log package.
package jlog

import (
	"context"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/luno/sepadoc"
)

func New() *Logger {
	return &Logger{}
}

type Logger struct{}

func (l Logger) Debug(ctx context.Context, msg string, meta map[string]string) {
	log.Debug(ctx, msg, j.MKS(meta))
}

func (l Logger) Info(ctx context.Context, msg string, meta map[string]string) {
	log.Info(ctx, msg, j.MKS(meta))
}

// Warn is logged at info level, jettison has no warning level.
func (l Logger) Warn(ctx context.Context, msg string, meta map[string]string) {
	log.Info(ctx, msg, j.MKS(meta), j.KV("level", "warn"))
}

func (l Logger) Error(ctx context.Context, err error, meta map[string]string) {
	log.Error(ctx, errors.Wrap(err, ""), j.MKS(meta))
}

var _ sepadoc.Logger = (*Logger)(nil)
