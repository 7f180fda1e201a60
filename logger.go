package sepadoc

import "context"

type Logger interface {
	// Debug is used for detailed progress of a stage.
	Debug(ctx context.Context, msg string, meta map[string]string)
	// Info is used for stage outcomes, including cancellation.
	Info(ctx context.Context, msg string, meta map[string]string)
	// Warn is used for recovered problems such as a missing record attribute.
	Warn(ctx context.Context, msg string, meta map[string]string)
	// Error is used when writing errors to the logs. The error text is logged verbatim.
	Error(ctx context.Context, err error, meta map[string]string)
}

// MKV is a multiple key value store for the logger to format into its output.
type MKV map[string]string

// ComponentKey is the meta key naming the component an entry originates from.
const ComponentKey = "component"

// ComponentLogger stamps every entry with the name of the component that wrote it.
type ComponentLogger struct {
	Logger
	Component string
}

func NewComponentLogger(l Logger, component string) ComponentLogger {
	return ComponentLogger{Logger: l, Component: component}
}

func (c ComponentLogger) Debug(ctx context.Context, msg string, meta map[string]string) {
	c.Logger.Debug(ctx, msg, c.meta(meta))
}

func (c ComponentLogger) Info(ctx context.Context, msg string, meta map[string]string) {
	c.Logger.Info(ctx, msg, c.meta(meta))
}

func (c ComponentLogger) Warn(ctx context.Context, msg string, meta map[string]string) {
	c.Logger.Warn(ctx, msg, c.meta(meta))
}

func (c ComponentLogger) Error(ctx context.Context, err error, meta map[string]string) {
	c.Logger.Error(ctx, err, c.meta(meta))
}

func (c ComponentLogger) meta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}

	out[ComponentKey] = c.Component
	return out
}

var _ Logger = ComponentLogger{}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Debug(context.Context, string, map[string]string) {}
func (NoopLogger) Info(context.Context, string, map[string]string)  {}
func (NoopLogger) Warn(context.Context, string, map[string]string)  {}
func (NoopLogger) Error(context.Context, error, map[string]string)  {}
