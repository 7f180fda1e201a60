package sepadoc

import (
	"k8s.io/utils/clock"
)

const defaultViewportHeight = 422

type options struct {
	logger         Logger
	clock          clock.Clock
	archiver       Archiver
	notifier       Notifier
	hooks          []StateChangeHookFunc
	viewportHeight int
}

func defaultOptions() options {
	return options{
		clock:          clock.RealClock{},
		viewportHeight: defaultViewportHeight,
	}
}

type Option func(o *options)

// WithLogger sets the logger every stage writes to. Without it entries are written as JSON to stdout.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock allows the pipeline to use a custom clock, mostly for testing.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithArchiver sets the Archiver used by Send when the deliverer works in DeliveryModeArchive.
func WithArchiver(a Archiver) Option {
	return func(o *options) {
		o.archiver = a
	}
}

// WithNotifier publishes an Event for every document sent and every finished stage. Notification failures are
// logged and never fail a stage.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithStateChangeHook registers a hook called on every state change of the pipeline, in order.
func WithStateChangeHook(h StateChangeHookFunc) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, h)
	}
}

// WithViewportHeight sets the initial height used to paginate the working set.
func WithViewportHeight(height int) Option {
	return func(o *options) {
		o.viewportHeight = height
	}
}
