package main

import (
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/spf13/cobra"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/adapters/amqpnotifier"
	"github.com/luno/sepadoc/adapters/jlog"
	"github.com/luno/sepadoc/adapters/kafkanotifier"
	"github.com/luno/sepadoc/adapters/mailer"
	"github.com/luno/sepadoc/adapters/sqlsource"
	"github.com/luno/sepadoc/adapters/viperconfig"
	"github.com/luno/sepadoc/adapters/zaplog"
	"github.com/luno/sepadoc/archive"
	"github.com/luno/sepadoc/delivery"
	"github.com/luno/sepadoc/internal/logger"
	"github.com/luno/sepadoc/printer"
)

const (
	backendSlog = "slog"
	backendZap  = "zap"
	backendJlog = "jlog"
)

// app holds what the commands share. close releases the database and the notification channels.
type app struct {
	settings *sepadoc.Settings
	log      sepadoc.Logger
	pipeline *sepadoc.Pipeline
	closers  []io.Closer
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Error(context.Background(), err, nil)
		}
	}
}

func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	s, err := viperconfig.Load(path)
	if err != nil {
		return nil, err
	}

	l, err := newLogger(s.StringOr(sepadoc.KeyLogBackend, backendSlog), debug)
	if err != nil {
		return nil, err
	}

	a := &app{settings: s, log: l}

	db, err := sqlsource.Open(s)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db)

	notifier, err := a.notifiers()
	if err != nil {
		a.close()
		return nil, err
	}

	a.pipeline = newPipeline(s, l, db, notifier)
	return a, nil
}

func newLogger(backend string, debug bool) (sepadoc.Logger, error) {
	switch backend {
	case backendSlog:
		return logger.New(os.Stdout, debug), nil
	case backendZap:
		level := "info"
		if debug {
			level = "debug"
		}
		return zaplog.NewProduction(level)
	case backendJlog:
		return jlog.New(), nil
	default:
		return nil, errors.Wrap(sepadoc.ErrWrongVariant, "unknown log backend", j.MKV{"backend": backend})
	}
}

func newPipeline(s *sepadoc.Settings, l sepadoc.Logger, db *sql.DB, n sepadoc.Notifier) *sepadoc.Pipeline {
	opts := []sepadoc.Option{
		sepadoc.WithLogger(l),
		sepadoc.WithArchiver(archive.New(s, l)),
	}

	if height, err := s.Int(sepadoc.KeyViewport); err == nil {
		opts = append(opts, sepadoc.WithViewportHeight(int(height)))
	}

	if n != nil {
		opts = append(opts, sepadoc.WithNotifier(n))
	}

	return sepadoc.New(
		sqlsource.NewFromSettings(db, s, sqlsource.WithLogger(l)),
		printer.NewFactory(s, l),
		delivery.NewFactory(s, l, mailer.NewTransportFactory(s, l)),
		opts...,
	)
}

// notifiers connects every configured notification channel. Nil means none is configured.
func (a *app) notifiers() (sepadoc.Notifier, error) {
	var fan fanout

	brokers := viperconfig.List(a.settings, sepadoc.KeyKafkaBrokers)
	if len(brokers) > 0 {
		n := kafkanotifier.New(brokers, a.settings.StringOr(sepadoc.KeyKafkaTopic, "sepadoc.events"))
		fan = append(fan, n)
		a.closers = append(a.closers, n)
	}

	if url := a.settings.StringOr(sepadoc.KeyAMQPURL, ""); url != "" {
		n, err := amqpnotifier.Dial(url, a.settings.StringOr(sepadoc.KeyAMQPExchange, "sepadoc"))
		if err != nil {
			return nil, err
		}
		fan = append(fan, n)
		a.closers = append(a.closers, n)
	}

	if len(fan) == 0 {
		return nil, nil
	}

	return fan, nil
}

type fanout []sepadoc.Notifier

// Notify publishes to every channel and returns the first error.
func (f fanout) Notify(ctx context.Context, e sepadoc.Event) error {
	var first error
	for _, n := range f {
		if err := n.Notify(ctx, e); err != nil && first == nil {
			first = err
		}
	}

	return first
}
