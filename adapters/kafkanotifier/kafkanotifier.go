// Package kafkanotifier publishes pipeline events to a Kafka topic, keyed by run.
package kafkanotifier

import (
	"context"
	"errors"
	"strconv"
	"time"

	jerrors "github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/segmentio/kafka-go"

	"github.com/luno/sepadoc"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Notifier struct {
	topic  string
	writer MessageWriter
	retry  time.Duration
}

type Option func(n *Notifier)

func WithWriter(w MessageWriter) Option {
	return func(n *Notifier) {
		n.writer = w
	}
}

func New(brokers []string, topic string, opts ...Option) *Notifier {
	n := &Notifier{
		topic: topic,
		retry: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.writer == nil {
		n.writer = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
		}
	}

	return n
}

func (n *Notifier) Notify(ctx context.Context, e sepadoc.Event) error {
	value, err := sepadoc.MarshalEvent(e)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(e.Key()),
		Value: value,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.ID)},
			{Key: "event_type", Value: []byte(e.Type.String())},
			{Key: "stage", Value: []byte(strconv.Itoa(int(e.Stage)))},
		},
	}

	for ctx.Err() == nil {
		err := n.writer.WriteMessages(ctx, msg)
		if errors.Is(err, kafka.LeaderNotAvailable) {
			time.Sleep(n.retry)
			continue
		} else if err != nil {
			return jerrors.Wrap(sepadoc.ErrNotificationUnavailable, err.Error(), j.MKV{"topic": n.topic})
		}

		return nil
	}

	return ctx.Err()
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

var _ sepadoc.Notifier = (*Notifier)(nil)
