// Package amqpnotifier publishes pipeline events to a RabbitMQ topic exchange.
package amqpnotifier

import (
	"context"

	"github.com/google/uuid"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/luno/sepadoc"
)

const contentType = "application/x-protobuf"

// Publisher is satisfied by *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Notifier struct {
	exchange  string
	publisher Publisher
	closers   []func() error
}

// New publishes on an existing channel. The exchange must already be declared.
func New(p Publisher, exchange string) *Notifier {
	return &Notifier{exchange: exchange, publisher: p}
}

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange string) (*Notifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(sepadoc.ErrNotificationUnavailable, err.Error())
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(sepadoc.ErrNotificationUnavailable, err.Error())
	}

	err = ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(sepadoc.ErrNotificationUnavailable, err.Error(), j.MKV{"exchange": exchange})
	}

	n := New(ch, exchange)
	n.closers = []func() error{ch.Close, conn.Close}
	return n, nil
}

// RoutingKey is sepadoc.{event type}, e.g. sepadoc.document_sent.
func RoutingKey(e sepadoc.Event) string {
	return "sepadoc." + e.Type.String()
}

func (n *Notifier) Notify(ctx context.Context, e sepadoc.Event) error {
	body, err := sepadoc.MarshalEvent(e)
	if err != nil {
		return err
	}

	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}

	err = n.publisher.PublishWithContext(ctx, n.exchange, RoutingKey(e), false, false, amqp.Publishing{
		ContentType:   contentType,
		Body:          body,
		DeliveryMode:  amqp.Persistent,
		MessageId:     id,
		CorrelationId: e.RunID,
		Type:          e.Type.String(),
		Timestamp:     e.CreatedAt,
		AppId:         "sepadoc",
	})
	if err != nil {
		return errors.Wrap(sepadoc.ErrNotificationUnavailable, err.Error(), j.MKV{"exchange": n.exchange})
	}

	return nil
}

func (n *Notifier) Close() error {
	for _, c := range n.closers {
		if err := c(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return err
		}
	}

	return nil
}

var _ sepadoc.Notifier = (*Notifier)(nil)
