// Package mailer delivers generated documents by mail over SMTP.
package mailer

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"path/filepath"
	"time"

	jerrors "github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/wneessen/go-mail"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/delivery"
)

// Subject is used as the subject and the body of every message.
const Subject = "Avis de paiement SEPAmail"

const defaultTimeout = 30 * time.Second

// Config holds the mail.* settings. Every field is required.
type Config struct {
	Server        string
	Port          int
	User          string
	Password      string
	Name          string
	Sender        string
	Recipient     string
	RecipientName string
}

// ConfigFromSettings reads the mail.* settings. The first missing key fails with ErrDeliveryParameterNotDefined.
func ConfigFromSettings(s *sepadoc.Settings) (Config, error) {
	var c Config
	strs := []struct {
		key string
		dst *string
	}{
		{sepadoc.KeyMailServer, &c.Server},
		{sepadoc.KeyMailUser, &c.User},
		{sepadoc.KeyMailPassword, &c.Password},
		{sepadoc.KeyMailName, &c.Name},
		{sepadoc.KeyMailSender, &c.Sender},
		{sepadoc.KeyMailRecipient, &c.Recipient},
		{sepadoc.KeyMailRecipientName, &c.RecipientName},
	}

	for _, f := range strs {
		v := s.StringOr(f.key, "")
		if v == "" {
			return Config{}, notDefined(f.key)
		}

		*f.dst = v
	}

	port, err := s.Int(sepadoc.KeyMailPort)
	if err != nil || port <= 0 {
		return Config{}, notDefined(sepadoc.KeyMailPort)
	}
	c.Port = int(port)

	return c, nil
}

func notDefined(key string) error {
	return jerrors.Wrap(sepadoc.ErrDeliveryParameterNotDefined, "", j.MKV{"key": key})
}

// Sender sends built messages. *mail.Client implements it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Mailer struct {
	cfg    Config
	sender Sender
	log    sepadoc.Logger
}

type Option func(m *Mailer)

// WithSender replaces the SMTP client, mostly for testing.
func WithSender(s Sender) Option {
	return func(m *Mailer) {
		m.sender = s
	}
}

func New(cfg Config, l sepadoc.Logger, opts ...Option) (*Mailer, error) {
	m := &Mailer{cfg: cfg, log: sepadoc.NewComponentLogger(l, "mailer")}
	for _, opt := range opts {
		opt(m)
	}

	if m.sender != nil {
		return m, nil
	}

	client, err := mail.NewClient(cfg.Server,
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(defaultTimeout),
	)
	if err != nil {
		return nil, jerrors.Wrap(sepadoc.ErrDeliveryParameterNotDefined, err.Error(), j.MKV{"server": cfg.Server})
	}

	m.sender = client
	return m, nil
}

// NewTransportFactory reads the mail settings for every Send stage in direct mode.
func NewTransportFactory(s *sepadoc.Settings, l sepadoc.Logger, opts ...Option) delivery.TransportFactory {
	return func(ctx context.Context) (delivery.Transport, error) {
		cfg, err := ConfigFromSettings(s)
		if err != nil {
			return nil, err
		}

		return New(cfg, l, opts...)
	}
}

// Send mails the document at documentPath as an attachment.
func (m *Mailer) Send(ctx context.Context, documentPath string, r *sepadoc.Record) error {
	msg, err := m.message(documentPath)
	if err != nil {
		return err
	}

	err = m.sender.DialAndSendWithContext(ctx, msg)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return classify(err, documentPath)
	}

	m.log.Debug(ctx, "mail sent", sepadoc.MKV{
		"record_id": r.IDString(),
		"recipient": m.cfg.Recipient,
		"document":  filepath.Base(documentPath),
	})
	return nil
}

func (m *Mailer) message(documentPath string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	err := msg.FromFormat(m.cfg.Name, m.cfg.Sender)
	if err != nil {
		return nil, jerrors.Wrap(sepadoc.ErrDeliveryParameterNotDefined, err.Error(), j.MKV{"key": sepadoc.KeyMailSender})
	}

	err = msg.AddToFormat(m.cfg.RecipientName, m.cfg.Recipient)
	if err != nil {
		return nil, jerrors.Wrap(sepadoc.ErrDeliveryParameterNotDefined, err.Error(), j.MKV{"key": sepadoc.KeyMailRecipient})
	}

	msg.Subject(Subject)
	msg.SetBodyString(mail.TypeTextPlain, Subject)
	msg.AttachFile(documentPath)

	return msg, nil
}

// SMTP reply codes rejecting authentication.
var credentialCodes = map[int]bool{
	530: true,
	534: true,
	535: true,
}

// classify maps an SMTP failure onto the delivery transport errors.
func classify(err error, documentPath string) error {
	meta := j.MKV{"document": filepath.Base(documentPath)}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && credentialCodes[protoErr.Code] {
		return jerrors.Wrap(sepadoc.ErrDeliveryCredentials, err.Error(), meta)
	}

	var sendErr *mail.SendError
	if errors.As(err, &sendErr) && sendErr.Reason == mail.ErrConnCheck {
		return jerrors.Wrap(sepadoc.ErrDeliveryConnectivity, err.Error(), meta)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return jerrors.Wrap(sepadoc.ErrDeliveryConnectivity, err.Error(), meta)
	}

	return jerrors.Wrap(sepadoc.ErrDeliveryFailed, err.Error(), meta)
}

var _ delivery.Transport = (*Mailer)(nil)
