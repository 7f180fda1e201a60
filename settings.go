package sepadoc

import (
	"sort"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/shopspring/decimal"
)

const (
	KeyTemplateFolder  = "folder.template"
	KeyTempFolder      = "folder.temp"
	KeyOutputFolder    = "folder.output"
	KeyArchiveFolder   = "folder.archive"
	KeyLogFolder       = "folder.log"
	KeyRequestTemplate = "template.request"
	KeyMissiveTemplate = "template.sepamail"
	KeyVoucherTemplate = "template.ack"
	KeyPDFWidth        = "pdf.width"
	KeyPDFHeight       = "pdf.height"
	KeyColourProfile   = "icc.profile"
	KeyFont            = "font.regular"
	KeyTokenMarker     = "token.marker"

	KeyDatabaseDriver   = "database.driver"
	KeyDatabaseDSN      = "database.dsn"
	KeyDatabaseHost     = "database.host"
	KeyDatabaseName     = "database.name"
	KeyDatabaseUser     = "database.user"
	KeyDatabasePassword = "database.password"
	KeyDatabaseQuery    = "database.sql"
	KeyDatabaseIDColumn = "database.id_column"
	KeyPaymentStart     = "payment.start"
	KeyPaymentEnd       = "payment.end"

	KeyBatchName    = "batch.name"
	KeyDeliveryMode = "delivery.mode"

	KeyMailServer        = "mail.smtp"
	KeyMailPort          = "mail.port"
	KeyMailUser          = "mail.user"
	KeyMailPassword      = "mail.password"
	KeyMailName          = "mail.name"
	KeyMailSender        = "mail.sender"
	KeyMailRecipient     = "mail.recipient"
	KeyMailRecipientName = "mail.recipientname"

	KeyKafkaBrokers  = "notify.kafka.brokers"
	KeyKafkaTopic    = "notify.kafka.topic"
	KeyAMQPURL       = "notify.amqp.url"
	KeyAMQPExchange  = "notify.amqp.exchange"
	KeyScheduleSpec  = "schedule.spec"
	KeyScheduleRange = "schedule.window"
	KeyLogBackend    = "log.backend"
	KeyHTTPAddr      = "http.addr"
	KeyViewport      = "ui.viewport.height"
)

// Settings is a read-only typed key value store. It is built once at start up and handed to every component that
// needs configuration.
type Settings struct {
	values map[string]Value
}

func NewSettings(values map[string]Value) *Settings {
	cp := make(map[string]Value, len(values))
	for k, v := range values {
		cp[k] = v
	}

	return &Settings{values: cp}
}

// Lookup returns the raw value stored under key.
func (s *Settings) Lookup(key string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}

	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present and, for strings, non-empty.
func (s *Settings) Has(key string) bool {
	v, ok := s.Lookup(key)
	if !ok {
		return false
	}

	if v.Type() == ValueTypeString {
		return v.s != ""
	}

	return true
}

// Keys returns all the keys in lexical order.
func (s *Settings) Keys() []string {
	if s == nil {
		return nil
	}

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}

func (s *Settings) get(key string) (Value, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return Value{}, errors.Wrap(ErrSettingNotFound, "", j.MKV{"key": key})
	}

	return v, nil
}

func (s *Settings) String(key string) (string, error) {
	v, err := s.get(key)
	if err != nil {
		return "", err
	}

	str, err := v.AsString()
	if err != nil {
		return "", errors.Wrap(err, "", j.MKV{"key": key})
	}

	return str, nil
}

func (s *Settings) Bool(key string) (bool, error) {
	v, err := s.get(key)
	if err != nil {
		return false, err
	}

	b, err := v.AsBool()
	if err != nil {
		return false, errors.Wrap(err, "", j.MKV{"key": key})
	}

	return b, nil
}

func (s *Settings) Int(key string) (int64, error) {
	v, err := s.get(key)
	if err != nil {
		return 0, err
	}

	i, err := v.AsInt()
	if err != nil {
		return 0, errors.Wrap(err, "", j.MKV{"key": key})
	}

	return i, nil
}

// Float returns the value under key as a float. Integers are widened.
func (s *Settings) Float(key string) (float64, error) {
	v, err := s.get(key)
	if err != nil {
		return 0, err
	}

	if v.Type() == ValueTypeInt {
		return float64(v.i), nil
	}

	f, err := v.AsFloat()
	if err != nil {
		return 0, errors.Wrap(err, "", j.MKV{"key": key})
	}

	return f, nil
}

func (s *Settings) Date(key string) (time.Time, error) {
	v, err := s.get(key)
	if err != nil {
		return time.Time{}, err
	}

	t, err := v.AsDate()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "", j.MKV{"key": key})
	}

	return t, nil
}

func (s *Settings) Decimal(key string) (decimal.Decimal, error) {
	v, err := s.get(key)
	if err != nil {
		return decimal.Decimal{}, err
	}

	d, err := v.AsDecimal()
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "", j.MKV{"key": key})
	}

	return d, nil
}

// StringOr returns the string under key, or def when the key is absent, empty or not a string.
func (s *Settings) StringOr(key, def string) string {
	str, err := s.String(key)
	if err != nil || str == "" {
		return def
	}

	return str
}

// IntOr returns the integer under key, or def when the key is absent or not an integer.
func (s *Settings) IntOr(key string, def int64) int64 {
	i, err := s.Int(key)
	if err != nil {
		return def
	}

	return i
}

// DateRange reads the configured payment period. Missing bounds are left zero so the record source can report
// exactly which bound is missing.
func (s *Settings) DateRange() DateRange {
	var dr DateRange
	if t, err := s.Date(KeyPaymentStart); err == nil {
		dr.Start = t
	}

	if t, err := s.Date(KeyPaymentEnd); err == nil {
		dr.End = t
	}

	return dr
}
