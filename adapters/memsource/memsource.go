package memsource

import (
	"context"
	"sync"

	"github.com/luno/sepadoc"
)

// New returns an in-memory RecordSource holding records in source order.
func New(records []*sepadoc.Record, opts ...Option) *Source {
	var opt options
	for _, o := range opts {
		o(&opt)
	}

	s := &Source{dateAttribute: opt.dateAttribute}
	for _, r := range records {
		s.records = append(s.records, copyRecord(r))
	}

	return s
}

type options struct {
	dateAttribute string
}

type Option func(o *options)

// WithDateAttribute only returns records whose date attribute falls inside the requested range, both bounds
// included. Records without the attribute are skipped.
func WithDateAttribute(name string) Option {
	return func(o *options) {
		o.dateAttribute = name
	}
}

type Source struct {
	mu            sync.Mutex
	records       []*sepadoc.Record
	dateAttribute string
	err           error
	fetches       []sepadoc.DateRange
}

func (s *Source) Fetch(ctx context.Context, dr sepadoc.DateRange) ([]*sepadoc.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetches = append(s.fetches, dr)

	if err := dr.Validate(); err != nil {
		return nil, err
	}

	if s.err != nil {
		return nil, s.err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*sepadoc.Record
	for _, r := range s.records {
		if !s.inRange(r, dr) {
			continue
		}

		out = append(out, copyRecord(r))
	}

	return out, nil
}

func (s *Source) inRange(r *sepadoc.Record, dr sepadoc.DateRange) bool {
	if s.dateAttribute == "" {
		return true
	}

	v, err := r.Attribute(s.dateAttribute)
	if err != nil {
		return false
	}

	t, err := v.AsDate()
	if err != nil {
		return false
	}

	return !t.Before(dr.Start) && !t.After(dr.End)
}

// SetError makes every following Fetch fail with err. A nil err restores normal behaviour.
func (s *Source) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// Fetches returns the date ranges requested so far.
func (s *Source) Fetches() []sepadoc.DateRange {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]sepadoc.DateRange(nil), s.fetches...)
}

func copyRecord(r *sepadoc.Record) *sepadoc.Record {
	attrs := make(map[string]sepadoc.Value, len(r.Attributes))
	for k, v := range r.Attributes {
		attrs[k] = v
	}

	return sepadoc.NewRecord(r.ID, attrs)
}

var _ sepadoc.RecordSource = (*Source)(nil)
