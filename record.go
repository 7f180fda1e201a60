package sepadoc

import (
	"sort"
	"strconv"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Record is one payment request. Attributes are immutable once fetched. Selected and DocumentPath are owned by the
// Pipeline while a stage is running.
type Record struct {
	ID           int64
	Attributes   map[string]Value
	Selected     bool
	DocumentPath string
}

// NewRecord returns a record that is selected for generation.
func NewRecord(id int64, attributes map[string]Value) *Record {
	if attributes == nil {
		attributes = make(map[string]Value)
	}

	return &Record{
		ID:         id,
		Attributes: attributes,
		Selected:   true,
	}
}

func (r *Record) Attribute(name string) (Value, error) {
	v, ok := r.Attributes[name]
	if !ok || v.IsZero() {
		return Value{}, errors.Wrap(ErrAttributeNotFound, "", j.MKV{
			"record_id": r.ID,
			"attribute": name,
		})
	}

	return v, nil
}

// FormattedAttribute returns the attribute rendered for a document.
func (r *Record) FormattedAttribute(name string) (string, error) {
	v, err := r.Attribute(name)
	if err != nil {
		return "", err
	}

	return v.Format(), nil
}

func (r *Record) HasDocument() bool {
	return r.DocumentPath != ""
}

// AttributeNames returns the attribute names in lexical order.
func (r *Record) AttributeNames() []string {
	names := make([]string, 0, len(r.Attributes))
	for name := range r.Attributes {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func (r *Record) IDString() string {
	return strconv.FormatInt(r.ID, 10)
}

// clone returns a copy that shares the immutable attributes.
func (r *Record) clone() *Record {
	cp := *r
	return &cp
}

// DateRange bounds the payment period requested from a RecordSource.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate returns the condition matching the missing bound(s).
func (dr DateRange) Validate() error {
	switch {
	case dr.Start.IsZero() && dr.End.IsZero():
		return ErrDatesNotSpecified
	case dr.Start.IsZero():
		return ErrStartDateNotSpecified
	case dr.End.IsZero():
		return ErrEndDateNotSpecified
	case dr.Start.After(dr.End):
		return errors.Wrap(ErrInvalidDateRange, "", j.MKV{
			"start": dr.Start.Format(time.DateTime),
			"end":   dr.End.Format(time.DateTime),
		})
	default:
		return nil
	}
}
