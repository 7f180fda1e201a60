package sepadoc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ValueType identifies which variant a Value carries.
type ValueType int

const (
	ValueTypeUnknown  ValueType = 0
	ValueTypeBool     ValueType = 1
	ValueTypeDate     ValueType = 2
	ValueTypeFloat    ValueType = 3
	ValueTypeInt      ValueType = 4
	ValueTypeString   ValueType = 5
	ValueTypeDecimal  ValueType = 6
	valueTypeSentinel ValueType = 7
)

func (vt ValueType) String() string {
	switch vt {
	case ValueTypeUnknown:
		return "Unknown"
	case ValueTypeBool:
		return "Bool"
	case ValueTypeDate:
		return "Date"
	case ValueTypeFloat:
		return "Float"
	case ValueTypeInt:
		return "Int"
	case ValueTypeString:
		return "String"
	case ValueTypeDecimal:
		return "Decimal"
	default:
		return fmt.Sprintf("ValueType(%d)", vt)
	}
}

func (vt ValueType) Valid() bool {
	return vt > ValueTypeUnknown && vt < valueTypeSentinel
}

// DateLayout is the layout used when a date is written into a document.
const DateLayout = "02-01-2006"

// currencySuffix is appended to amounts rendered in the french currency format.
const currencySuffix = " €"

var frenchPrinter = message.NewPrinter(language.French)

// Value is a typed attribute or setting value. Exactly one variant is populated and the accessors fail with
// ErrWrongVariant when asked for another one.
type Value struct {
	typ ValueType
	b   bool
	t   time.Time
	f   float64
	i   int64
	s   string
	d   decimal.Decimal
}

func BoolValue(b bool) Value {
	return Value{typ: ValueTypeBool, b: b}
}

func DateValue(t time.Time) Value {
	return Value{typ: ValueTypeDate, t: t}
}

func FloatValue(f float64) Value {
	return Value{typ: ValueTypeFloat, f: f}
}

func IntValue(i int64) Value {
	return Value{typ: ValueTypeInt, i: i}
}

func StringValue(s string) Value {
	return Value{typ: ValueTypeString, s: s}
}

func DecimalValue(d decimal.Decimal) Value {
	return Value{typ: ValueTypeDecimal, d: d}
}

func (v Value) Type() ValueType {
	return v.typ
}

func (v Value) IsZero() bool {
	return v.typ == ValueTypeUnknown
}

func (v Value) AsBool() (bool, error) {
	if err := v.expect(ValueTypeBool); err != nil {
		return false, err
	}

	return v.b, nil
}

func (v Value) AsDate() (time.Time, error) {
	if err := v.expect(ValueTypeDate); err != nil {
		return time.Time{}, err
	}

	return v.t, nil
}

func (v Value) AsFloat() (float64, error) {
	if err := v.expect(ValueTypeFloat); err != nil {
		return 0, err
	}

	return v.f, nil
}

func (v Value) AsInt() (int64, error) {
	if err := v.expect(ValueTypeInt); err != nil {
		return 0, err
	}

	return v.i, nil
}

func (v Value) AsString() (string, error) {
	if err := v.expect(ValueTypeString); err != nil {
		return "", err
	}

	return v.s, nil
}

func (v Value) AsDecimal() (decimal.Decimal, error) {
	if err := v.expect(ValueTypeDecimal); err != nil {
		return decimal.Decimal{}, err
	}

	return v.d, nil
}

func (v Value) expect(want ValueType) error {
	if v.typ == want {
		return nil
	}

	return errors.Wrap(ErrWrongVariant, "", j.MKV{
		"want": want.String(),
		"have": v.typ.String(),
	})
}

// Format renders the value the way it is written into a document: dates as dd-MM-yyyy and amounts in the
// french currency format.
func (v Value) Format() string {
	switch v.typ {
	case ValueTypeDate:
		return v.t.Format(DateLayout)
	case ValueTypeDecimal:
		return formatDecimalAmount(v.d)
	case ValueTypeFloat:
		return formatAmount(v.f)
	default:
		return v.Raw()
	}
}

// Raw renders the value without any locale formatting.
func (v Value) Raw() string {
	switch v.typ {
	case ValueTypeBool:
		return strconv.FormatBool(v.b)
	case ValueTypeDate:
		return v.t.Format(time.DateOnly)
	case ValueTypeFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case ValueTypeInt:
		return strconv.FormatInt(v.i, 10)
	case ValueTypeString:
		return v.s
	case ValueTypeDecimal:
		return v.d.String()
	default:
		return ""
	}
}

func (v Value) String() string {
	return v.Raw()
}

func formatAmount(f float64) string {
	return frenchPrinter.Sprint(number.Decimal(f, number.Scale(2))) + currencySuffix
}

// Separators of the french number format, as the printer writes them.
var (
	groupSeparator   = between(frenchPrinter.Sprint(number.Decimal(1000000)), "1", "0")
	decimalSeparator = between(frenchPrinter.Sprint(number.Decimal(1.5, number.Scale(1))), "1", "5")
	minusSign        = between(frenchPrinter.Sprint(number.Decimal(-1)), "", "1")
)

func between(s, prefix, stop string) string {
	s = strings.TrimPrefix(s, prefix)
	if i := strings.Index(s, stop); i >= 0 {
		return s[:i]
	}

	return s
}

// formatDecimalAmount writes d in the french currency format from its own digits, rounded to cents.
func formatDecimalAmount(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, cents, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.Sign() < 0 && fixed != "0.00" {
		b.WriteString(minusSign)
	}

	for i := 0; i < len(whole); i++ {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(groupSeparator)
		}
		b.WriteByte(whole[i])
	}

	b.WriteString(decimalSeparator)
	b.WriteString(cents)
	b.WriteString(currencySuffix)

	return b.String()
}
