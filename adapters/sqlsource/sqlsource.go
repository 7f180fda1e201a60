// Package sqlsource fetches payment requests with a configured SQL query.
package sqlsource

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/shopspring/decimal"

	"github.com/luno/sepadoc"
)

const (
	BeginPlaceholder = "#SMURF#DateTimeRequestBegin#"
	EndPlaceholder   = "#SMURF#DateTimeRequestEnd#"

	// DefaultIDColumn holds the record identifier. It never becomes an attribute.
	DefaultIDColumn = "id_avis"

	boundLayout = "2006-01-02 15:04:05"
)

// A quoted placeholder is bound as a whole, quotes included.
var placeholder = regexp.MustCompile(`'?#SMURF#DateTimeRequest(Begin|End)#'?`)

type Source struct {
	db       *sql.DB
	query    string
	idColumn string
	log      sepadoc.ComponentLogger
}

type Option func(s *Source)

func WithIDColumn(name string) Option {
	return func(s *Source) {
		s.idColumn = name
	}
}

func WithLogger(l sepadoc.Logger) Option {
	return func(s *Source) {
		s.log = sepadoc.NewComponentLogger(l, "sqlsource")
	}
}

func New(db *sql.DB, query string, opts ...Option) *Source {
	s := &Source{
		db:       db,
		query:    query,
		idColumn: DefaultIDColumn,
		log:      sepadoc.NewComponentLogger(sepadoc.NoopLogger{}, "sqlsource"),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewFromSettings reads database.sql and database.id_column.
func NewFromSettings(db *sql.DB, s *sepadoc.Settings, opts ...Option) *Source {
	opts = append([]Option{WithIDColumn(s.StringOr(sepadoc.KeyDatabaseIDColumn, DefaultIDColumn))}, opts...)
	return New(db, s.StringOr(sepadoc.KeyDatabaseQuery, ""), opts...)
}

func (s *Source) Fetch(ctx context.Context, dr sepadoc.DateRange) ([]*sepadoc.Record, error) {
	if err := dr.Validate(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(s.query) == "" {
		return nil, errors.Wrap(sepadoc.ErrSourceNotConfigured, "", j.MKV{"key": sepadoc.KeyDatabaseQuery})
	}

	query, args := bind(s.query, dr)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, classify(ctx, err)
	}

	idIndex := -1
	for i, c := range cols {
		if strings.EqualFold(c.Name(), s.idColumn) {
			idIndex = i
			break
		}
	}

	if idIndex < 0 {
		return nil, errors.Wrap(sepadoc.ErrSourceQuery, "identifier column missing from result", j.MKV{"column": s.idColumn})
	}

	var records []*sepadoc.Record
	for rows.Next() {
		raw := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, classify(ctx, err)
		}

		id, err := identifier(raw[idIndex])
		if err != nil {
			return nil, errors.Wrap(sepadoc.ErrSourceQuery, err.Error(), j.MKV{"column": s.idColumn})
		}

		attrs := make(map[string]sepadoc.Value, len(cols)-1)
		for i, c := range cols {
			if i == idIndex {
				continue
			}

			v, ok, err := convert(c.DatabaseTypeName(), raw[i])
			if err != nil {
				return nil, errors.Wrap(sepadoc.ErrSourceQuery, err.Error(), j.MKV{"column": c.Name()})
			} else if !ok {
				continue
			}

			attrs[c.Name()] = v
		}

		records = append(records, sepadoc.NewRecord(id, attrs))
	}

	if err := rows.Err(); err != nil {
		return nil, classify(ctx, err)
	}

	s.log.Debug(ctx, "records fetched", sepadoc.MKV{
		"start": dr.Start.Format(boundLayout),
		"end":   dr.End.Format(boundLayout),
		"count": strconv.Itoa(len(records)),
	})

	return records, nil
}

// bind rewrites the date placeholders into positional parameters, in order of appearance.
func bind(query string, dr sepadoc.DateRange) (string, []any) {
	var args []any
	out := placeholder.ReplaceAllStringFunc(query, func(match string) string {
		if strings.Contains(match, BeginPlaceholder) {
			args = append(args, dr.Start.Format(boundLayout))
		} else {
			args = append(args, dr.End.Format(boundLayout))
		}

		return "?"
	})

	return out, args
}

func identifier(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, stderrors.New("identifier is null")
	default:
		return 0, stderrors.New("identifier is not an integer")
	}
}

var dateLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// convert maps a scanned column onto a Value. NULL columns are left out of the attribute bag.
func convert(dbType string, raw any) (sepadoc.Value, bool, error) {
	switch v := raw.(type) {
	case nil:
		return sepadoc.Value{}, false, nil
	case int64:
		return sepadoc.IntValue(v), true, nil
	case float64:
		if isDecimal(dbType) {
			return sepadoc.DecimalValue(decimal.NewFromFloat(v)), true, nil
		}
		return sepadoc.FloatValue(v), true, nil
	case bool:
		return sepadoc.BoolValue(v), true, nil
	case time.Time:
		return sepadoc.DateValue(v), true, nil
	case []byte:
		return parseText(dbType, string(v))
	case string:
		return parseText(dbType, v)
	default:
		return sepadoc.Value{}, false, stderrors.New("unsupported column type " + dbType)
	}
}

func parseText(dbType, s string) (sepadoc.Value, bool, error) {
	switch t := strings.ToUpper(dbType); {
	case isDecimal(t):
		d, err := decimal.NewFromString(s)
		if err != nil {
			return sepadoc.Value{}, false, err
		}
		return sepadoc.DecimalValue(d), true, nil
	case strings.Contains(t, "INT"):
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return sepadoc.Value{}, false, err
		}
		return sepadoc.IntValue(i), true, nil
	case t == "FLOAT" || t == "DOUBLE" || t == "REAL":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return sepadoc.Value{}, false, err
		}
		return sepadoc.FloatValue(f), true, nil
	case t == "DATE" || t == "DATETIME" || t == "TIMESTAMP":
		for _, layout := range dateLayouts {
			d, err := time.Parse(layout, s)
			if err == nil {
				return sepadoc.DateValue(d), true, nil
			}
		}
		return sepadoc.Value{}, false, stderrors.New("unparseable date " + s)
	default:
		return sepadoc.StringValue(s), true, nil
	}
}

func isDecimal(dbType string) bool {
	t := strings.ToUpper(dbType)
	return t == "DECIMAL" || t == "NUMERIC"
}

// MySQL server errors rejecting the account.
var credentialErrors = map[uint16]bool{
	1044: true, // ER_DBACCESS_DENIED_ERROR
	1045: true, // ER_ACCESS_DENIED_ERROR
	1698: true, // ER_ACCESS_DENIED_NO_PASSWORD_ERROR
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var myErr *mysql.MySQLError
	if stderrors.As(err, &myErr) && credentialErrors[myErr.Number] {
		return errors.Wrap(sepadoc.ErrSourceCredentials, err.Error())
	}

	var netErr net.Error
	if stderrors.Is(err, driver.ErrBadConn) || stderrors.Is(err, mysql.ErrInvalidConn) || stderrors.As(err, &netErr) {
		return errors.Wrap(sepadoc.ErrSourceConnectivity, err.Error())
	}

	return errors.Wrap(sepadoc.ErrSourceQuery, err.Error())
}

var _ sepadoc.RecordSource = (*Source)(nil)
