package sqlsource

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	_ "modernc.org/sqlite"

	"github.com/luno/sepadoc"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Open connects to the database named by the database.* settings. database.dsn wins over the individual
// host, name, user and password keys.
func Open(s *sepadoc.Settings) (*sql.DB, error) {
	driver := s.StringOr(sepadoc.KeyDatabaseDriver, DriverMySQL)
	dsn := s.StringOr(sepadoc.KeyDatabaseDSN, "")

	switch driver {
	case DriverMySQL:
		if dsn == "" {
			dsn = MySQLDSN(
				s.StringOr(sepadoc.KeyDatabaseHost, "localhost:3306"),
				s.StringOr(sepadoc.KeyDatabaseName, ""),
				s.StringOr(sepadoc.KeyDatabaseUser, ""),
				s.StringOr(sepadoc.KeyDatabasePassword, ""),
			)
		}
		return sql.Open(DriverMySQL, dsn)
	case DriverSQLite:
		if dsn == "" {
			dsn = s.StringOr(sepadoc.KeyDatabaseName, "")
		}
		return OpenSQLite(dsn)
	default:
		return nil, errors.Wrap(sepadoc.ErrSourceNotConfigured, "unknown database driver", j.MKV{"driver": driver})
	}
}

func MySQLDSN(host, name, user, password string) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = name
	cfg.User = user
	cfg.Passwd = password
	cfg.ParseTime = true

	return cfg.FormatDSN()
}

// OpenSQLite opens a single connection database file, so an in-memory path keeps one database.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite", j.MKV{"path": path})
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, err = db.Exec("PRAGMA busy_timeout=5000")
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set pragma")
	}

	return db, nil
}
