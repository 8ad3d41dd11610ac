package db

import (
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// sqlitePragmas are applied by the driver on every new connection.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

func init() {
	// sqlx does not know the modernc driver name; it uses '?' placeholders.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// DriverName maps a configured backend ("sqlite", "postgres") to its driver.
func DriverName(backend string) (string, error) {
	switch strings.ToLower(backend) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", backend)
	}
}

// Open opens a database connection. For SQLite, dsn is a file path (or
// ":memory:") and the connection pragmas are added to it.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if driver == DriverSQLite {
		// A single connection serialises writers and keeps in-memory
		// databases from splitting across connections.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

// sqliteDSN turns a path into a modernc URI carrying the connection pragmas.
func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}

	params := url.Values{}
	for _, p := range sqlitePragmas {
		if path == ":memory:" && strings.HasPrefix(p, "journal_mode") {
			continue
		}
		params.Add("_pragma", p)
	}
	params.Set("_time_format", "sqlite")

	return "file:" + path + "?" + params.Encode()
}
