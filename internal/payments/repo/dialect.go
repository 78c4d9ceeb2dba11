package repo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	name string
}

// Driver names accepted by DialectFor. They match the database/sql driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMySQL:
		return Dialect{name: DriverMySQL}, nil
	case DriverPostgres, "postgres", "postgresql":
		return Dialect{name: DriverPostgres}, nil
	case DriverSQLite, "sqlite3":
		return Dialect{name: DriverSQLite}, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// Name returns the database/sql driver name.
func (d Dialect) Name() string { return d.name }

// Bind rewrites ? placeholders to $n for postgres.
func (d Dialect) Bind(query string) string {
	if d.name != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Conflict names the unique constraint a failed insert ran into.
type Conflict int

const (
	ConflictNone Conflict = iota
	ConflictReference
	ConflictLiveKey
	ConflictOther
)

// UniqueConflict classifies a unique-constraint violation from any supported driver.
func UniqueConflict(err error) Conflict {
	if err == nil {
		return ConflictNone
	}
	var detail string
	var myErr *mysql.MySQLError
	var pgErr *pgconn.PgError
	var liteErr *sqlite.Error
	switch {
	case errors.As(err, &myErr) && myErr.Number == 1062:
		detail = myErr.Message
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		detail = pgErr.ConstraintName + " " + pgErr.Detail
	case errors.As(err, &liteErr) && (liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY):
		detail = liteErr.Error()
	default:
		return ConflictNone
	}
	detail = strings.ToLower(detail)
	switch {
	case strings.Contains(detail, "live_key"):
		return ConflictLiveKey
	case strings.Contains(detail, "reference"):
		return ConflictReference
	}
	return ConflictOther
}
