// Package store keeps accounts and their todo items in a relational
// database.
//
// SQLite is the default backend, Postgres is supported for deployments
// that need more than a single writer. Both share the same queries,
// placeholders are written as `?` and rebound for Postgres.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

type (
	// DB is safe for concurrent use, uniqueness and atomicity are left
	// to the underlying database.
	DB struct {
		db     *sql.DB
		driver string
	}

	Options struct {
		// Driver is either DriverSQLite or DriverPostgres
		Driver string
		// DSN for postgres, or a file path (or file: uri) for sqlite
		DSN string
	}
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var (
	//go:embed migrations
	migrations embed.FS
)

// Open connects to the database described by opts and applies any
// pending migration.
func Open(ctx context.Context, opts Options) (*DB, error) {
	var conn *sql.DB
	var err error
	switch opts.Driver {
	case "", DriverSQLite:
		opts.Driver = DriverSQLite
		conn, err = openSQLite(opts.DSN)
	case DriverPostgres:
		conn, err = sql.Open("pgx", opts.DSN)
	default:
		return nil, fmt.Errorf("store: unsupported driver %v", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("store: unable to open database, cause %w", err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: unable to ping database, cause %w", err)
	}
	d := &DB{db: conn, driver: opts.Driver}
	err = d.migrate(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: unable to apply migrations, cause %w", err)
	}
	return d, nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("missing sqlite database path")
	}
	connstr := dsn
	if !strings.HasPrefix(dsn, "file:") {
		err := os.MkdirAll(filepath.Dir(dsn), 0755)
		if err != nil {
			return nil, fmt.Errorf("unable to create directory to store %v, cause %w", dsn, err)
		}
		connstr = fmt.Sprintf("file:%v?_journal=wal&_fk=1&_busy_timeout=5000&mode=rwc", dsn)
	}
	return sql.Open("sqlite3", connstr)
}

func (d *DB) migrate(ctx context.Context) error {
	dialect := goose.DialectSQLite3
	dir := "migrations/sqlite"
	if d.driver == DriverPostgres {
		dialect = goose.DialectPostgres
		dir = "migrations/postgres"
	}
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, d.db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Ping checks if the database is still reachable
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

// rebind turns `?` placeholders into `$n` when talking to postgres
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
