// Package sqlite provides the SQLite storage adapter. The default
// driver is mattn/go-sqlite3 (cgo); NewWithDriver("sqlite") selects the
// pure-Go modernc.org/sqlite driver instead.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/storage"
)

// DriverMattn and DriverModernc are the registered driver names of the
// two bundled SQLite drivers.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// Adapter executes compiled statements against a SQLite database.
type Adapter struct {
	Path       string
	DriverName string

	db *sql.DB
}

// New creates an adapter over the database file at path using the
// default (mattn) driver.
func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverMattn}
}

// NewWithDriver selects an explicit registered driver name.
func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

// Backend implements storage.Adapter.
func (a *Adapter) Backend() storage.Backend { return storage.BackendSQLite }

// PlaceholderStyle implements storage.Adapter.
func (a *Adapter) PlaceholderStyle() plan.PlaceholderStyle { return plan.PlaceholderQuestion }

// Decoder implements storage.Adapter.
func (a *Adapter) Decoder() storage.Decoder { return storage.SQLiteDecoder() }

// Connect opens the database and applies the required pragmas:
// WAL mode for concurrent reads during writes, a 5-second busy timeout
// for lock contention, and foreign key enforcement. SQLite supports one
// writer at a time, so the pool is capped at a single connection.
// Idempotent: a second call is a no-op.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	db, err := sql.Open(a.DriverName, a.Path)
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connect sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	a.db = db
	return nil
}

// Close implements storage.Adapter.
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// DB exposes the underlying handle for schema setup and tests.
func (a *Adapter) DB() *sql.DB { return a.db }

// Execute implements storage.Adapter.
func (a *Adapter) Execute(ctx context.Context, p *plan.Plan, stmt string, params []any, decode storage.DecodeFunc, opts storage.Options) (int64, [][]any, error) {
	if a.db == nil {
		return 0, nil, fmt.Errorf("sqlite adapter is not connected")
	}
	return storage.Run(ctx, a.db, p, stmt, params, decode, opts)
}
