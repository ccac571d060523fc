// Package postgres provides the Postgres storage adapter, built on
// pgx/v5 through its database/sql compatibility layer.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/storage"
)

// Adapter executes compiled statements against a Postgres database.
// When SearchPath is set the connection pins search_path to it (with
// public as fallback for built-ins), which pairs with the planner's
// source-prefix qualification.
type Adapter struct {
	DSN        string
	SearchPath string

	db *sql.DB
}

// New creates an adapter for the given DSN.
func New(dsn string) *Adapter {
	return &Adapter{DSN: dsn}
}

// NewWithSearchPath creates an adapter pinned to a schema.
func NewWithSearchPath(dsn, searchPath string) *Adapter {
	return &Adapter{DSN: dsn, SearchPath: searchPath}
}

// Backend implements storage.Adapter.
func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

// PlaceholderStyle implements storage.Adapter.
func (a *Adapter) PlaceholderStyle() plan.PlaceholderStyle { return plan.PlaceholderDollar }

// Decoder implements storage.Adapter. pgx returns native Go values
// (time.Time for timestamps), so no textual time layouts are needed.
func (a *Adapter) Decoder() storage.Decoder { return storage.NewScalarDecoder() }

// Connect opens the database via pgx's stdlib driver.
// Idempotent: a second call is a no-op.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return fmt.Errorf("parse postgres DSN: %w", err)
	}
	if a.SearchPath != "" {
		if cfg.RuntimeParams == nil {
			cfg.RuntimeParams = make(map[string]string)
		}
		cfg.RuntimeParams["search_path"] = fmt.Sprintf("%q,public", a.SearchPath)
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connect postgres database: %w", err)
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
		return 0, nil, fmt.Errorf("postgres adapter is not connected")
	}
	return storage.Run(ctx, a.db, p, stmt, params, decode, opts)
}
