// Package storage defines the adapter boundary the execution core drives:
// executing a compiled statement against a backend and decoding raw
// column values positionally against the plan's selection leaves.
package storage

import (
	"context"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/selection"
)

// Backend identifies a storage backend.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// DecodeFunc decodes the raw value(s) spanned by one selection leaf into
// one decoded value. For EntityFields leaves raw is a []any holding one
// raw value per projected field; for every other leaf it is the single
// raw column value.
//
// Adapters invoke the callback exactly once per leaf, in row-major,
// left-to-right leaf order, and assemble each decoded row in that same
// order.
type DecodeFunc func(ctx context.Context, leaf selection.LeafSpec, raw any) (any, error)

// Options carries per-call execution options. Extra holds
// adapter-specific passthrough options; recognized keys are
// adapter-defined and are not validated by the core.
type Options struct {
	Prefix  string
	TraceID string
	Extra   map[string]any
}

// Decoder converts one raw storage value into one typed value given a
// declared type.
type Decoder interface {
	Decode(t schema.FieldType, raw any) (any, error)
}

// Adapter abstracts backend-specific execution.
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() plan.PlaceholderStyle

	Connect(ctx context.Context) error
	Close() error

	// Decoder returns the backend's scalar decoder.
	Decoder() Decoder

	// Execute runs a compiled statement. With a nil decode callback it
	// executes the statement and returns only the affected-row count.
	// With a callback it returns the count of returned rows and one
	// decoded value per selection leaf per row.
	Execute(ctx context.Context, p *plan.Plan, stmt string, params []any, decode DecodeFunc, opts Options) (int64, [][]any, error)
}
