// Package plan compiles a logical query into an execution plan and a
// parameterized SQL statement for one of the bulk operations (all,
// update_all, delete_all).
//
// CRITICAL: All caller values are parameterized (never interpolated).
// CRITICAL: Select statements carry a deterministic ORDER BY whenever
// the origin declares a single primary key, so repeated reads of the
// same state return rows in the same order.
package plan

import (
	"github.com/quarrydb/quarry/quarry/query"
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/selection"
)

// Op is the operation kind a query is compiled for.
type Op string

const (
	OpAll       Op = "all"
	OpUpdateAll Op = "update_all"
	OpDeleteAll Op = "delete_all"
)

// SourceInfo is one planned source: the table name and the record type
// it materializes to, or nil for schemaless/raw projections.
type SourceInfo struct {
	Name   string
	Record *schema.RecordType
}

// Assoc attaches the materialized record of a joined source to an
// association slot of the origin record after row decoding.
type Assoc struct {
	Field       string
	SourceIndex int
}

// Plan is the planner's output for one operation. Selection is nil for
// mutation-only statements (no RETURNING clause); the orchestrator then
// skips decoding and shaping entirely.
type Plan struct {
	Selection    *selection.Selection
	SourcePrefix string
	Sources      []SourceInfo
	Assocs       []Assoc
	Preloads     []query.Preload

	// Fingerprint is the canonical content hash of the logical query,
	// usable as a prepared-plan cache key.
	Fingerprint string
}
