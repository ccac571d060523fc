// Package query defines the logical query the execution core runs:
// an originating source, optional joins, conjunctive filters, a select
// expression, update expressions for bulk mutations, and preload specs.
//
// Queries are immutable once handed to the planner. Derivation helpers
// (Where, WithUpdates, ...) return modified copies and never mutate the
// receiver, so a compiled query can be derived from safely.
//
// Predicate and Update are sealed interfaces using the marker method
// pattern, mirroring the selection package: backend compilers switch
// over the closed variant set exhaustively.
package query

import (
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/selection"
)

// Source is one queryable source: a storage table plus the record type
// it materializes to, or no record type for schemaless/raw projections.
type Source struct {
	Name   string
	Record *schema.RecordType
}

// SourceOf builds the Source for a record type.
func SourceOf(rt *schema.RecordType) Source {
	return Source{Name: rt.Source, Record: rt}
}

// Join is an inner equi-join of another source against an earlier one.
// The joined source's OnField must equal ParentField of the source at
// ParentIndex (0 = origin). If Assoc is set, the joined record is merged
// into that association slot of the origin after materialization.
type Join struct {
	Source      Source
	ParentIndex int
	ParentField string
	OnField     string
	Assoc       string
}

// Preload asks for related records of each result row to be fetched in a
// follow-up query and attached under Field of the origin record: all
// records of Record whose ForeignKey is in the set of origin ParentKey
// values.
type Preload struct {
	Field      string
	Record     *schema.RecordType
	ForeignKey string
	ParentKey  string
}

// OrderBy orders results by one origin field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Query is a logical query. The zero value is not usable; start from New.
type Query struct {
	From     Source
	Joins    []Join
	Wheres   []Predicate
	Select   selection.Node // nil: planner picks the operation default
	Updates  []Update
	Preloads []Preload
	OrderBys []OrderBy
	Limit    int // 0 = no limit
}

// New builds a query over the given source.
func New(from Source) *Query {
	return &Query{From: from}
}

// clone returns a shallow copy with freshly copied slices, so derived
// queries never alias the original's backing arrays.
func (q *Query) clone() *Query {
	dup := *q
	dup.Joins = append([]Join(nil), q.Joins...)
	dup.Wheres = append([]Predicate(nil), q.Wheres...)
	dup.Updates = append([]Update(nil), q.Updates...)
	dup.Preloads = append([]Preload(nil), q.Preloads...)
	dup.OrderBys = append([]OrderBy(nil), q.OrderBys...)
	return &dup
}

// Where returns a copy with the predicate appended to the conjunction.
func (q *Query) Where(p Predicate) *Query {
	dup := q.clone()
	dup.Wheres = append(dup.Wheres, p)
	return dup
}

// WithSelect returns a copy with the select expression replaced.
func (q *Query) WithSelect(n selection.Node) *Query {
	dup := q.clone()
	dup.Select = n
	return dup
}

// WithUpdates returns a copy with the update expressions replaced.
func (q *Query) WithUpdates(updates []Update) *Query {
	dup := q.clone()
	dup.Updates = append([]Update(nil), updates...)
	return dup
}

// WithJoin returns a copy with the join appended.
func (q *Query) WithJoin(j Join) *Query {
	dup := q.clone()
	dup.Joins = append(dup.Joins, j)
	return dup
}

// WithPreload returns a copy with the preload appended.
func (q *Query) WithPreload(p Preload) *Query {
	dup := q.clone()
	dup.Preloads = append(dup.Preloads, p)
	return dup
}

// WithOrder returns a copy with the ordering appended.
func (q *Query) WithOrder(o OrderBy) *Query {
	dup := q.clone()
	dup.OrderBys = append(dup.OrderBys, o)
	return dup
}

// WithLimit returns a copy with the row limit set.
func (q *Query) WithLimit(n int) *Query {
	dup := q.clone()
	dup.Limit = n
	return dup
}

// Predicate is a filter condition over origin fields. Sealed.
//
// Predicate types:
//   - Equals: field = value
//   - In:     field IN (values...)
//   - And:    all predicates must hold
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals filters rows where the origin field equals the value.
// The value is always parameterized, never interpolated.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// In filters rows where the origin field is one of the values.
type In struct {
	Field  string
	Values []any
}

func (In) predicateNode() {}

// And is the conjunction of its predicates. Empty And is vacuously true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Update is one bulk-update expression. Sealed.
//
// Update types:
//   - Set: field = value
//   - Inc: field = field + delta
type Update interface {
	updateNode() // Marker method - seals interface to this package
}

// Set assigns a value to a field on every matched row.
type Set struct {
	Field string
	Value any
}

func (Set) updateNode() {}

// Inc adds a delta to a numeric field on every matched row.
type Inc struct {
	Field string
	Delta any
}

func (Inc) updateNode() {}
