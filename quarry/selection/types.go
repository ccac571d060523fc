// Package selection models the shape a query's select expression asks
// for: a nested template over tuples, pairs, mappings, lists, literals,
// and leaves, plus the flattened leaf list a storage adapter decodes a
// row against.
//
// The template and the leaf list are two views of the same expression.
// The central invariant of the package is ordering: flattening the
// template in shaping-traversal order must reproduce the leaf list, so
// that the row shaper consumes decoded values at exactly the rate and
// order the adapter produced them.
//
// SEALED INTERFACES:
//
// Node and LeafSpec are sealed interfaces using the marker method
// pattern. Only types in this package implement them, which keeps type
// switches over selection shapes exhaustive: adding a new shape fails to
// compile every switch that does not handle it.
package selection

import "github.com/quarrydb/quarry/quarry/schema"

// Node is one node of a selection template.
//
// Node types:
//   - EntityRef: whole materialized source, threaded from context
//   - Tuple:     fixed-size ordered product
//   - Pair:      binary product (2-tuple, surfaced separately)
//   - Mapping:   ordered key/value pairs
//   - List:      ordered sequence
//   - Literal:   constant, never consumes a row value
//   - Leaf:      consumes exactly one decoded row value
type Node interface {
	selectionNode() // Marker method - seals interface to this package
}

// EntityRef refers to an entire materialized source. It never consumes
// from the flat value queue: the shaper substitutes the origin record
// threaded in by the execution orchestrator. Only index 0 (the origin)
// is ever emitted by the planner; joined whole-record projections appear
// as Leaf(EntityFields) nodes instead.
type EntityRef struct {
	Index int
}

func (EntityRef) selectionNode() {}

// Tuple assembles its children into a fixed-size ordered product.
type Tuple struct {
	Children []Node
}

func (Tuple) selectionNode() {}

// Pair is a binary product. Structurally identical to a 2-element Tuple;
// kept as its own shape because callers may build 2-tuples specially.
type Pair struct {
	Left  Node
	Right Node
}

func (Pair) selectionNode() {}

// MapEntry is one key/value pair of a Mapping. The key is shaped before
// the value; both may consume row values.
type MapEntry struct {
	Key   Node
	Value Node
}

// Mapping assembles ordered key/value pairs into a map. Pair order is
// the shaping order; on duplicate keys the later pair wins.
type Mapping struct {
	Entries []MapEntry
}

func (Mapping) selectionNode() {}

// List assembles its children into an ordered sequence of the same
// length.
type List struct {
	Children []Node
}

func (List) selectionNode() {}

// Literal yields a constant value and never consumes a row value.
type Literal struct {
	Value any
}

func (Literal) selectionNode() {}

// Leaf consumes exactly one element of the decoded-value queue for its
// row. The spec describes what the adapter decoded at that position.
type Leaf struct {
	Spec LeafSpec
}

func (Leaf) selectionNode() {}

// LeafSpec describes one decoded row position.
//
// LeafSpec types:
//   - EntityFields: whole-record projection of one source
//   - FieldAccess:  one scalar field of one source
//   - Aggregate:    avg/min/max/sum over one field
//   - TaggedValue:  explicitly type-annotated expression
//   - Opaque:       storage-level expression, passed through undecoded
type LeafSpec interface {
	leafSpec() // Marker method - seals interface to this package
}

// EntityFields projects the whole record of the source at Index. The
// adapter hands the preprocessor one raw value per field, grouped as a
// single flat sequence; decoding produces one composite record value.
type EntityFields struct {
	Index  int
	Fields []string
}

func (EntityFields) leafSpec() {}

// FieldAccess projects one scalar field of the source at Index, decoded
// against the declared type.
type FieldAccess struct {
	Index int
	Field string
	Type  schema.FieldType
}

func (FieldAccess) leafSpec() {}

// AggregateKind enumerates the supported aggregate functions.
type AggregateKind string

const (
	AggAvg AggregateKind = "avg"
	AggMin AggregateKind = "min"
	AggMax AggregateKind = "max"
	AggSum AggregateKind = "sum"
)

// Aggregate projects kind(field) of the source at Index, decoded against
// the declared result type.
type Aggregate struct {
	Kind  AggregateKind
	Index int
	Field string
	Type  schema.FieldType
}

func (Aggregate) leafSpec() {}

// TaggedValue projects a storage-level expression carrying an explicit
// type tag. Expr is a trusted planner-level fragment, never derived from
// caller data.
type TaggedValue struct {
	Expr string
	Type schema.FieldType
}

func (TaggedValue) leafSpec() {}

// Opaque projects a storage-level expression with no declared type. The
// raw value is passed through undecoded. Expr is a trusted planner-level
// fragment.
type Opaque struct {
	Expr string
}

func (Opaque) leafSpec() {}
