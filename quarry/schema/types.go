// Package schema defines the record metadata quarry materializes results
// against: record types, their typed fields, and the loader contract that
// turns one row of raw storage values into a typed Record.
//
// Record types are declared in CUE (see cue.go) and are immutable after
// loading. The execution core treats the schema system as an external
// collaborator: it only reads field lists, primary keys, and field types.
package schema

import (
	"fmt"
	"sort"
)

// FieldType identifies the declared type of a record field or expression.
// Scalar decoding (storage.Decoder) is keyed on this type.
type FieldType string

const (
	TypeID     FieldType = "id"
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeTime   FieldType = "time"
	TypeBinary FieldType = "binary"
	TypeJSON   FieldType = "json"
	TypeUUID   FieldType = "uuid"

	// TypeAny marks expressions with no declared type. Decoders pass
	// such values through unchanged.
	TypeAny FieldType = "any"
)

// validFieldTypes is the closed set accepted by CUE schema loading.
var validFieldTypes = map[FieldType]bool{
	TypeID: true, TypeString: true, TypeInt: true, TypeFloat: true,
	TypeBool: true, TypeTime: true, TypeBinary: true, TypeJSON: true,
	TypeUUID: true,
}

// Field describes one declared field of a record type.
type Field struct {
	Name       string
	Type       FieldType
	PrimaryKey bool
}

// RecordType describes one source (table) and the typed fields quarry
// materializes from it. Field order is declaration order and is the
// order whole-record projections select columns in.
type RecordType struct {
	// Name is the logical record name (e.g. "Post").
	Name string

	// Source is the storage-level table name (e.g. "posts").
	Source string

	// Fields in declaration order.
	Fields []Field

	byName map[string]int
}

// NewRecordType builds a RecordType and indexes its fields.
// Returns an error on duplicate field names or empty field lists.
func NewRecordType(name, source string, fields []Field) (*RecordType, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("record type %s: at least one field is required", name)
	}
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, dup := byName[f.Name]; dup {
			return nil, fmt.Errorf("record type %s: duplicate field %q", name, f.Name)
		}
		byName[f.Name] = i
	}
	return &RecordType{Name: name, Source: source, Fields: fields, byName: byName}, nil
}

// Field returns the declared field with the given name.
func (rt *RecordType) Field(name string) (Field, bool) {
	i, ok := rt.byName[name]
	if !ok {
		return Field{}, false
	}
	return rt.Fields[i], true
}

// FieldNames returns all field names in declaration order.
func (rt *RecordType) FieldNames() []string {
	names := make([]string, len(rt.Fields))
	for i, f := range rt.Fields {
		names[i] = f.Name
	}
	return names
}

// PrimaryKey returns the names of all primary-key fields in declaration
// order. Single-entity lookups require exactly one.
func (rt *RecordType) PrimaryKey() []string {
	var keys []string
	for _, f := range rt.Fields {
		if f.PrimaryKey {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// Catalog holds all loaded record types, keyed by record name.
type Catalog struct {
	Types map[string]*RecordType
}

// Get returns the record type with the given name.
func (c *Catalog) Get(name string) (*RecordType, bool) {
	rt, ok := c.Types[name]
	return rt, ok
}

// Names returns all record type names, sorted for deterministic output.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Types))
	for name := range c.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
