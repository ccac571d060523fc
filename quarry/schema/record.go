package schema

import (
	"context"
	"fmt"
)

// Record is one materialized row of a record type. Fields holds the
// decoded value per declared field; association and preload slots are
// added under their association names after materialization.
type Record struct {
	Type   *RecordType
	Fields map[string]any
}

// Get returns the decoded value of a field or association slot.
func (r *Record) Get(name string) any {
	return r.Fields[name]
}

// DecodeScalar converts one raw storage value into one typed value given
// its declared type. Adapters supply the implementation; the execution
// core threads it into record loading and leaf decoding.
type DecodeScalar func(t FieldType, raw any) (any, error)

// Loader builds a typed record from a field list and the raw values the
// adapter returned for those fields. Implementations own field-by-field
// typed decoding and record construction.
//
// prefix and source identify where the row came from; they are carried
// for loaders that key decoding on the physical source.
type Loader interface {
	Load(ctx context.Context, rt *RecordType, prefix, source string, fields []string, raw []any, decode DecodeScalar) (*Record, error)
}

// MapLoader is the default Loader. It zips fields with raw values,
// decodes each against the declared field type, and stores the result in
// a Record field map. Fields not declared on the record type are decoded
// as TypeAny (passthrough).
type MapLoader struct{}

// Load implements Loader.
func (MapLoader) Load(ctx context.Context, rt *RecordType, prefix, source string, fields []string, raw []any, decode DecodeScalar) (*Record, error) {
	if len(fields) != len(raw) {
		return nil, fmt.Errorf("load %s from %s: %d fields but %d values", rt.Name, source, len(fields), len(raw))
	}
	out := make(map[string]any, len(fields))
	for i, name := range fields {
		typ := TypeAny
		if f, ok := rt.Field(name); ok {
			typ = f.Type
		}
		v, err := decode(typ, raw[i])
		if err != nil {
			return nil, fmt.Errorf("load %s.%s: %w", rt.Name, name, err)
		}
		out[name] = v
	}
	return &Record{Type: rt, Fields: out}, nil
}
