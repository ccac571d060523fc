package quarry

import (
	"context"
	"fmt"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/selection"
	"github.com/quarrydb/quarry/quarry/storage"
)

// scalarShim wraps the adapter's scalar-decoding capability behind the
// uniform callback signature the preprocessor and record loader consume.
func scalarShim(d storage.Decoder) schema.DecodeScalar {
	return d.Decode
}

// decodeFunc builds the leaf-decoding callback for one plan, bound to
// the plan's source prefix, sources, and the adapter's scalar decoder.
// The adapter invokes it once per leaf per row, in leaf order.
func (r *Repo) decodeFunc(p *plan.Plan) storage.DecodeFunc {
	scalar := scalarShim(r.adapter.Decoder())
	return func(ctx context.Context, leaf selection.LeafSpec, raw any) (any, error) {
		return decodeLeaf(ctx, leaf, raw, p, r.loader, scalar)
	}
}

// decodeLeaf produces one decoded value for one selection leaf.
//
//   - EntityFields over a record-typed source dispatches to the record
//     loader, which owns field-by-field typed decoding.
//   - EntityFields over a schemaless source passes an already structured
//     value through unchanged, or zips a flat sequence into an ordered
//     field→value mapping.
//   - FieldAccess, Aggregate, and TaggedValue decode one scalar against
//     the declared type; a rejected value is an ArgumentError carrying
//     the raw value and type.
//   - Opaque is identity.
func decodeLeaf(ctx context.Context, leaf selection.LeafSpec, raw any, p *plan.Plan, loader schema.Loader, scalar schema.DecodeScalar) (any, error) {
	switch l := leaf.(type) {
	case selection.EntityFields:
		if l.Index < 0 || l.Index >= len(p.Sources) {
			return nil, fmt.Errorf("leaf references source %d but the plan has %d sources", l.Index, len(p.Sources))
		}
		src := p.Sources[l.Index]
		if src.Record == nil {
			vals, ok := raw.([]any)
			if !ok {
				// Already materialized upstream (e.g. an embedded
				// document): pass through unchanged.
				return raw, nil
			}
			if len(vals) != len(l.Fields) {
				return nil, &ArgumentError{Message: fmt.Sprintf("source %s: %d fields but %d values", src.Name, len(l.Fields), len(vals))}
			}
			out := make(map[string]any, len(vals))
			for i, f := range l.Fields {
				out[f] = vals[i]
			}
			return out, nil
		}
		vals, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("source %s: whole-record projection expects a value sequence, got %T", src.Name, raw)
		}
		return loader.Load(ctx, src.Record, p.SourcePrefix, src.Name, l.Fields, vals, scalar)

	case selection.FieldAccess:
		return decodeScalar(scalar, l.Type, raw)
	case selection.Aggregate:
		return decodeScalar(scalar, l.Type, raw)
	case selection.TaggedValue:
		return decodeScalar(scalar, l.Type, raw)
	case selection.Opaque:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown leaf spec type: %T", leaf)
	}
}

func decodeScalar(scalar schema.DecodeScalar, t schema.FieldType, raw any) (any, error) {
	v, err := scalar(t, raw)
	if err != nil {
		return nil, &ArgumentError{Message: err.Error(), Raw: raw, DeclaredType: t}
	}
	return v, nil
}
