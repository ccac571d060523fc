package quarry

import (
	"context"

	"github.com/google/uuid"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/query"
	"github.com/quarrydb/quarry/quarry/storage"
)

// execute drives one operation through the pipeline: compile, adapter
// round trip with the leaf-decoding callback, association merge,
// preload, row shaping. Returns the adapter's row count and the shaped
// rows (nil for selection-less statements).
func (r *Repo) execute(ctx context.Context, op plan.Op, q *query.Query, opts callOptions) (int64, []any, error) {
	p, stmt, params, err := r.planner.Compile(q, op, opts.prefix)
	if err != nil {
		return 0, nil, &QueryStructureError{Message: err.Error()}
	}

	// The trace token is materialized into the call options so nested
	// calls (preload follow-ups) run under the same token.
	if opts.traceID == "" {
		opts.traceID = uuid.NewString()
	}
	sopts := storage.Options{
		Prefix:  p.SourcePrefix,
		TraceID: opts.traceID,
		Extra:   opts.extra,
	}

	// Mutation-only statements skip decoding and shaping entirely.
	if p.Selection == nil {
		count, _, err := r.adapter.Execute(ctx, p, stmt, params, nil, sopts)
		return count, nil, err
	}

	count, rows, err := r.adapter.Execute(ctx, p, stmt, params, r.decodeFunc(p), sopts)
	if err != nil {
		return 0, nil, err
	}

	if err := mergeAssociations(rows, p); err != nil {
		return 0, nil, err
	}
	if err := r.applyPreloads(ctx, p, rows, opts); err != nil {
		return 0, nil, err
	}

	shaped := make([]any, len(rows))
	for i, row := range rows {
		v, err := shape(p.Selection, row)
		if err != nil {
			return 0, nil, err
		}
		shaped[i] = v
	}
	return count, shaped, nil
}
