package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/selection"
)

// Run executes a compiled statement against a database/sql handle. Both
// bundled adapters delegate here; the backend differences live entirely
// in connection setup and scalar decoding.
//
// With a nil decode callback the statement is executed for its effect
// and only the affected-row count is returned. Otherwise each returned
// row is scanned raw, split per selection leaf, and decoded through the
// callback in leaf order.
func Run(ctx context.Context, db *sql.DB, p *plan.Plan, stmt string, params []any, decode DecodeFunc, opts Options) (int64, [][]any, error) {
	// Failures carry the call's trace token so an adapter error can be
	// tied back to the orchestrated operation that issued it.
	fail := func(err error) error {
		if opts.TraceID == "" {
			return err
		}
		return fmt.Errorf("trace %s: %w", opts.TraceID, err)
	}

	if decode == nil {
		res, err := db.ExecContext(ctx, stmt, params...)
		if err != nil {
			return 0, nil, fail(fmt.Errorf("execute %q: %w", stmt, err))
		}
		count, err := res.RowsAffected()
		if err != nil {
			return 0, nil, fail(fmt.Errorf("rows affected: %w", err))
		}
		return count, nil, nil
	}

	if p == nil || p.Selection == nil {
		return 0, nil, fail(fmt.Errorf("decode callback supplied but plan has no selection"))
	}
	leaves := p.Selection.Leaves
	width := selection.RowWidth(leaves)

	rows, err := db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return 0, nil, fail(fmt.Errorf("query %q: %w", stmt, err))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, nil, fail(fmt.Errorf("columns: %w", err))
	}
	if len(cols) != width {
		return 0, nil, fail(fmt.Errorf("statement returns %d columns but selection spans %d", len(cols), width))
	}

	var out [][]any
	for rows.Next() {
		raw := make([]any, width)
		ptrs := make([]any, width)
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return 0, nil, fail(fmt.Errorf("scan row: %w", err))
		}

		decoded := make([]any, len(leaves))
		pos := 0
		for i, leaf := range leaves {
			w := selection.Width(leaf)
			var rv any
			if _, ok := leaf.(selection.EntityFields); ok {
				rv = append([]any(nil), raw[pos:pos+w]...)
			} else {
				rv = raw[pos]
			}
			v, err := decode(ctx, leaf, rv)
			if err != nil {
				return 0, nil, fail(err)
			}
			decoded[i] = v
			pos += w
		}
		out = append(out, decoded)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fail(fmt.Errorf("iterate rows: %w", err))
	}

	return int64(len(out)), out, nil
}
