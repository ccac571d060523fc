package quarry

import (
	"context"
	"fmt"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/query"
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/selection"
)

// mergeAssociations populates association slots structurally: for every
// planned association, the materialized record of the joined source is
// attached under the association field of the origin record. Pure
// transform over already-decoded rows, no I/O.
func mergeAssociations(rows [][]any, p *plan.Plan) error {
	if len(p.Assocs) == 0 || len(rows) == 0 {
		return nil
	}
	if !p.Selection.OriginAtHead {
		return fmt.Errorf("association merge requires the origin record projected at position 0")
	}

	for _, assoc := range p.Assocs {
		leafIdx := -1
		for i, l := range p.Selection.Leaves {
			if ef, ok := l.(selection.EntityFields); ok && ef.Index == assoc.SourceIndex {
				leafIdx = i
				break
			}
		}
		if leafIdx < 0 {
			return fmt.Errorf("association %q: source %d is not projected", assoc.Field, assoc.SourceIndex)
		}
		for _, row := range rows {
			origin, ok := row[0].(*schema.Record)
			if !ok {
				return fmt.Errorf("association %q: origin at position 0 is %T, not a record", assoc.Field, row[0])
			}
			origin.Fields[assoc.Field] = row[leafIdx]
		}
	}
	return nil
}

// applyPreloads fetches related records for every preload spec in one
// follow-up query each and attaches them, grouped by foreign key, under
// the preload field of each origin record. Runs after association merge
// and before shaping.
func (r *Repo) applyPreloads(ctx context.Context, p *plan.Plan, rows [][]any, opts callOptions) error {
	if len(p.Preloads) == 0 || len(rows) == 0 {
		return nil
	}
	if !p.Selection.OriginAtHead {
		return fmt.Errorf("preload requires the origin record projected at position 0")
	}

	origins := make([]*schema.Record, len(rows))
	for i, row := range rows {
		origin, ok := row[0].(*schema.Record)
		if !ok {
			return fmt.Errorf("preload: origin at position 0 is %T, not a record", row[0])
		}
		origins[i] = origin
	}

	for _, pl := range p.Preloads {
		if err := r.preloadOne(ctx, pl, origins, opts); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) preloadOne(ctx context.Context, pl query.Preload, origins []*schema.Record, opts callOptions) error {
	if pl.Record == nil {
		return &QueryStructureError{Message: fmt.Sprintf("preload %q has no record type", pl.Field)}
	}
	if pl.ForeignKey == "" {
		return &QueryStructureError{Message: fmt.Sprintf("preload %q has no foreign key", pl.Field)}
	}
	parentKey := pl.ParentKey
	if parentKey == "" {
		rt := origins[0].Type
		pk := rt.PrimaryKey()
		if len(pk) != 1 {
			return &QueryStructureError{
				Message: fmt.Sprintf("preload %q needs an explicit parent key: %s does not declare exactly one primary key", pl.Field, rt.Name),
				Keys:    pk,
			}
		}
		parentKey = pk[0]
	}

	// Dedupe parent key values preserving first-seen order.
	var keys []any
	seen := make(map[any]bool)
	for _, origin := range origins {
		k := origin.Get(parentKey)
		if k == nil || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}

	byKey := make(map[any][]*schema.Record)
	if len(keys) > 0 {
		childQ := query.New(query.SourceOf(pl.Record)).
			Where(query.In{Field: pl.ForeignKey, Values: keys})
		children, err := r.All(ctx, childQ, opts.asOptions()...)
		if err != nil {
			return fmt.Errorf("preload %q: %w", pl.Field, err)
		}
		for _, c := range children {
			rec, ok := c.(*schema.Record)
			if !ok {
				return fmt.Errorf("preload %q: fetched %T, not a record", pl.Field, c)
			}
			k := rec.Get(pl.ForeignKey)
			byKey[k] = append(byKey[k], rec)
		}
	}

	for _, origin := range origins {
		group := byKey[origin.Get(parentKey)]
		if group == nil {
			group = []*schema.Record{}
		}
		origin.Fields[pl.Field] = group
	}
	return nil
}
