package quarry

import (
	"context"
	"fmt"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/query"
)

// All fetches every result matching the query, shaped per its select
// expression.
func (r *Repo) All(ctx context.Context, q *query.Query, opts ...Option) ([]any, error) {
	_, rows, err := r.execute(ctx, plan.OpAll, q, applyOptions(opts))
	return rows, err
}

// UpdateAll updates every matched row. A non-empty update list rewrites
// the query to carry those updates, replacing any pre-attached update
// expressions; an empty list executes the query's own updates unchanged.
// Returns the affected-row count, plus decoded rows when the query
// selects returned values.
func (r *Repo) UpdateAll(ctx context.Context, q *query.Query, updates []query.Update, opts ...Option) (int64, []any, error) {
	if len(updates) > 0 {
		q = q.WithUpdates(updates)
	}
	return r.execute(ctx, plan.OpUpdateAll, q, applyOptions(opts))
}

// DeleteAll deletes every matched row. Returns the affected-row count,
// plus decoded rows when the query selects returned values.
func (r *Repo) DeleteAll(ctx context.Context, q *query.Query, opts ...Option) (int64, []any, error) {
	return r.execute(ctx, plan.OpDeleteAll, q, applyOptions(opts))
}

// One fetches the single result of the query: the element when exactly
// one row matches, nil when none does, and a MultiplicityError carrying
// the actual count when more than one does.
func (r *Repo) One(ctx context.Context, q *query.Query, opts ...Option) (any, error) {
	rows, err := r.All(ctx, q, opts...)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, &MultiplicityError{Count: len(rows)}
	}
}

// MustOne is One, except zero rows is a NotFoundError instead of nil.
// Absence is judged by row count, never by the shaped value: a single
// matching row that shapes to nil (a NULL column projection) is still
// the result.
func (r *Repo) MustOne(ctx context.Context, q *query.Query, opts ...Option) (any, error) {
	rows, err := r.All(ctx, q, opts...)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, &NotFoundError{Source: q.From.Name}
	case 1:
		return rows[0], nil
	default:
		return nil, &MultiplicityError{Count: len(rows)}
	}
}

// Get fetches the record with the given primary-key value, or nil when
// it does not exist.
func (r *Repo) Get(ctx context.Context, q *query.Query, id any, opts ...Option) (any, error) {
	dq, err := queryForGet(q, id)
	if err != nil {
		return nil, err
	}
	return r.One(ctx, dq, opts...)
}

// MustGet is Get, except a missing record is a NotFoundError.
func (r *Repo) MustGet(ctx context.Context, q *query.Query, id any, opts ...Option) (any, error) {
	dq, err := queryForGet(q, id)
	if err != nil {
		return nil, err
	}
	return r.MustOne(ctx, dq, opts...)
}

// GetBy fetches the single record matching all clauses conjunctively,
// or nil when none does.
func (r *Repo) GetBy(ctx context.Context, q *query.Query, clauses []query.Equals, opts ...Option) (any, error) {
	return r.One(ctx, queryForGetBy(q, clauses), opts...)
}

// MustGetBy is GetBy, except a missing record is a NotFoundError.
func (r *Repo) MustGetBy(ctx context.Context, q *query.Query, clauses []query.Equals, opts ...Option) (any, error) {
	return r.MustOne(ctx, queryForGetBy(q, clauses), opts...)
}

// queryForGet derives the filtered query a primary-key lookup runs.
// Fails before any planner or adapter work: a nil id is an
// ArgumentError; an origin without a record type, or a record type that
// does not declare exactly one primary-key field, is a
// QueryStructureError naming the offending key set.
func queryForGet(q *query.Query, id any) (*query.Query, error) {
	if id == nil {
		return nil, &ArgumentError{Message: "cannot perform a get with a nil id"}
	}
	rt := q.From.Record
	if rt == nil {
		return nil, &QueryStructureError{Message: fmt.Sprintf("get on %s requires a record type on the origin source", q.From.Name)}
	}
	pk := rt.PrimaryKey()
	if len(pk) != 1 {
		return nil, &QueryStructureError{
			Message: fmt.Sprintf("get requires %s to declare exactly one primary-key field, got %d", rt.Name, len(pk)),
			Keys:    pk,
		}
	}
	return q.Where(query.Equals{Field: pk[0], Value: id}), nil
}

// queryForGetBy derives the query filtering all given clauses
// conjunctively, in the given order. No primary-key requirement.
func queryForGetBy(q *query.Query, clauses []query.Equals) *query.Query {
	for _, c := range clauses {
		q = q.Where(c)
	}
	return q
}
