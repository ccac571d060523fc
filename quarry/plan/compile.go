package plan

import (
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/quarry/query"
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/selection"
)

// Compiler compiles logical queries for one backend placeholder style.
// Prefix is the default source prefix (schema/attach name); a per-call
// prefix override takes precedence.
type Compiler struct {
	Style  PlaceholderStyle
	Prefix string
}

// NewCompiler creates a Compiler for the given placeholder style.
func NewCompiler(style PlaceholderStyle) *Compiler {
	return &Compiler{Style: style}
}

// Compile converts a logical query into (plan, sql, params) for the
// given operation. Returns a query-validation error when the query
// lacks the shape the operation requires.
func (c *Compiler) Compile(q *query.Query, op Op, prefix string) (*Plan, string, []any, error) {
	if q == nil {
		return nil, "", nil, fmt.Errorf("cannot compile nil query")
	}
	if q.From.Name == "" {
		return nil, "", nil, fmt.Errorf("query has no source")
	}
	if prefix == "" {
		prefix = c.Prefix
	}

	sources := make([]SourceInfo, 0, 1+len(q.Joins))
	sources = append(sources, SourceInfo{Name: q.From.Name, Record: q.From.Record})
	var assocs []Assoc
	for i, j := range q.Joins {
		sources = append(sources, SourceInfo{Name: j.Source.Name, Record: j.Source.Record})
		if j.Assoc != "" {
			assocs = append(assocs, Assoc{Field: j.Assoc, SourceIndex: i + 1})
		}
	}

	p := &Plan{
		SourcePrefix: prefix,
		Sources:      sources,
		Assocs:       assocs,
		Preloads:     append([]query.Preload(nil), q.Preloads...),
		Fingerprint:  query.Fingerprint(q),
	}

	switch op {
	case OpAll:
		sql, params, err := c.compileSelect(q, p)
		return p, sql, params, err
	case OpUpdateAll:
		sql, params, err := c.compileUpdate(q, p)
		return p, sql, params, err
	case OpDeleteAll:
		sql, params, err := c.compileDelete(q, p)
		return p, sql, params, err
	default:
		return nil, "", nil, fmt.Errorf("unsupported operation kind: %s", op)
	}
}

// compileSelect builds a SELECT statement. A nil select expression
// defaults to the whole origin record.
func (c *Compiler) compileSelect(q *query.Query, p *Plan) (string, []any, error) {
	node := q.Select
	if node == nil {
		node = selection.EntityRef{Index: 0}
	}

	sel, exprs, err := buildSelection(node, p.Sources, true)
	if err != nil {
		return "", nil, err
	}
	p.Selection = sel

	b := NewBuilder(c.Style)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(exprs, ", "))
	fmt.Fprintf(&sb, " FROM %s AS t0", tableRef(p.SourcePrefix, p.Sources[0].Name))

	for i, j := range q.Joins {
		fmt.Fprintf(&sb, " INNER JOIN %s AS t%d ON t%d.%s = t%d.%s",
			tableRef(p.SourcePrefix, j.Source.Name), i+1,
			i+1, j.OnField,
			j.ParentIndex, j.ParentField)
	}

	whereSQL, err := compileWheres(b, q.Wheres, "t0.")
	if err != nil {
		return "", nil, err
	}
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
	}

	if order := orderClause(q, p.Sources[0]); order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(order)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	return sb.String(), b.Args(), nil
}

// orderClause returns the ORDER BY body. Explicit orderings win;
// otherwise a single-primary-key origin is ordered by its key so reads
// of the same state are deterministic.
func orderClause(q *query.Query, origin SourceInfo) string {
	if len(q.OrderBys) > 0 {
		parts := make([]string, len(q.OrderBys))
		for i, o := range q.OrderBys {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("t0.%s %s", o.Field, dir)
		}
		return strings.Join(parts, ", ")
	}
	if origin.Record != nil {
		if pk := origin.Record.PrimaryKey(); len(pk) == 1 {
			return fmt.Sprintf("t0.%s ASC", pk[0])
		}
	}
	return ""
}

// compileUpdate builds an UPDATE statement, with a RETURNING clause when
// the query carries a select expression.
func (c *Compiler) compileUpdate(q *query.Query, p *Plan) (string, []any, error) {
	if len(q.Joins) > 0 {
		return "", nil, fmt.Errorf("update_all does not support joins")
	}
	if len(q.Updates) == 0 {
		return "", nil, fmt.Errorf("update_all requires at least one update expression")
	}

	b := NewBuilder(c.Style)

	setParts := make([]string, 0, len(q.Updates))
	for _, u := range q.Updates {
		switch up := u.(type) {
		case query.Set:
			setParts = append(setParts, fmt.Sprintf("%s = %s", up.Field, b.Arg(up.Value)))
		case query.Inc:
			setParts = append(setParts, fmt.Sprintf("%s = %s + %s", up.Field, up.Field, b.Arg(up.Delta)))
		default:
			return "", nil, fmt.Errorf("unsupported update type: %T", u)
		}
	}

	whereSQL, err := compileWheres(b, q.Wheres, "")
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET %s", tableRef(p.SourcePrefix, p.Sources[0].Name), strings.Join(setParts, ", "))
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
	}
	if err := appendReturning(&sb, q, p); err != nil {
		return "", nil, err
	}
	return sb.String(), b.Args(), nil
}

// compileDelete builds a DELETE statement, with a RETURNING clause when
// the query carries a select expression.
func (c *Compiler) compileDelete(q *query.Query, p *Plan) (string, []any, error) {
	if len(q.Joins) > 0 {
		return "", nil, fmt.Errorf("delete_all does not support joins")
	}

	b := NewBuilder(c.Style)
	whereSQL, err := compileWheres(b, q.Wheres, "")
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s", tableRef(p.SourcePrefix, p.Sources[0].Name))
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
	}
	if err := appendReturning(&sb, q, p); err != nil {
		return "", nil, err
	}
	return sb.String(), b.Args(), nil
}

// appendReturning compiles the mutation's select expression, if any,
// into a RETURNING clause and attaches the selection to the plan.
// Mutation selections only see the origin source.
func appendReturning(sb *strings.Builder, q *query.Query, p *Plan) error {
	if q.Select == nil {
		return nil
	}
	sel, exprs, err := buildSelection(q.Select, p.Sources[:1], false)
	if err != nil {
		return err
	}
	p.Selection = sel
	sb.WriteString(" RETURNING ")
	sb.WriteString(strings.Join(exprs, ", "))
	return nil
}

// compileWheres conjoins the query's predicates.
// CRITICAL: Values are NEVER interpolated - always parameterized.
func compileWheres(b *Builder, preds []query.Predicate, qual string) (string, error) {
	if len(preds) == 0 {
		return "", nil
	}
	return compilePredicate(b, query.And{Predicates: preds}, qual)
}

func compilePredicate(b *Builder, p query.Predicate, qual string) (string, error) {
	switch pred := p.(type) {
	case query.Equals:
		return fmt.Sprintf("%s%s = %s", qual, pred.Field, b.Arg(pred.Value)), nil
	case query.In:
		if len(pred.Values) == 0 {
			// IN over the empty set matches nothing.
			return "1 = 0", nil
		}
		phs := make([]string, len(pred.Values))
		for i, v := range pred.Values {
			phs[i] = b.Arg(v)
		}
		return fmt.Sprintf("%s%s IN (%s)", qual, pred.Field, strings.Join(phs, ", ")), nil
	case query.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		for _, inner := range pred.Predicates {
			sql, err := compilePredicate(b, inner, qual)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
		return strings.Join(parts, " AND "), nil
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// buildSelection walks a select expression, normalizing leaf specs
// against the planned sources and collecting the select-list expression
// per leaf. When the expression references the origin record, its
// whole-record projection is emitted at position 0 of the leaf list and
// the head columns lead the select list.
func buildSelection(node selection.Node, sources []SourceInfo, qualified bool) (*selection.Selection, []string, error) {
	w := &selectionWalker{sources: sources, qualified: qualified}

	originProjected := containsOriginRef(node)
	if originProjected {
		origin := sources[0]
		if origin.Record == nil {
			return nil, nil, fmt.Errorf("whole-record projection requires a record type on the origin source %q", origin.Name)
		}
		fields := origin.Record.FieldNames()
		w.leaves = append(w.leaves, selection.EntityFields{Index: 0, Fields: fields})
		for _, f := range fields {
			w.exprs = append(w.exprs, w.column(0, f))
		}
	}

	template, err := w.walk(node)
	if err != nil {
		return nil, nil, err
	}

	// OriginAtHead is whether the head was prepended here. Inferring it
	// from the leaf shape would misread a template that owns an
	// entity-fields leaf over the origin as its first leaf.
	sel := selection.NewWithOrigin(template, w.leaves, originProjected)
	if err := sel.Validate(); err != nil {
		return nil, nil, fmt.Errorf("planner produced inconsistent selection: %w", err)
	}
	return sel, w.exprs, nil
}

type selectionWalker struct {
	sources   []SourceInfo
	qualified bool
	leaves    []selection.LeafSpec
	exprs     []string
}

func (w *selectionWalker) column(index int, field string) string {
	if w.qualified {
		return fmt.Sprintf("t%d.%s", index, field)
	}
	return field
}

// walk returns a normalized copy of the node: leaf specs get their field
// lists and declared types filled in from the planned sources, so the
// template and the leaf list agree structurally.
func (w *selectionWalker) walk(n selection.Node) (selection.Node, error) {
	switch node := n.(type) {
	case selection.EntityRef:
		if node.Index != 0 {
			return nil, fmt.Errorf("entity reference %d: only the origin may be referenced; project joined sources with entity-fields leaves", node.Index)
		}
		return node, nil
	case selection.Literal:
		return node, nil
	case selection.Leaf:
		spec, err := w.leaf(node.Spec)
		if err != nil {
			return nil, err
		}
		return selection.Leaf{Spec: spec}, nil
	case selection.Tuple:
		children, err := w.walkAll(node.Children)
		if err != nil {
			return nil, err
		}
		return selection.Tuple{Children: children}, nil
	case selection.Pair:
		left, err := w.walk(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := w.walk(node.Right)
		if err != nil {
			return nil, err
		}
		return selection.Pair{Left: left, Right: right}, nil
	case selection.Mapping:
		entries := make([]selection.MapEntry, len(node.Entries))
		for i, e := range node.Entries {
			key, err := w.walk(e.Key)
			if err != nil {
				return nil, err
			}
			value, err := w.walk(e.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = selection.MapEntry{Key: key, Value: value}
		}
		return selection.Mapping{Entries: entries}, nil
	case selection.List:
		children, err := w.walkAll(node.Children)
		if err != nil {
			return nil, err
		}
		return selection.List{Children: children}, nil
	default:
		return nil, fmt.Errorf("unknown selection node type: %T", n)
	}
}

func (w *selectionWalker) walkAll(nodes []selection.Node) ([]selection.Node, error) {
	out := make([]selection.Node, len(nodes))
	for i, n := range nodes {
		walked, err := w.walk(n)
		if err != nil {
			return nil, err
		}
		out[i] = walked
	}
	return out, nil
}

func (w *selectionWalker) leaf(spec selection.LeafSpec) (selection.LeafSpec, error) {
	switch l := spec.(type) {
	case selection.EntityFields:
		src, err := w.source(l.Index)
		if err != nil {
			return nil, err
		}
		fields := l.Fields
		if len(fields) == 0 {
			if src.Record == nil {
				return nil, fmt.Errorf("entity-fields leaf over schemaless source %q requires an explicit field list", src.Name)
			}
			fields = src.Record.FieldNames()
		}
		norm := selection.EntityFields{Index: l.Index, Fields: fields}
		w.leaves = append(w.leaves, norm)
		for _, f := range fields {
			w.exprs = append(w.exprs, w.column(l.Index, f))
		}
		return norm, nil
	case selection.FieldAccess:
		src, err := w.source(l.Index)
		if err != nil {
			return nil, err
		}
		typ := l.Type
		if typ == "" {
			typ = schema.TypeAny
			if src.Record != nil {
				f, ok := src.Record.Field(l.Field)
				if !ok {
					return nil, fmt.Errorf("field %s is not declared on %s", l.Field, src.Record.Name)
				}
				typ = f.Type
			}
		}
		norm := selection.FieldAccess{Index: l.Index, Field: l.Field, Type: typ}
		w.leaves = append(w.leaves, norm)
		w.exprs = append(w.exprs, w.column(l.Index, l.Field))
		return norm, nil
	case selection.Aggregate:
		src, err := w.source(l.Index)
		if err != nil {
			return nil, err
		}
		switch l.Kind {
		case selection.AggAvg, selection.AggMin, selection.AggMax, selection.AggSum:
		default:
			return nil, fmt.Errorf("unknown aggregate kind %q", l.Kind)
		}
		typ := l.Type
		if typ == "" {
			typ = schema.TypeAny
			if l.Kind == selection.AggAvg {
				typ = schema.TypeFloat
			} else if src.Record != nil {
				if f, ok := src.Record.Field(l.Field); ok {
					typ = f.Type
				}
			}
		}
		norm := selection.Aggregate{Kind: l.Kind, Index: l.Index, Field: l.Field, Type: typ}
		w.leaves = append(w.leaves, norm)
		w.exprs = append(w.exprs, fmt.Sprintf("%s(%s)", l.Kind, w.column(l.Index, l.Field)))
		return norm, nil
	case selection.TaggedValue:
		if l.Expr == "" {
			return nil, fmt.Errorf("tagged-value leaf requires an expression")
		}
		if l.Type == "" {
			return nil, fmt.Errorf("tagged-value leaf requires a declared type")
		}
		w.leaves = append(w.leaves, l)
		w.exprs = append(w.exprs, l.Expr)
		return l, nil
	case selection.Opaque:
		if l.Expr == "" {
			return nil, fmt.Errorf("opaque leaf requires an expression")
		}
		w.leaves = append(w.leaves, l)
		w.exprs = append(w.exprs, l.Expr)
		return l, nil
	default:
		return nil, fmt.Errorf("unknown leaf spec type: %T", spec)
	}
}

func (w *selectionWalker) source(index int) (SourceInfo, error) {
	if index < 0 || index >= len(w.sources) {
		return SourceInfo{}, fmt.Errorf("leaf references source %d but the query has %d sources", index, len(w.sources))
	}
	return w.sources[index], nil
}

// containsOriginRef reports whether the expression references the whole
// origin record anywhere.
func containsOriginRef(n selection.Node) bool {
	switch node := n.(type) {
	case selection.EntityRef:
		return node.Index == 0
	case selection.Tuple:
		for _, c := range node.Children {
			if containsOriginRef(c) {
				return true
			}
		}
	case selection.Pair:
		return containsOriginRef(node.Left) || containsOriginRef(node.Right)
	case selection.Mapping:
		for _, e := range node.Entries {
			if containsOriginRef(e.Key) || containsOriginRef(e.Value) {
				return true
			}
		}
	case selection.List:
		for _, c := range node.Children {
			if containsOriginRef(c) {
				return true
			}
		}
	}
	return false
}

// tableRef qualifies a table with the source prefix when one is set.
func tableRef(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
