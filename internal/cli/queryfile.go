package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/query"
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/selection"
)

// QueryFile is the YAML representation of one logical query. The record
// names resolve against the loaded schema catalog.
//
//	from: Post
//	where:
//	  - field: status
//	    eq: active
//	  - field: id
//	    in: [1, 2, 3]
//	select:
//	  fields: [title, views]
//	updates:
//	  - field: views
//	    inc: 1
//	order:
//	  - field: views
//	    desc: true
//	limit: 10
type QueryFile struct {
	From     string        `yaml:"from"`
	Where    []WhereSpec   `yaml:"where,omitempty"`
	Select   *SelectSpec   `yaml:"select,omitempty"`
	Updates  []UpdateSpec  `yaml:"updates,omitempty"`
	Order    []OrderSpec   `yaml:"order,omitempty"`
	Limit    int           `yaml:"limit,omitempty"`
	Preloads []PreloadSpec `yaml:"preload,omitempty"`
}

// WhereSpec is one conjunctive filter: exactly one of Eq or In is set.
type WhereSpec struct {
	Field string `yaml:"field"`
	Eq    any    `yaml:"eq,omitempty"`
	In    []any  `yaml:"in,omitempty"`
}

// SelectSpec shapes the result. Record projects the whole origin record;
// Fields, Aggregates and Count build a tuple of scalar leaves. An absent
// select defaults to the whole record.
type SelectSpec struct {
	Record     bool            `yaml:"record,omitempty"`
	Fields     []string        `yaml:"fields,omitempty"`
	Aggregates []AggregateSpec `yaml:"aggregates,omitempty"`
	Count      bool            `yaml:"count,omitempty"`
}

// AggregateSpec is one aggregate leaf of a select tuple.
type AggregateSpec struct {
	Kind  string `yaml:"kind"`
	Field string `yaml:"field"`
}

// UpdateSpec is one bulk-update expression: exactly one of Set or Inc.
type UpdateSpec struct {
	Field string `yaml:"field"`
	Set   any    `yaml:"set,omitempty"`
	Inc   any    `yaml:"inc,omitempty"`
}

// OrderSpec orders by one origin field.
type OrderSpec struct {
	Field string `yaml:"field"`
	Desc  bool   `yaml:"desc,omitempty"`
}

// PreloadSpec fetches related records in a follow-up query.
type PreloadSpec struct {
	Field      string `yaml:"field"`
	Record     string `yaml:"record"`
	ForeignKey string `yaml:"foreign_key"`
	ParentKey  string `yaml:"parent_key,omitempty"`
}

// LoadQueryFile reads and parses a YAML query file.
func LoadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file %s: %w", path, err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parse query file %s: %w", path, err)
	}
	if qf.From == "" {
		return nil, fmt.Errorf("query file %s: from is required", path)
	}
	return &qf, nil
}

// Build resolves the query file against a schema catalog.
func (qf *QueryFile) Build(catalog *schema.Catalog) (*query.Query, error) {
	rt, ok := catalog.Get(qf.From)
	if !ok {
		return nil, fmt.Errorf("unknown record type %q (declared: %v)", qf.From, catalog.Names())
	}
	q := query.New(query.SourceOf(rt))

	for _, w := range qf.Where {
		if w.Field == "" {
			return nil, fmt.Errorf("where clause needs a field")
		}
		switch {
		case w.Eq != nil && w.In != nil:
			return nil, fmt.Errorf("where %s: eq and in are mutually exclusive", w.Field)
		case w.In != nil:
			q = q.Where(query.In{Field: w.Field, Values: w.In})
		default:
			q = q.Where(query.Equals{Field: w.Field, Value: w.Eq})
		}
	}

	sel, err := qf.buildSelect()
	if err != nil {
		return nil, err
	}
	if sel != nil {
		q = q.WithSelect(sel)
	}

	if len(qf.Updates) > 0 {
		updates := make([]query.Update, 0, len(qf.Updates))
		for _, u := range qf.Updates {
			switch {
			case u.Field == "":
				return nil, fmt.Errorf("update needs a field")
			case u.Set != nil && u.Inc != nil:
				return nil, fmt.Errorf("update %s: set and inc are mutually exclusive", u.Field)
			case u.Inc != nil:
				updates = append(updates, query.Inc{Field: u.Field, Delta: u.Inc})
			case u.Set != nil:
				updates = append(updates, query.Set{Field: u.Field, Value: u.Set})
			default:
				return nil, fmt.Errorf("update %s: set or inc is required", u.Field)
			}
		}
		q = q.WithUpdates(updates)
	}

	for _, o := range qf.Order {
		q = q.WithOrder(query.OrderBy{Field: o.Field, Desc: o.Desc})
	}
	if qf.Limit > 0 {
		q = q.WithLimit(qf.Limit)
	}

	for _, p := range qf.Preloads {
		child, ok := catalog.Get(p.Record)
		if !ok {
			return nil, fmt.Errorf("preload %s: unknown record type %q", p.Field, p.Record)
		}
		q = q.WithPreload(query.Preload{
			Field:      p.Field,
			Record:     child,
			ForeignKey: p.ForeignKey,
			ParentKey:  p.ParentKey,
		})
	}

	return q, nil
}

func (qf *QueryFile) buildSelect() (selection.Node, error) {
	s := qf.Select
	if s == nil || s.Record {
		// Planner default: whole origin record.
		return nil, nil
	}

	var nodes []selection.Node
	for _, f := range s.Fields {
		nodes = append(nodes, selection.Leaf{Spec: selection.FieldAccess{Index: 0, Field: f}})
	}
	for _, a := range s.Aggregates {
		kind := selection.AggregateKind(a.Kind)
		switch kind {
		case selection.AggAvg, selection.AggMin, selection.AggMax, selection.AggSum:
		default:
			return nil, fmt.Errorf("unknown aggregate kind %q", a.Kind)
		}
		nodes = append(nodes, selection.Leaf{Spec: selection.Aggregate{Kind: kind, Index: 0, Field: a.Field}})
	}
	if s.Count {
		nodes = append(nodes, selection.Leaf{Spec: selection.Opaque{Expr: "count(*)"}})
	}

	switch len(nodes) {
	case 0:
		return nil, fmt.Errorf("select declares no fields, aggregates, or count")
	case 1:
		return nodes[0], nil
	default:
		return selection.Tuple{Children: nodes}, nil
	}
}

// ParseOp maps an operation name to its plan op.
func ParseOp(name string) (plan.Op, error) {
	switch name {
	case "", "all":
		return plan.OpAll, nil
	case "update_all":
		return plan.OpUpdateAll, nil
	case "delete_all":
		return plan.OpDeleteAll, nil
	default:
		return "", fmt.Errorf("unknown operation %q (all|update_all|delete_all)", name)
	}
}
