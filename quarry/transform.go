package quarry

import (
	"fmt"

	"github.com/quarrydb/quarry/quarry/selection"
)

// rowCursor threads the decoded-value queue through shaping. Only Leaf
// nodes advance it.
type rowCursor struct {
	row []any
	pos int
}

func (c *rowCursor) pop() (any, error) {
	if c.pos >= len(c.row) {
		return nil, fmt.Errorf("selection consumed more values than the row holds (%d)", len(c.row))
	}
	v := c.row[c.pos]
	c.pos++
	return v, nil
}

// shape reconstructs the requested nested result shape for one row of
// decoded leaf values. When the origin record is projected at position 0
// the head value is split off and threaded as the origin context while
// the rest of the row is shaped; otherwise the full row is shaped with
// no origin.
//
// A row that is exhausted early or not fully consumed is a fatal
// invariant violation: the planner guarantees template and leaves agree,
// so either mismatch means the adapter and shaper disagree on ordering.
func shape(sel *selection.Selection, row []any) (any, error) {
	var origin any
	vals := row
	if sel.OriginAtHead {
		if len(row) == 0 {
			return nil, fmt.Errorf("origin projected at position 0 but the row is empty")
		}
		origin = row[0]
		vals = row[1:]
	}
	cur := &rowCursor{row: vals}
	v, err := shapeNode(sel.Template, cur, origin)
	if err != nil {
		return nil, err
	}
	if cur.pos != len(cur.row) {
		return nil, fmt.Errorf("selection consumed %d of %d row values", cur.pos, len(cur.row))
	}
	return v, nil
}

// shapeNode is the recursive descent over the template. The cursor only
// advances on Leaf nodes; EntityRef substitutes the threaded origin and
// Literal returns its constant.
func shapeNode(n selection.Node, cur *rowCursor, origin any) (any, error) {
	switch node := n.(type) {
	case selection.EntityRef:
		if node.Index != 0 {
			return nil, fmt.Errorf("cannot shape entity reference %d: only the origin is threaded", node.Index)
		}
		return origin, nil

	case selection.Literal:
		return node.Value, nil

	case selection.Leaf:
		return cur.pop()

	case selection.Tuple:
		return shapeChildren(node.Children, cur, origin)

	case selection.Pair:
		left, err := shapeNode(node.Left, cur, origin)
		if err != nil {
			return nil, err
		}
		right, err := shapeNode(node.Right, cur, origin)
		if err != nil {
			return nil, err
		}
		return []any{left, right}, nil

	case selection.Mapping:
		out := make(map[any]any, len(node.Entries))
		for _, e := range node.Entries {
			k, err := shapeNode(e.Key, cur, origin)
			if err != nil {
				return nil, err
			}
			v, err := shapeNode(e.Value, cur, origin)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil

	case selection.List:
		return shapeChildren(node.Children, cur, origin)

	default:
		return nil, fmt.Errorf("unknown selection node type: %T", n)
	}
}

func shapeChildren(children []selection.Node, cur *rowCursor, origin any) ([]any, error) {
	out := make([]any, len(children))
	for i, c := range children {
		v, err := shapeNode(c, cur, origin)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
