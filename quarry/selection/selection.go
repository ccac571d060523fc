package selection

import "fmt"

// Selection pairs a template with its flattened leaf list. Leaves is the
// flattening of Template in shaping-traversal order, except that when
// the origin record is projected it occupies position 0 and the template
// refers to it through EntityRef(0) without consuming.
type Selection struct {
	Template Node
	Leaves   []LeafSpec

	// OriginAtHead reports whether Leaves[0] is a whole-record
	// projection of the origin source. Precomputed here so the
	// orchestrator can split each row into (head, rest) without
	// re-inspecting the leaf list per call.
	OriginAtHead bool
}

// New builds a Selection, inferring OriginAtHead from the leaf shape.
func New(template Node, leaves []LeafSpec) *Selection {
	return &Selection{
		Template:     template,
		Leaves:       leaves,
		OriginAtHead: originAtHead(leaves),
	}
}

// NewWithOrigin builds a Selection with an explicit OriginAtHead flag.
// For callers that know whether they prepended the origin head: a
// template may own an EntityFields(0) leaf as its first leaf, which the
// shape-based inference of New cannot tell apart from a prepended head.
func NewWithOrigin(template Node, leaves []LeafSpec, originAtHead bool) *Selection {
	return &Selection{
		Template:     template,
		Leaves:       leaves,
		OriginAtHead: originAtHead,
	}
}

func originAtHead(leaves []LeafSpec) bool {
	if len(leaves) == 0 {
		return false
	}
	ef, ok := leaves[0].(EntityFields)
	return ok && ef.Index == 0
}

// Flatten returns the leaf specs of a template in shaping-traversal
// order. EntityRef and Literal nodes contribute nothing: they never
// consume from the value queue.
func Flatten(n Node) []LeafSpec {
	var leaves []LeafSpec
	flattenInto(n, &leaves)
	return leaves
}

func flattenInto(n Node, out *[]LeafSpec) {
	switch node := n.(type) {
	case EntityRef:
		// Threaded from context, never consumed.
	case Literal:
		// Constant, never consumed.
	case Leaf:
		*out = append(*out, node.Spec)
	case Tuple:
		for _, c := range node.Children {
			flattenInto(c, out)
		}
	case Pair:
		flattenInto(node.Left, out)
		flattenInto(node.Right, out)
	case Mapping:
		for _, e := range node.Entries {
			flattenInto(e.Key, out)
			flattenInto(e.Value, out)
		}
	case List:
		for _, c := range node.Children {
			flattenInto(c, out)
		}
	default:
		panic(fmt.Sprintf("unknown selection node type: %T", n))
	}
}

// Validate checks the ordering invariant: the leaf list must equal the
// flattening of the template, after skipping the origin head when the
// origin record is projected at position 0.
func (s *Selection) Validate() error {
	expected := Flatten(s.Template)
	got := s.Leaves
	if s.OriginAtHead {
		got = got[1:]
	}
	if len(got) != len(expected) {
		return fmt.Errorf("selection: %d leaves but template flattens to %d", len(got), len(expected))
	}
	for i := range expected {
		if !leafEqual(got[i], expected[i]) {
			return fmt.Errorf("selection: leaf %d is %T, template expects %T at that position", i, got[i], expected[i])
		}
	}
	return nil
}

// leafEqual compares two leaf specs structurally.
func leafEqual(a, b LeafSpec) bool {
	switch av := a.(type) {
	case EntityFields:
		bv, ok := b.(EntityFields)
		if !ok || av.Index != bv.Index || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for i := range av.Fields {
			if av.Fields[i] != bv.Fields[i] {
				return false
			}
		}
		return true
	case FieldAccess:
		bv, ok := b.(FieldAccess)
		return ok && av == bv
	case Aggregate:
		bv, ok := b.(Aggregate)
		return ok && av == bv
	case TaggedValue:
		bv, ok := b.(TaggedValue)
		return ok && av == bv
	case Opaque:
		bv, ok := b.(Opaque)
		return ok && av == bv
	default:
		return false
	}
}

// Width returns how many raw column values a leaf consumes from the
// storage row. EntityFields spans one column per projected field; every
// other leaf spans one.
func Width(l LeafSpec) int {
	if ef, ok := l.(EntityFields); ok {
		return len(ef.Fields)
	}
	return 1
}

// RowWidth returns the total raw column count of one storage row for the
// given leaves.
func RowWidth(leaves []LeafSpec) int {
	n := 0
	for _, l := range leaves {
		n += Width(l)
	}
	return n
}
