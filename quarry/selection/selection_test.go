package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry/quarry/schema"
)

func TestFlatten_TraversalOrder(t *testing.T) {
	// {(:title, t0.title) => [count, sum(views)]} with a literal key:
	// leaves must come out in key-then-value, left-to-right order.
	template := Mapping{Entries: []MapEntry{
		{
			Key: Tuple{Children: []Node{
				Literal{Value: "title"},
				Leaf{Spec: FieldAccess{Index: 0, Field: "title", Type: schema.TypeString}},
			}},
			Value: List{Children: []Node{
				Leaf{Spec: Opaque{Expr: "count(*)"}},
				Leaf{Spec: Aggregate{Kind: AggSum, Index: 0, Field: "views", Type: schema.TypeInt}},
			}},
		},
	}}

	leaves := Flatten(template)
	require.Len(t, leaves, 3)
	assert.Equal(t, FieldAccess{Index: 0, Field: "title", Type: schema.TypeString}, leaves[0])
	assert.Equal(t, Opaque{Expr: "count(*)"}, leaves[1])
	assert.Equal(t, Aggregate{Kind: AggSum, Index: 0, Field: "views", Type: schema.TypeInt}, leaves[2])
}

func TestFlatten_EntityRefAndLiteralNeverConsume(t *testing.T) {
	template := Tuple{Children: []Node{
		EntityRef{Index: 0},
		Literal{Value: 42},
		Pair{
			Left:  Leaf{Spec: FieldAccess{Index: 0, Field: "id", Type: schema.TypeID}},
			Right: EntityRef{Index: 0},
		},
	}}

	leaves := Flatten(template)
	require.Len(t, leaves, 1)
	assert.Equal(t, FieldAccess{Index: 0, Field: "id", Type: schema.TypeID}, leaves[0])
}

func TestNewWithOrigin_ExplicitFlagBeatsInference(t *testing.T) {
	// A template-owned EntityFields(0) leaf looks exactly like a
	// prepended head; only the caller can tell them apart.
	ef := EntityFields{Index: 0, Fields: []string{"id", "title"}}
	template := Tuple{Children: []Node{
		Leaf{Spec: ef},
		Leaf{Spec: FieldAccess{Index: 0, Field: "title", Type: schema.TypeString}},
	}}
	leaves := []LeafSpec{ef, FieldAccess{Index: 0, Field: "title", Type: schema.TypeString}}

	s := NewWithOrigin(template, leaves, false)
	assert.False(t, s.OriginAtHead)
	require.NoError(t, s.Validate())

	// Inference from the same leaves misreads the head and fails.
	require.Error(t, New(template, leaves).Validate())
}

func TestNew_OriginAtHead(t *testing.T) {
	tests := []struct {
		name   string
		leaves []LeafSpec
		want   bool
	}{
		{
			name:   "entity fields of origin at position 0",
			leaves: []LeafSpec{EntityFields{Index: 0, Fields: []string{"id", "title"}}},
			want:   true,
		},
		{
			name:   "entity fields of a joined source at position 0",
			leaves: []LeafSpec{EntityFields{Index: 1, Fields: []string{"id"}}},
			want:   false,
		},
		{
			name:   "scalar leaf at position 0",
			leaves: []LeafSpec{FieldAccess{Index: 0, Field: "id", Type: schema.TypeID}},
			want:   false,
		},
		{
			name:   "no leaves",
			leaves: nil,
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := New(EntityRef{Index: 0}, tt.leaves)
			assert.Equal(t, tt.want, sel.OriginAtHead)
		})
	}
}

func TestValidate_MatchingSelection(t *testing.T) {
	template := Tuple{Children: []Node{
		Leaf{Spec: FieldAccess{Index: 0, Field: "id", Type: schema.TypeID}},
		Leaf{Spec: FieldAccess{Index: 0, Field: "title", Type: schema.TypeString}},
	}}
	sel := New(template, Flatten(template))
	require.NoError(t, sel.Validate())
}

func TestValidate_OriginHeadSkipped(t *testing.T) {
	// Origin projected at position 0: the template refers to it through
	// EntityRef(0) and the head leaf is excluded from the flattening.
	template := Pair{
		Left:  EntityRef{Index: 0},
		Right: Leaf{Spec: Opaque{Expr: "count(*)"}},
	}
	leaves := []LeafSpec{
		EntityFields{Index: 0, Fields: []string{"id", "title"}},
		Opaque{Expr: "count(*)"},
	}
	sel := New(template, leaves)
	require.True(t, sel.OriginAtHead)
	require.NoError(t, sel.Validate())
}

func TestValidate_LeafCountMismatch(t *testing.T) {
	template := Leaf{Spec: Opaque{Expr: "1"}}
	sel := New(template, []LeafSpec{Opaque{Expr: "1"}, Opaque{Expr: "2"}})
	err := sel.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leaves")
}

func TestValidate_LeafOrderMismatch(t *testing.T) {
	template := Tuple{Children: []Node{
		Leaf{Spec: FieldAccess{Index: 0, Field: "id", Type: schema.TypeID}},
		Leaf{Spec: Opaque{Expr: "count(*)"}},
	}}
	sel := New(template, []LeafSpec{
		Opaque{Expr: "count(*)"},
		FieldAccess{Index: 0, Field: "id", Type: schema.TypeID},
	})
	require.Error(t, sel.Validate())
}

func TestWidth(t *testing.T) {
	assert.Equal(t, 3, Width(EntityFields{Index: 0, Fields: []string{"a", "b", "c"}}))
	assert.Equal(t, 1, Width(FieldAccess{Index: 0, Field: "a", Type: schema.TypeInt}))
	assert.Equal(t, 1, Width(Opaque{Expr: "1"}))

	leaves := []LeafSpec{
		EntityFields{Index: 0, Fields: []string{"a", "b"}},
		Aggregate{Kind: AggAvg, Index: 0, Field: "a", Type: schema.TypeFloat},
	}
	assert.Equal(t, 3, RowWidth(leaves))
}
