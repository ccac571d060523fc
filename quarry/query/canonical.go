package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/quarrydb/quarry/quarry/selection"
)

// Fingerprint returns a stable content hash of the logical query,
// suitable as a prepared-plan cache key. Two queries that differ only in
// Unicode normalization of their strings hash identically: every string
// is NFC-normalized before hashing.
//
// The serialization is positional (field order is fixed by this walk),
// so no key sorting is needed; values are written with an explicit type
// sigil to keep e.g. the string "1" distinct from the int 1.
func Fingerprint(q *Query) string {
	var b strings.Builder
	writeQuery(&b, q)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeQuery(b *strings.Builder, q *Query) {
	b.WriteString("q(")
	writeSource(b, q.From)
	for _, j := range q.Joins {
		fmt.Fprintf(b, "join(%d,", j.ParentIndex)
		writeSource(b, j.Source)
		writeString(b, j.ParentField)
		writeString(b, j.OnField)
		writeString(b, j.Assoc)
		b.WriteString(")")
	}
	for _, p := range q.Wheres {
		writePredicate(b, p)
	}
	if q.Select != nil {
		writeNode(b, q.Select)
	}
	for _, u := range q.Updates {
		writeUpdate(b, u)
	}
	for _, p := range q.Preloads {
		b.WriteString("preload(")
		writeString(b, p.Field)
		if p.Record != nil {
			writeString(b, p.Record.Name)
		}
		writeString(b, p.ForeignKey)
		writeString(b, p.ParentKey)
		b.WriteString(")")
	}
	for _, o := range q.OrderBys {
		fmt.Fprintf(b, "order(%s,%v)", norm.NFC.String(o.Field), o.Desc)
	}
	fmt.Fprintf(b, "limit(%d))", q.Limit)
}

func writeSource(b *strings.Builder, s Source) {
	b.WriteString("src(")
	writeString(b, s.Name)
	if s.Record != nil {
		writeString(b, s.Record.Name)
	}
	b.WriteString(")")
}

func writePredicate(b *strings.Builder, p Predicate) {
	switch pred := p.(type) {
	case Equals:
		b.WriteString("eq(")
		writeString(b, pred.Field)
		writeValue(b, pred.Value)
		b.WriteString(")")
	case In:
		b.WriteString("in(")
		writeString(b, pred.Field)
		for _, v := range pred.Values {
			writeValue(b, v)
		}
		b.WriteString(")")
	case And:
		b.WriteString("and(")
		for _, inner := range pred.Predicates {
			writePredicate(b, inner)
		}
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "pred(%T)", p)
	}
}

func writeUpdate(b *strings.Builder, u Update) {
	switch up := u.(type) {
	case Set:
		b.WriteString("set(")
		writeString(b, up.Field)
		writeValue(b, up.Value)
		b.WriteString(")")
	case Inc:
		b.WriteString("inc(")
		writeString(b, up.Field)
		writeValue(b, up.Delta)
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "update(%T)", u)
	}
}

func writeNode(b *strings.Builder, n selection.Node) {
	switch node := n.(type) {
	case selection.EntityRef:
		fmt.Fprintf(b, "ref(%d)", node.Index)
	case selection.Tuple:
		b.WriteString("tuple(")
		for _, c := range node.Children {
			writeNode(b, c)
		}
		b.WriteString(")")
	case selection.Pair:
		b.WriteString("pair(")
		writeNode(b, node.Left)
		writeNode(b, node.Right)
		b.WriteString(")")
	case selection.Mapping:
		b.WriteString("map(")
		for _, e := range node.Entries {
			writeNode(b, e.Key)
			writeNode(b, e.Value)
		}
		b.WriteString(")")
	case selection.List:
		b.WriteString("list(")
		for _, c := range node.Children {
			writeNode(b, c)
		}
		b.WriteString(")")
	case selection.Literal:
		b.WriteString("lit(")
		writeValue(b, node.Value)
		b.WriteString(")")
	case selection.Leaf:
		writeLeaf(b, node.Spec)
	default:
		fmt.Fprintf(b, "node(%T)", n)
	}
}

func writeLeaf(b *strings.Builder, l selection.LeafSpec) {
	switch leaf := l.(type) {
	case selection.EntityFields:
		fmt.Fprintf(b, "fields(%d", leaf.Index)
		for _, f := range leaf.Fields {
			writeString(b, f)
		}
		b.WriteString(")")
	case selection.FieldAccess:
		fmt.Fprintf(b, "field(%d,%s,%s)", leaf.Index, norm.NFC.String(leaf.Field), leaf.Type)
	case selection.Aggregate:
		fmt.Fprintf(b, "agg(%s,%d,%s,%s)", leaf.Kind, leaf.Index, norm.NFC.String(leaf.Field), leaf.Type)
	case selection.TaggedValue:
		fmt.Fprintf(b, "tagged(%s,%s)", norm.NFC.String(leaf.Expr), leaf.Type)
	case selection.Opaque:
		fmt.Fprintf(b, "opaque(%s)", norm.NFC.String(leaf.Expr))
	default:
		fmt.Fprintf(b, "leaf(%T)", l)
	}
}

// writeString writes an NFC-normalized, length-prefixed string token.
// Length prefixing keeps adjacent strings from gluing together.
func writeString(b *strings.Builder, s string) {
	n := norm.NFC.String(s)
	fmt.Fprintf(b, "s%d:%s", len(n), n)
}

// writeValue writes a parameter value with a type sigil.
func writeValue(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("z")
	case string:
		writeString(b, val)
	case bool:
		fmt.Fprintf(b, "b%v", val)
	case int:
		fmt.Fprintf(b, "i%d", val)
	case int64:
		fmt.Fprintf(b, "i%d", val)
	case float64:
		fmt.Fprintf(b, "f%g", val)
	default:
		fmt.Fprintf(b, "v(%T:%v)", v, v)
	}
}
