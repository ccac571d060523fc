package plan

import "strconv"

// PlaceholderStyle selects the parameter placeholder syntax of the
// target backend.
type PlaceholderStyle int

const (
	// PlaceholderQuestion emits "?" (SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar emits "$1", "$2", ... (Postgres).
	PlaceholderDollar
)

// Builder allocates placeholders and accumulates the parameter list in
// allocation order.
type Builder struct {
	style PlaceholderStyle
	args  []any
}

// NewBuilder creates a Builder for the given style.
func NewBuilder(style PlaceholderStyle) *Builder {
	return &Builder{style: style}
}

// Arg records a parameter value and returns its placeholder.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	if b.style == PlaceholderDollar {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

// Args returns the accumulated parameters in allocation order.
func (b *Builder) Args() []any { return b.args }

// Len returns how many parameters have been allocated.
func (b *Builder) Len() int { return len(b.args) }
