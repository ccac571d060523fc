package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogSchema = `
record: Post: {
	source: "posts"
	fields: {
		id:        {type: "id", primary_key: true}
		title:     {type: "string"}
		views:     {type: "int"}
		author_id: {type: "int"}
	}
}

record: Author: {
	source: "authors"
	fields: {
		id:   {type: "id", primary_key: true}
		name: {type: "string"}
	}
}
`

func TestCompileString_BlogSchema(t *testing.T) {
	catalog, err := CompileString(blogSchema)
	require.NoError(t, err)

	assert.Equal(t, []string{"Author", "Post"}, catalog.Names())

	post, ok := catalog.Get("Post")
	require.True(t, ok)
	assert.Equal(t, "posts", post.Source)
	// Declaration order is column order.
	assert.Equal(t, []string{"id", "title", "views", "author_id"}, post.FieldNames())
	assert.Equal(t, []string{"id"}, post.PrimaryKey())

	title, ok := post.Field("title")
	require.True(t, ok)
	assert.Equal(t, TypeString, title.Type)
	assert.False(t, title.PrimaryKey)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.cue"), []byte(blogSchema), 0o644))

	catalog, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Author", "Post"}, catalog.Names())
}

func TestCompileString_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		record  string
		field   string
		message string
	}{
		{
			name:    "no record struct",
			src:     `other: {}`,
			message: "no record types declared",
		},
		{
			name:    "missing source",
			src:     `record: Post: {fields: {id: {type: "id"}}}`,
			record:  "Post",
			field:   "source",
			message: "source is required",
		},
		{
			name:    "missing fields",
			src:     `record: Post: {source: "posts"}`,
			record:  "Post",
			field:   "fields",
			message: "fields is required",
		},
		{
			name:    "missing field type",
			src:     `record: Post: {source: "posts", fields: {id: {primary_key: true}}}`,
			record:  "Post",
			field:   "id",
			message: "type is required",
		},
		{
			name:    "unknown field type",
			src:     `record: Post: {source: "posts", fields: {id: {type: "varchar"}}}`,
			record:  "Post",
			field:   "id",
			message: `unknown field type "varchar"`,
		},
		{
			name:    "non-bool primary_key",
			src:     `record: Post: {source: "posts", fields: {id: {type: "id", primary_key: "yes"}}}`,
			record:  "Post",
			field:   "id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.src)
			require.Error(t, err)

			var cerr *CompileError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.record, cerr.Record)
			assert.Equal(t, tt.field, cerr.Field)
			if tt.message != "" {
				assert.Contains(t, cerr.Message, tt.message)
			}
		})
	}
}

func TestNewRecordType_Validation(t *testing.T) {
	_, err := NewRecordType("Empty", "empties", nil)
	require.Error(t, err)

	_, err = NewRecordType("Dup", "dups", []Field{
		{Name: "id", Type: TypeID},
		{Name: "id", Type: TypeInt},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate field "id"`)
}
