package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/selection"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, label TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO items (id, label) VALUES (1, 'a'), (2, 'b')`)
	require.NoError(t, err)
	return db
}

func labelPlan() *plan.Plan {
	leaf := selection.FieldAccess{Index: 0, Field: "label", Type: schema.TypeString}
	return &plan.Plan{
		Selection: selection.New(selection.Leaf{Spec: leaf}, []selection.LeafSpec{leaf}),
	}
}

func TestRun_DecodesPerLeaf(t *testing.T) {
	db := openTestDB(t)
	dec := SQLiteDecoder()
	decode := func(ctx context.Context, leaf selection.LeafSpec, raw any) (any, error) {
		return dec.Decode(leaf.(selection.FieldAccess).Type, raw)
	}

	count, rows, err := Run(context.Background(), db, labelPlan(),
		"SELECT label FROM items ORDER BY id", nil, decode, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, [][]any{{"a"}, {"b"}}, rows)
}

func TestRun_FailuresCarryTraceID(t *testing.T) {
	db := openTestDB(t)
	opts := Options{TraceID: "trace-xyz"}

	t.Run("exec error", func(t *testing.T) {
		_, _, err := Run(context.Background(), db, nil, "NOT SQL", nil, nil, opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "trace-xyz")
	})

	t.Run("column width mismatch", func(t *testing.T) {
		decode := func(ctx context.Context, leaf selection.LeafSpec, raw any) (any, error) {
			return raw, nil
		}
		_, _, err := Run(context.Background(), db, labelPlan(),
			"SELECT id, label FROM items", nil, decode, opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "returns 2 columns but selection spans 1")
		assert.Contains(t, err.Error(), "trace-xyz")
	})

	t.Run("no trace leaves the error bare", func(t *testing.T) {
		_, _, err := Run(context.Background(), db, nil, "NOT SQL", nil, nil, Options{})
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "trace")
	})
}
